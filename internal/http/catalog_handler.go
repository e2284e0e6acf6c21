package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopcore/storefront/internal/catalog"
)

type Catalog interface {
	Get(ctx context.Context, productID string) (catalog.Product, error)
	ListActive(ctx context.Context) ([]catalog.Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]catalog.Product, error)
	Create(ctx context.Context, p *catalog.Product) error
	Update(ctx context.Context, p *catalog.Product) error
}

// StockAdjuster is the ledger surface for admin restock; all stock writes go
// through it.
type StockAdjuster interface {
	SetAvailable(ctx context.Context, productID string, available int) error
	Available(ctx context.Context, productID string) (int, error)
}

type CatalogHandler struct {
	catalog Catalog
	stock   StockAdjuster
}

func NewCatalogHandler(c Catalog, s StockAdjuster) *CatalogHandler {
	return &CatalogHandler{catalog: c, stock: s}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	products, err := h.catalog.ListActive(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.catalog.Get(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.Name == "" || p.SKU == "" || p.Price <= 0 || p.StockQuantity < 0 {
		writeError(w, http.StatusBadRequest, "name, sku and a positive price are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.catalog.Create(ctx, &p); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	p.ID = chi.URLParam(r, "productId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.catalog.Update(ctx, &p); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) Availability(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	productID := chi.URLParam(r, "productId")
	available, err := h.stock.Available(ctx, productID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"productId": productID, "available": available})
}

func (h *CatalogHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Available int `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Available < 0 {
		writeError(w, http.StatusBadRequest, "available cannot be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	productID := chi.URLParam(r, "productId")
	if err := h.stock.SetAvailable(ctx, productID, body.Available); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"productId": productID, "available": body.Available})
}

func (h *CatalogHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 10
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	products, err := h.catalog.ListLowStock(ctx, threshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}
