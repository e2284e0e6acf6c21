package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopcore/storefront/internal/order"
)

type OrderService interface {
	CreateFromCart(ctx context.Context, userID string, addr order.ShippingAddress) (*order.Order, error)
	Get(ctx context.Context, userID, orderID string, admin bool) (*order.Order, error)
	GetByNumber(ctx context.Context, userID, orderNumber string, admin bool) (*order.Order, error)
	List(ctx context.Context, userID string) ([]order.Order, error)
	ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error)
	Status(ctx context.Context, userID, orderID string, admin bool) (order.Status, error)
	Cancel(ctx context.Context, userID, orderID string, admin bool) (*order.Order, error)
	MarkProcessing(ctx context.Context, orderID string) (*order.Order, error)
	MarkShipped(ctx context.Context, orderID, trackingNumber string) (*order.Order, error)
	MarkDelivered(ctx context.Context, orderID string) (*order.Order, error)
}

type OrderHandler struct {
	svc OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var addr order.ShippingAddress
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.svc.CreateFromCart(ctx, UserID(ctx), addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.svc.List(ctx, UserID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.svc.Get(ctx, UserID(ctx), chi.URLParam(r, "orderId"), IsAdmin(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.svc.GetByNumber(ctx, UserID(ctx), chi.URLParam(r, "orderNumber"), IsAdmin(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, err := h.svc.Status(ctx, UserID(ctx), chi.URLParam(r, "orderId"), IsAdmin(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.svc.Cancel(ctx, UserID(ctx), chi.URLParam(r, "orderId"), IsAdmin(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := order.Status(r.URL.Query().Get("status"))
	if status == "" {
		writeError(w, http.StatusBadRequest, "missing status query parameter")
		return
	}
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.svc.ListByStatus(ctx, status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) MarkProcessing(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, func(ctx context.Context, orderID string) (*order.Order, error) {
		return h.svc.MarkProcessing(ctx, orderID)
	})
}

func (h *OrderHandler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackingNumber string `json:"trackingNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	h.applyTransition(w, r, func(ctx context.Context, orderID string) (*order.Order, error) {
		return h.svc.MarkShipped(ctx, orderID, body.TrackingNumber)
	})
}

func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, func(ctx context.Context, orderID string) (*order.Order, error) {
		return h.svc.MarkDelivered(ctx, orderID)
	})
}

func (h *OrderHandler) applyTransition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (*order.Order, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := apply(ctx, chi.URLParam(r, "orderId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
