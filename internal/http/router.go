package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(products *CatalogHandler, carts *CartHandler, orders *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", health)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", products.List)
		r.Get("/{productId}", products.Get)
		r.Get("/{productId}/availability", products.Availability)
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(RequireUser)
		r.Get("/", carts.Get)
		r.Get("/count", carts.ItemCount)
		r.Post("/items", carts.AddItem)
		r.Put("/items/{itemId}", carts.UpdateItem)
		r.Delete("/items/{itemId}", carts.RemoveItem)
		r.Delete("/", carts.Clear)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/checkout", orders.Checkout)
		r.Get("/", orders.List)
		r.Get("/number/{orderNumber}", orders.GetByNumber)
		r.Get("/{orderId}", orders.Get)
		r.Get("/{orderId}/status", orders.Status)
		r.Post("/{orderId}/cancel", orders.Cancel)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(RequireUser, RequireAdmin)
		r.Post("/products", products.Create)
		r.Put("/products/{productId}", products.Update)
		r.Post("/products/{productId}/stock", products.AdjustStock)
		r.Get("/products/low-stock", products.LowStock)
		r.Get("/orders", orders.ListByStatus)
		r.Post("/orders/{orderId}/processing", orders.MarkProcessing)
		r.Post("/orders/{orderId}/ship", orders.MarkShipped)
		r.Post("/orders/{orderId}/deliver", orders.MarkDelivered)
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "storefront"})
}
