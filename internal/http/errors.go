package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopcore/storefront/internal/cart"
	"github.com/shopcore/storefront/internal/catalog"
	"github.com/shopcore/storefront/internal/order"
	"github.com/shopcore/storefront/internal/stock"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the core's typed failures to stable HTTP signals.
// Anything unrecognized is an internal fault and never leaks its message.
func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *stock.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "insufficient stock",
			"productId": stockErr.ProductID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
		return
	}

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrProductUnavailable),
		errors.Is(err, cart.ErrCartEmpty),
		errors.Is(err, order.ErrInvalidOrderState),
		errors.Is(err, order.ErrTrackingRequired),
		errors.Is(err, order.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, stock.ErrProductNotFound),
		errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrNotOwner), errors.Is(err, order.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrOrderNumberCollision):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
