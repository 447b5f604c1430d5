package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dwcshop/order-engine/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps the engine's error taxonomy onto HTTP. Conflicts are 409 and
// retryable by the client; persistence faults stay opaque 500s.
func statusFor(err error) int {
	switch {
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, orders.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, orders.ErrInvalidRequest),
		errors.Is(err, orders.ErrProductInactive),
		errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrWaveExhausted),
		errors.Is(err, orders.ErrInvalidPromoCode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
