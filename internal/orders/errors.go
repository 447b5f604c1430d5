package orders

import "errors"

// Every failure mode of order placement maps onto one of these sentinels;
// call sites wrap them with the offending product/bucket/code via fmt.Errorf
// and %w so handlers can classify with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product inactive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrWaveExhausted     = errors.New("preorder waves exhausted")
	ErrInvalidPromoCode  = errors.New("invalid promo code")
	ErrInvalidRequest    = errors.New("invalid request")

	// ErrConflict: a concurrent writer invalidated this call's validation at
	// commit time. The whole transaction is rolled back; callers may retry.
	ErrConflict = errors.New("conflict")

	// ErrPersistence: storage-layer fault, not retryable by the engine.
	ErrPersistence = errors.New("persistence failure")
)
