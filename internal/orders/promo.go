package orders

import "time"

// Valid reports whether the code can be applied right now: active, inside its
// validity window and under its usage cap.
func (p *PromoCode) Valid(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	if p.MaxUses > 0 && p.CurrentUses >= p.MaxUses {
		return false
	}
	return true
}

// Discount computes the discount in cents for the given subtotal. A
// percentage discount takes precedence over a fixed amount; a fixed amount is
// capped at the subtotal so the total never goes negative.
func (p *PromoCode) Discount(subtotalCents int) int {
	if p.DiscountPercent > 0 {
		return int(float64(subtotalCents) * p.DiscountPercent / 100)
	}
	if p.DiscountCents > 0 {
		if p.DiscountCents > subtotalCents {
			return subtotalCents
		}
		return p.DiscountCents
	}
	return 0
}

// EvaluatePromo is the evaluator contract: discount for a valid code,
// ErrInvalidPromoCode otherwise. Callers decide whether an invalid code
// fails the order or is silently ignored.
func EvaluatePromo(p *PromoCode, subtotalCents int, now time.Time) (int, error) {
	if p == nil {
		return 0, ErrNotFound
	}
	if !p.Valid(now) {
		return 0, ErrInvalidPromoCode
	}
	return p.Discount(subtotalCents), nil
}
