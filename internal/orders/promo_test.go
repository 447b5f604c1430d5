package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestPromoValid(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		promo PromoCode
		want  bool
	}{
		{"active unconstrained", PromoCode{IsActive: true}, true},
		{"inactive", PromoCode{IsActive: false}, false},
		{"before window", PromoCode{IsActive: true, ValidFrom: ts("2025-07-01T00:00:00Z")}, false},
		{"after window", PromoCode{IsActive: true, ValidUntil: ts("2025-06-01T00:00:00Z")}, false},
		{"inside window", PromoCode{IsActive: true, ValidFrom: ts("2025-06-01T00:00:00Z"), ValidUntil: ts("2025-07-01T00:00:00Z")}, true},
		{"under usage cap", PromoCode{IsActive: true, MaxUses: 2, CurrentUses: 1}, true},
		{"at usage cap", PromoCode{IsActive: true, MaxUses: 1, CurrentUses: 1}, false},
		{"unlimited uses", PromoCode{IsActive: true, MaxUses: 0, CurrentUses: 9000}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.promo.Valid(now))
		})
	}
}

func TestPromoDiscount(t *testing.T) {
	tests := []struct {
		name     string
		promo    PromoCode
		subtotal int
		want     int
	}{
		{"ten percent of 1000", PromoCode{DiscountPercent: 10}, 100000, 10000},
		{"fixed amount", PromoCode{DiscountCents: 30000}, 100000, 30000},
		{"fixed amount capped at subtotal", PromoCode{DiscountCents: 150000}, 100000, 100000},
		{"percent takes precedence over fixed", PromoCode{DiscountPercent: 5, DiscountCents: 99999}, 100000, 5000},
		{"neither set", PromoCode{}, 100000, 0},
		{"fractional percent truncates", PromoCode{DiscountPercent: 12.5}, 999, 124},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.promo.Discount(tt.subtotal))
		})
	}
}

func TestEvaluatePromo(t *testing.T) {
	now := time.Now().UTC()

	d, err := EvaluatePromo(&PromoCode{IsActive: true, DiscountPercent: 10}, 100000, now)
	assert.NoError(t, err)
	assert.Equal(t, 10000, d)

	_, err = EvaluatePromo(&PromoCode{IsActive: true, MaxUses: 1, CurrentUses: 1}, 100000, now)
	assert.ErrorIs(t, err, ErrInvalidPromoCode)

	_, err = EvaluatePromo(nil, 100000, now)
	assert.ErrorIs(t, err, ErrNotFound)
}
