package orders

import "time"

// FulfillmentMode tells how demand for a product is satisfied.
type FulfillmentMode string

const (
	// ModeImmediate ships from the OKI/BIG stock buckets.
	ModeImmediate FulfillmentMode = "ORDER"
	// ModePreorder collects demand into bounded waves.
	ModePreorder FulfillmentMode = "PREORDER"
	// ModeWaiting is terminal: every preorder wave has filled.
	ModeWaiting FulfillmentMode = "WAITING"
)

// Size is one of the two fixed stock buckets.
type Size string

const (
	SizeOKI Size = "OKI"
	SizeBIG Size = "BIG"
)

func (s Size) Valid() bool { return s == SizeOKI || s == SizeBIG }

type Product struct {
	ID         int64     `json:"id"`
	Article    string    `json:"article"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`

	OkiQuantity int `json:"oki_quantity"`
	BigQuantity int `json:"big_quantity"`

	Mode         FulfillmentMode `json:"order_type"`
	TotalWaves   int             `json:"preorder_waves_total"`
	WaveCapacity int             `json:"preorder_wave_capacity"`
	CurrentWave  int             `json:"current_wave"`
	CurrentFill  int             `json:"current_wave_fill"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockFor returns the remaining stock of the named bucket.
func (p *Product) StockFor(size Size) int {
	if size == SizeBIG {
		return p.BigQuantity
	}
	return p.OkiQuantity
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type Order struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	UserID      int64  `json:"user_id"`

	SubtotalCents int `json:"subtotal_cents"`
	DiscountCents int `json:"discount_cents"`
	TotalCents    int `json:"total_cents"`

	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentRef    string        `json:"payment_ref,omitempty"`
	PaymentURL    string        `json:"payment_url,omitempty"`

	TrackingNumber  string `json:"tracking_number,omitempty"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
	PickupPoint     string `json:"pickup_point,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`

	PromoCodeID *int64 `json:"promo_code_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	ShippedAt *time.Time `json:"shipped_at,omitempty"`

	Items []OrderItem `json:"items"`
}

// OrderItem is immutable after creation; PriceCents is captured at order time.
type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Size        Size   `json:"size"`
	Quantity    int    `json:"quantity"`
	PriceCents  int    `json:"price_cents"`
	IsPreorder  bool   `json:"is_preorder"`
	Wave        int    `json:"wave,omitempty"` // set only for preorder items
}

type PromoCode struct {
	ID              int64
	Code            string
	DiscountPercent float64 // takes precedence when > 0
	DiscountCents   int
	MaxUses         int // 0 = unlimited
	CurrentUses     int
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	IsActive        bool
}

// ItemRequest is one requested line: (product, bucket, quantity).
type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Size      Size  `json:"size"`
	Quantity  int   `json:"quantity"`
}

type DeliveryInfo struct {
	Address     string `json:"delivery_address,omitempty"`
	PickupPoint string `json:"pickup_point,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
}
