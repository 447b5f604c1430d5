package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentCancelled = "PaymentCancelled"
	EventPaymentFailed    = "PaymentFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemLine struct {
	ProductID  int64  `json:"product_id"`
	Size       Size   `json:"size"`
	Quantity   int    `json:"quantity"`
	PriceCents int    `json:"price_cents"`
	Wave       int    `json:"wave,omitempty"`
}

type OrderCreatedPayload struct {
	OrderID     int64      `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	UserID      int64      `json:"user_id"`
	Preorder    bool       `json:"preorder"`
	TotalCents  int        `json:"total_cents"`
	Items       []ItemLine `json:"items"`
}

// PaymentResultPayload is delivered by the payment webhook, keyed by the
// provider's opaque payment reference.
type PaymentResultPayload struct {
	PaymentRef string `json:"payment_ref"`
}
