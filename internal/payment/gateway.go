// Package payment is the payment collaborator boundary. The engine only
// needs to request a payment for an order and to receive the asynchronous
// outcome; the concrete provider integration lives behind a gateway adapter.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dwcshop/order-engine/internal/orders"
)

type Line struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	PriceCents  int    `json:"price_cents"`
}

type CreateRequest struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	AmountCents int    `json:"amount_cents"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	ReturnURL   string `json:"return_url"`
	Lines       []Line `json:"lines"`
}

type CreateResult struct {
	PaymentRef      string `json:"payment_ref"`
	ConfirmationURL string `json:"confirmation_url"`
	Status          string `json:"status"`
}

type Gateway interface {
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
}

// HTTPGateway talks to the payment gateway adapter service over JSON.
type HTTPGateway struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *HTTPGateway) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment gateway: unexpected status %d", resp.StatusCode)
	}

	var res CreateResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("payment gateway: decode response: %w", err)
	}
	if res.PaymentRef == "" {
		return nil, fmt.Errorf("payment gateway: empty payment reference")
	}
	return &res, nil
}

// Notification is the webhook body the provider posts on a payment event.
type Notification struct {
	Event  string `json:"event"`
	Object struct {
		ID string `json:"id"`
	} `json:"object"`
}

// Outcome maps a provider event to the engine's payment status. The second
// return is false for events the lifecycle tracker does not consume.
func (n Notification) Outcome() (orders.PaymentStatus, bool) {
	switch n.Event {
	case "payment.succeeded":
		return orders.PaymentSucceeded, true
	case "payment.canceled", "payment.cancelled":
		return orders.PaymentCancelled, true
	case "payment.failed":
		return orders.PaymentFailed, true
	default:
		return "", false
	}
}

// EventType names the Kafka event an outcome is published as.
func EventType(outcome orders.PaymentStatus) string {
	switch outcome {
	case orders.PaymentSucceeded:
		return orders.EventPaymentSucceeded
	case orders.PaymentCancelled:
		return orders.EventPaymentCancelled
	default:
		return orders.EventPaymentFailed
	}
}
