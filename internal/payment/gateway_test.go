package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwcshop/order-engine/internal/orders"
)

func TestNotificationOutcome(t *testing.T) {
	tests := []struct {
		event string
		want  orders.PaymentStatus
		ok    bool
	}{
		{"payment.succeeded", orders.PaymentSucceeded, true},
		{"payment.canceled", orders.PaymentCancelled, true},
		{"payment.cancelled", orders.PaymentCancelled, true},
		{"payment.failed", orders.PaymentFailed, true},
		{"payment.waiting_for_capture", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		n := Notification{Event: tt.event}
		got, ok := n.Outcome()
		assert.Equal(t, tt.ok, ok, tt.event)
		assert.Equal(t, tt.want, got, tt.event)
	}
}

func TestHTTPGatewayCreatePayment(t *testing.T) {
	var gotReq CreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(CreateResult{
			PaymentRef:      "pay-42",
			ConfirmationURL: "https://pay.example.com/confirm/42",
			Status:          "pending",
		})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "sk-test")
	res, err := g.CreatePayment(context.Background(), CreateRequest{
		OrderID:     7,
		OrderNumber: "DWC-20250114-AABBCCDD",
		AmountCents: 90000,
		Currency:    "RUB",
		Description: "Order DWC-20250114-AABBCCDD",
		Lines:       []Line{{Description: "tee (OKI)", Quantity: 2, PriceCents: 45000}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-42", res.PaymentRef)
	assert.Equal(t, "https://pay.example.com/confirm/42", res.ConfirmationURL)
	assert.Equal(t, int64(7), gotReq.OrderID)
	assert.Equal(t, 90000, gotReq.AmountCents)
}

func TestHTTPGatewayRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "")
	_, err := g.CreatePayment(context.Background(), CreateRequest{})
	assert.Error(t, err)
}

func TestHTTPGatewayRejectsEmptyRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(CreateResult{})
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, "")
	_, err := g.CreatePayment(context.Background(), CreateRequest{})
	assert.Error(t, err)
}
