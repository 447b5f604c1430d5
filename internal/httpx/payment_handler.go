package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/dwcshop/order-engine/internal/kafka"
	"github.com/dwcshop/order-engine/internal/orders"
	"github.com/dwcshop/order-engine/internal/payment"
	"github.com/dwcshop/order-engine/internal/redisx"
)

// PaymentStore is the slice of the orders repo payment initiation needs.
type PaymentStore interface {
	GetOrder(ctx context.Context, id int64) (orders.Order, error)
	SetPaymentInfo(ctx context.Context, orderID int64, paymentRef, paymentURL string) error
}

type PaymentHandler struct {
	Store    PaymentStore
	Gateway  payment.Gateway
	Producer *kafkax.Producer // order.payment.result
	Redis    *redis.Client
	Log      *zap.Logger
	Service  string

	ReturnURL string
	Currency  string
}

func (h *PaymentHandler) Register(r *chi.Mux) {
	r.Post("/payments/{orderID}", h.createPayment)
	r.Post("/payments/webhook", h.webhook)
}

func (h *PaymentHandler) createPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if o.PaymentStatus == orders.PaymentSucceeded {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order already paid"})
		return
	}

	lines := make([]payment.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, payment.Line{
			Description: fmt.Sprintf("%s (%s)", it.ProductName, it.Size),
			Quantity:    it.Quantity,
			PriceCents:  it.PriceCents,
		})
	}
	res, err := h.Gateway.CreatePayment(ctx, payment.CreateRequest{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		AmountCents: o.TotalCents,
		Currency:    h.Currency,
		Description: fmt.Sprintf("Order %s", o.OrderNumber),
		ReturnURL:   h.ReturnURL,
		Lines:       lines,
	})
	if err != nil {
		h.Log.Error("create payment", zap.Int64("order_id", o.ID), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment gateway unavailable"})
		return
	}

	if err := h.Store.SetPaymentInfo(ctx, o.ID, res.PaymentRef, res.ConfirmationURL); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"payment_ref":      res.PaymentRef,
		"confirmation_url": res.ConfirmationURL,
		"status":           res.Status,
	})
}

// webhook accepts provider notifications and republishes them as payment
// result events; the lifecycle consumer applies them to orders.
func (h *PaymentHandler) webhook(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	outcome, ok := n.Outcome()
	if !ok || n.Object.ID == "" {
		// Unknown events are acknowledged so the provider stops retrying.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, h.Service, n.Event+":"+n.Object.ID)
		if seen, _ := redisx.Exists(ctx, h.Redis, dkey); seen {
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
		_ = h.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	eventType := payment.EventType(outcome)
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		CorrelationID: n.Object.ID,
		Payload:       kafkax.MustMarshal(orders.PaymentResultPayload{PaymentRef: n.Object.ID}),
	}
	h.Producer.Publish(orders.PartitionKey(n.Object.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
