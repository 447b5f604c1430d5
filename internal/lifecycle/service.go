// Package lifecycle reacts to asynchronous payment outcomes and moves orders
// through their post-creation status progression.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/dwcshop/order-engine/internal/kafka"
	"github.com/dwcshop/order-engine/internal/orders"
	"github.com/dwcshop/order-engine/internal/redisx"
)

// StatusStore is the slice of the orders repo this service needs.
type StatusStore interface {
	ApplyPaymentOutcome(ctx context.Context, paymentRef string, outcome orders.PaymentStatus) (orders.Order, error)
}

type Service struct {
	Store       StatusStore
	Redis       *redis.Client
	Log         *zap.Logger
	ServiceName string
}

// HandlePaymentResult is the consumer handler for the payment result topic.
func (s *Service) HandlePaymentResult(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	var outcome orders.PaymentStatus
	switch env.EventType {
	case orders.EventPaymentSucceeded:
		outcome = orders.PaymentSucceeded
	case orders.EventPaymentCancelled:
		outcome = orders.PaymentCancelled
	case orders.EventPaymentFailed:
		outcome = orders.PaymentFailed
	default:
		return nil // not ours
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.PaymentResultPayload](env.Payload)
	if err != nil {
		return err
	}

	order, err := s.Store.ApplyPaymentOutcome(ctx, p.PaymentRef, outcome)
	if errors.Is(err, orders.ErrNotFound) {
		// Nothing to retry: the reference does not belong to any order.
		s.Log.Warn("payment result for unknown order", zap.String("payment_ref", p.PaymentRef))
		return nil
	}
	if err != nil {
		return err
	}

	s.Log.Info("payment outcome applied",
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(order.Status)),
		zap.String("payment_status", string(order.PaymentStatus)),
	)

	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
		body, _ := json.Marshal(map[string]any{
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		})
		_ = s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	return nil
}
