package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, order_number, user_id, subtotal_cents, discount_cents, total_cents,
	status, payment_status, payment_ref, payment_url, tracking_number,
	delivery_address, pickup_point, postal_code, promo_code_id,
	created_at, updated_at, paid_at, shipped_at`

// ListFilter narrows ListOrders: by owning user, by status, paged.
type ListFilter struct {
	UserID *int64
	Status *Status
	Limit  int
	Offset int
}

// OrderUpdate is the administrative patch surface. Status changes go through
// the lifecycle transition table unless Force is set; Force is an
// unconstrained override, deliberately outside the state machine's contract.
type OrderUpdate struct {
	Status          *Status
	TrackingNumber  *string
	DeliveryAddress *string
	PickupPoint     *string
	PostalCode      *string
	Force           bool
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id).Scan(scanTargets(&o)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	if err != nil {
		return Order{}, fmt.Errorf("%w: get order: %v", ErrPersistence, err)
	}
	items, err := loadItems(ctx, r.DB, []int64{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]Order, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}

	where := ` WHERE ($1::bigint IS NULL OR user_id = $1) AND ($2::text IS NULL OR status = $2)`
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, f.UserID, f.Status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count orders: %v", ErrPersistence, err)
	}

	rows, err := r.DB.Query(ctx,
		`SELECT `+orderColumns+` FROM orders`+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		f.UserID, f.Status, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list orders: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []Order
	var ids []int64
	for rows.Next() {
		var o Order
		if err := rows.Scan(scanTargets(&o)...); err != nil {
			return nil, 0, fmt.Errorf("%w: scan order: %v", ErrPersistence, err)
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: list orders: %v", ErrPersistence, err)
	}

	if len(ids) > 0 {
		items, err := loadItems(ctx, r.DB, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range out {
			out[i].Items = items[out[i].ID]
		}
	}
	return out, total, nil
}

// UpdateOrder applies an administrative patch. Moving into SHIPPED stamps the
// shipped timestamp; re-applying the current status is a no-op.
func (r *Repo) UpdateOrder(ctx context.Context, id int64, upd OrderUpdate) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var o Order
	err = tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(scanTargets(&o)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	if err != nil {
		return Order{}, fmt.Errorf("%w: lock order: %v", ErrPersistence, err)
	}

	now := time.Now().UTC()
	if upd.Status != nil && *upd.Status != o.Status {
		to := *upd.Status
		if !ValidStatus(to) {
			return Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, to)
		}
		if !upd.Force && !CanTransition(o.Status, to) {
			return Order{}, fmt.Errorf("%w: cannot move order %s from %s to %s", ErrInvalidRequest, o.OrderNumber, o.Status, to)
		}
		o.Status = to
		if to == StatusShipped && o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	}
	if upd.TrackingNumber != nil {
		o.TrackingNumber = *upd.TrackingNumber
	}
	if upd.DeliveryAddress != nil {
		o.DeliveryAddress = *upd.DeliveryAddress
	}
	if upd.PickupPoint != nil {
		o.PickupPoint = *upd.PickupPoint
	}
	if upd.PostalCode != nil {
		o.PostalCode = *upd.PostalCode
	}
	o.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, tracking_number = $3, delivery_address = $4, pickup_point = $5,
		    postal_code = $6, shipped_at = $7, updated_at = $8
		WHERE id = $1`,
		o.ID, o.Status, o.TrackingNumber, o.DeliveryAddress, o.PickupPoint,
		o.PostalCode, o.ShippedAt, o.UpdatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("%w: update order: %v", ErrPersistence, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}

	items, err := loadItems(ctx, r.DB, []int64{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// SetPaymentInfo records the gateway's payment reference and confirmation
// URL after a payment was initiated for the order.
func (r *Repo) SetPaymentInfo(ctx context.Context, orderID int64, paymentRef, paymentURL string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_ref = $2, payment_url = $3, payment_status = $4, updated_at = $5
		WHERE id = $1`,
		orderID, paymentRef, paymentURL, PaymentPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: set payment info: %v", ErrPersistence, err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return nil
}

// ApplyPaymentOutcome moves an order forward on a payment signal, keyed by
// the opaque payment reference. A successful payment marks the order paid
// and stamps paid_at; cancellation and failure only record the payment
// status. Re-delivery of the same outcome is a no-op.
func (r *Repo) ApplyPaymentOutcome(ctx context.Context, paymentRef string, outcome PaymentStatus) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var o Order
	err = tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_ref = $1 FOR UPDATE`, paymentRef).Scan(scanTargets(&o)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: payment ref %q", ErrNotFound, paymentRef)
	}
	if err != nil {
		return Order{}, fmt.Errorf("%w: lock order by payment ref: %v", ErrPersistence, err)
	}

	now := time.Now().UTC()
	o.PaymentStatus = outcome
	if outcome == PaymentSucceeded && CanTransition(o.Status, StatusPaid) {
		o.Status = StatusPaid
		if o.PaidAt == nil {
			o.PaidAt = &now
		}
	}
	o.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, paid_at = $4, updated_at = $5
		WHERE id = $1`,
		o.ID, o.Status, o.PaymentStatus, o.PaidAt, o.UpdatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("%w: apply payment outcome: %v", ErrPersistence, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ querier = (*pgxpool.Pool)(nil)

func loadItems(ctx context.Context, q querier, orderIDs []int64) (map[int64][]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.size, oi.quantity,
		       oi.price_cents, oi.is_preorder, oi.wave
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: load items: %v", ErrPersistence, err)
	}
	defer rows.Close()

	out := make(map[int64][]OrderItem, len(orderIDs))
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Size,
			&it.Quantity, &it.PriceCents, &it.IsPreorder, &it.Wave); err != nil {
			return nil, fmt.Errorf("%w: scan item: %v", ErrPersistence, err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func scanTargets(o *Order) []any {
	return []any{
		&o.ID, &o.OrderNumber, &o.UserID, &o.SubtotalCents, &o.DiscountCents, &o.TotalCents,
		&o.Status, &o.PaymentStatus, &o.PaymentRef, &o.PaymentURL, &o.TrackingNumber,
		&o.DeliveryAddress, &o.PickupPoint, &o.PostalCode, &o.PromoCodeID,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.ShippedAt,
	}
}
