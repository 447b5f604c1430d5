package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// PlaceOrderInput is one placement call: every requested line plus the
// optional promo code and delivery fields shared by the resulting orders.
type PlaceOrderInput struct {
	UserID    int64
	Items     []ItemRequest
	PromoCode string
	Delivery  DeliveryInfo
}

const productColumns = `id, article, name, price_cents, oki_quantity, big_quantity,
	order_type, preorder_waves_total, preorder_wave_capacity, current_wave, current_wave_fill,
	is_active, created_at, updated_at`

// PlaceOrder validates and commits one placement call as a single
// transaction: it locks every referenced product row, builds the mutation
// plan, persists one order per non-empty fulfillment group, applies stock
// decrements and wave transitions, and counts promo usage. Any failure rolls
// the whole call back; no order or counter change survives an error.
func (r *Repo) PlaceOrder(ctx context.Context, in PlaceOrderInput) ([]Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: empty item list", ErrInvalidRequest)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	products, err := lockProducts(ctx, tx, in.Items)
	if err != nil {
		return nil, err
	}

	plan, err := BuildPlan(products, in.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// The promo code applies to the immediate group only. An invalid or
	// unknown code does not fail the order; it is ignored and the order
	// proceeds undiscounted.
	var promo *PromoCode
	if in.PromoCode != "" && len(plan.Immediate) > 0 {
		promo, err = lockPromoCode(ctx, tx, in.PromoCode)
		if err != nil {
			return nil, err
		}
		if promo != nil && !promo.Valid(now) {
			promo = nil
		}
	}

	var created []Order
	if len(plan.Immediate) > 0 {
		o, err := insertGroup(ctx, tx, in, plan.Immediate, promo, now)
		if err != nil {
			return nil, err
		}
		created = append(created, o)
	}
	if len(plan.Preorder) > 0 {
		o, err := insertGroup(ctx, tx, in, plan.Preorder, nil, now)
		if err != nil {
			return nil, err
		}
		created = append(created, o)
	}

	if err := applyMutations(ctx, tx, plan, now); err != nil {
		return nil, err
	}

	if promo != nil {
		ct, err := tx.Exec(ctx, `
			UPDATE promo_codes SET current_uses = current_uses + 1, updated_at = $2
			WHERE id = $1 AND (max_uses = 0 OR current_uses < max_uses)`,
			promo.ID, now)
		if err != nil {
			return nil, fmt.Errorf("%w: promo usage: %v", ErrPersistence, err)
		}
		if ct.RowsAffected() != 1 {
			return nil, fmt.Errorf("%w: promo code %q usage cap reached", ErrConflict, promo.Code)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return created, nil
}

// lockProducts takes FOR UPDATE locks on every referenced product row, in
// ascending id order so concurrent multi-product calls cannot deadlock.
func lockProducts(ctx context.Context, tx pgx.Tx, items []ItemRequest) (map[int64]*Product, error) {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products := make(map[int64]*Product, len(ids))
	for _, id := range ids {
		var p Product
		err := tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id).Scan(
			&p.ID, &p.Article, &p.Name, &p.PriceCents, &p.OkiQuantity, &p.BigQuantity,
			&p.Mode, &p.TotalWaves, &p.WaveCapacity, &p.CurrentWave, &p.CurrentFill,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, id)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: lock product %d: %v", ErrPersistence, id, err)
		}
		products[id] = &p
	}
	return products, nil
}

// lockPromoCode returns the locked promo row, or nil when the code does not
// exist. The lock keeps the usage counter stable through commit.
func lockPromoCode(ctx context.Context, tx pgx.Tx, code string) (*PromoCode, error) {
	var p PromoCode
	err := tx.QueryRow(ctx, `
		SELECT id, code, discount_percent, discount_cents, max_uses, current_uses,
		       valid_from, valid_until, is_active
		FROM promo_codes WHERE code = $1 FOR UPDATE`, code).Scan(
		&p.ID, &p.Code, &p.DiscountPercent, &p.DiscountCents, &p.MaxUses, &p.CurrentUses,
		&p.ValidFrom, &p.ValidUntil, &p.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock promo code: %v", ErrPersistence, err)
	}
	return &p, nil
}

// insertGroup persists one order for a fulfillment group with its items and
// captured unit prices. The order-number insert runs under a savepoint so a
// rare uniqueness collision can be retried without aborting the outer
// transaction.
func insertGroup(ctx context.Context, tx pgx.Tx, in PlaceOrderInput, items []PlannedItem, promo *PromoCode, now time.Time) (Order, error) {
	subtotal := SubtotalCents(items)
	discount := 0
	var promoID *int64
	if promo != nil {
		discount = promo.Discount(subtotal)
		promoID = &promo.ID
	}
	total := subtotal - discount

	o := Order{
		UserID:          in.UserID,
		SubtotalCents:   subtotal,
		DiscountCents:   discount,
		TotalCents:      total,
		Status:          StatusCreated,
		PaymentStatus:   PaymentPending,
		DeliveryAddress: in.Delivery.Address,
		PickupPoint:     in.Delivery.PickupPoint,
		PostalCode:      in.Delivery.PostalCode,
		PromoCodeID:     promoID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	const maxNumberAttempts = 5
	for attempt := 0; ; attempt++ {
		o.OrderNumber = NewOrderNumber(now)
		sp, err := tx.Begin(ctx) // savepoint
		if err != nil {
			return Order{}, fmt.Errorf("%w: savepoint: %v", ErrPersistence, err)
		}
		err = sp.QueryRow(ctx, `
			INSERT INTO orders (order_number, user_id, subtotal_cents, discount_cents, total_cents,
			                    status, payment_status, delivery_address, pickup_point, postal_code,
			                    promo_code_id, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
			RETURNING id`,
			o.OrderNumber, o.UserID, o.SubtotalCents, o.DiscountCents, o.TotalCents,
			o.Status, o.PaymentStatus, o.DeliveryAddress, o.PickupPoint, o.PostalCode,
			o.PromoCodeID, now,
		).Scan(&o.ID)
		if err == nil {
			if err := sp.Commit(ctx); err != nil {
				return Order{}, fmt.Errorf("%w: release savepoint: %v", ErrPersistence, err)
			}
			break
		}
		_ = sp.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && attempt < maxNumberAttempts {
			continue
		}
		return Order{}, fmt.Errorf("%w: insert order: %v", ErrPersistence, err)
	}

	for _, it := range items {
		oi := OrderItem{
			OrderID:     o.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Size:        it.Size,
			Quantity:    it.Quantity,
			PriceCents:  it.PriceCents,
			IsPreorder:  it.IsPreorder,
			Wave:        it.Wave,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, size, quantity, price_cents, is_preorder, wave)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id`,
			oi.OrderID, oi.ProductID, oi.Size, oi.Quantity, oi.PriceCents, oi.IsPreorder, oi.Wave,
		).Scan(&oi.ID)
		if err != nil {
			return Order{}, fmt.Errorf("%w: insert order item: %v", ErrPersistence, err)
		}
		o.Items = append(o.Items, oi)
	}
	return o, nil
}

// applyMutations commits the plan's counter changes. The stock update is
// guarded against underflow even though the rows are locked: zero rows
// affected means a writer raced past validation, and the call must fail.
func applyMutations(ctx context.Context, tx pgx.Tx, plan *Plan, now time.Time) error {
	for id, mut := range plan.Products {
		if mut.OkiDec > 0 || mut.BigDec > 0 {
			ct, err := tx.Exec(ctx, `
				UPDATE products
				SET oki_quantity = oki_quantity - $2, big_quantity = big_quantity - $3, updated_at = $4
				WHERE id = $1 AND oki_quantity >= $2 AND big_quantity >= $3`,
				id, mut.OkiDec, mut.BigDec, now)
			if err != nil {
				return fmt.Errorf("%w: stock update for product %d: %v", ErrPersistence, id, err)
			}
			if ct.RowsAffected() != 1 {
				return fmt.Errorf("%w: stock changed underneath product %d", ErrConflict, id)
			}
		}
		if mut.WaveNext != nil {
			next := *mut.WaveNext
			_, err := tx.Exec(ctx, `
				UPDATE products
				SET order_type = $2, current_wave = $3, current_wave_fill = $4, updated_at = $5
				WHERE id = $1`,
				id, next.Mode(), next.Wave, next.Fill, now)
			if err != nil {
				return fmt.Errorf("%w: wave update for product %d: %v", ErrPersistence, id, err)
			}
		}
	}
	return nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY article`)
	if err != nil {
		return nil, fmt.Errorf("%w: list products: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Article, &p.Name, &p.PriceCents, &p.OkiQuantity, &p.BigQuantity,
			&p.Mode, &p.TotalWaves, &p.WaveCapacity, &p.CurrentWave, &p.CurrentFill,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan product: %v", ErrPersistence, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
