// Package cart is the cart collaborator boundary. The engine only consumes a
// snapshot of a user's cart at order-creation time; a cart never reserves
// stock, and it is cleared by the caller after a successful order.
package cart

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dwcshop/order-engine/internal/orders"
)

type Repo struct{ DB *pgxpool.Pool }

// Snapshot returns the user's cart as placement item requests.
func (r *Repo) Snapshot(ctx context.Context, userID int64) ([]orders.ItemRequest, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT ci.product_id, ci.size, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1
		ORDER BY ci.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("cart snapshot: %w", err)
	}
	defer rows.Close()

	var out []orders.ItemRequest
	for rows.Next() {
		var it orders.ItemRequest
		if err := rows.Scan(&it.ProductID, &it.Size, &it.Quantity); err != nil {
			return nil, fmt.Errorf("cart snapshot: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) Clear(ctx context.Context, userID int64) error {
	_, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
