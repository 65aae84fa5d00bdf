package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/fontmarket/internal/entity"
)

type cartRepository struct {
	q queryer
}

func (r *cartRepository) List(ctx context.Context, userID string) ([]entity.CartItem, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, user_id, font_id, quantity, added_at, updated_at FROM cart_items WHERE user_id = $1 ORDER BY added_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	var items []entity.CartItem
	for rows.Next() {
		var it entity.CartItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.FontID, &it.Quantity, &it.AddedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *cartRepository) Add(ctx context.Context, userID, fontID string, quantity int, at time.Time) (*entity.CartItem, error) {
	var it entity.CartItem
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO cart_items (id, user_id, font_id, quantity, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, font_id) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, font_id, quantity, added_at, updated_at`,
		uuid.NewString(), userID, fontID, quantity, at,
	).Scan(&it.ID, &it.UserID, &it.FontID, &it.Quantity, &it.AddedAt, &it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return &it, nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, itemID string, quantity int, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1, updated_at = $2 WHERE id = $3 AND user_id = $4",
		quantity, at, itemID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return requireAffected(res)
}

func (r *cartRepository) Remove(ctx context.Context, userID, itemID string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return requireAffected(res)
}

func (r *cartRepository) Clear(ctx context.Context, userID string) (int, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}
