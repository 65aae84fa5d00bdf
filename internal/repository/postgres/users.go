package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/egannguyen/fontmarket/internal/entity"
)

type userRepository struct {
	q queryer
}

func (r *userRepository) Get(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	var wishlist, purchased pq.StringArray
	err := r.q.QueryRowContext(ctx,
		"SELECT id, email, display_name, role, wishlist, purchased_fonts, created_at, updated_at FROM users WHERE id = $1",
		id,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &wishlist, &purchased, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	u.Wishlist = []string(wishlist)
	u.PurchasedFonts = []string(purchased)
	return &u, nil
}

func (r *userRepository) Upsert(ctx context.Context, u *entity.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at`,
		u.ID, u.Email, u.DisplayName, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *userRepository) SetRole(ctx context.Context, id string, role entity.Role) error {
	res, err := r.q.ExecContext(ctx, "UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2", role, id)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return requireAffected(res)
}

func (r *userRepository) AddPurchasedFont(ctx context.Context, userID, fontID string) error {
	return r.addToSet(ctx, "purchased_fonts", userID, fontID)
}

func (r *userRepository) AddToWishlist(ctx context.Context, userID, fontID string) error {
	return r.addToSet(ctx, "wishlist", userID, fontID)
}

func (r *userRepository) RemoveFromWishlist(ctx context.Context, userID, fontID string) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE users SET wishlist = array_remove(wishlist, $1), updated_at = NOW() WHERE id = $2",
		fontID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update wishlist: %w", err)
	}
	return requireAffected(res)
}

// addToSet appends value to a TEXT[] column unless it is already present.
// column is always a constant from this file.
func (r *userRepository) addToSet(ctx context.Context, column, userID, value string) error {
	query := fmt.Sprintf(`
		UPDATE users SET %[1]s = CASE WHEN $1 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $1) END,
			updated_at = NOW()
		WHERE id = $2`, column)
	res, err := r.q.ExecContext(ctx, query, value, userID)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return requireAffected(res)
}
