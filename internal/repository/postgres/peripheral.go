package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

type notificationRepository struct {
	q queryer
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	var fontID any
	if n.FontID != "" {
		fontID = n.FontID
	}
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO notifications (id, user_id, type, title, message, font_id, read, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		n.ID, n.UserID, n.Type, n.Title, n.Message, fontID, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entity.Notification, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, user_id, type, title, message, font_id, read, created_at FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []entity.Notification
	for rows.Next() {
		var (
			n      entity.Notification
			fontID sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &fontID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.FontID = fontID.String
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.q.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return affected(res)
}

type sponsorshipRepository struct {
	q queryer
}

func (r *sponsorshipRepository) Create(ctx context.Context, s *entity.Sponsorship) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sponsorships (id, font_id, seller_id, amount, duration_days, start_date, end_date, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.FontID, s.SellerID, s.Amount, s.DurationDays, s.StartDate, s.EndDate, s.Active, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sponsorship: %w", err)
	}
	return nil
}

type trialKeyRepository struct {
	q queryer
}

func (r *trialKeyRepository) Create(ctx context.Context, k *entity.TrialKey) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO trial_keys (id, font_id, user_id, key, expires_at, usage_count, max_usage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		k.ID, k.FontID, k.UserID, k.Key, k.ExpiresAt, k.UsageCount, k.MaxUsage, k.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert trial key: %w", err)
	}
	return nil
}

func (r *trialKeyRepository) ListByUser(ctx context.Context, userID string) ([]entity.TrialKey, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT k.id, k.font_id, COALESCE(f.name, ''), k.user_id, k.key, k.expires_at, k.usage_count, k.max_usage, k.created_at
		FROM trial_keys k JOIN fonts f ON f.id = k.font_id
		WHERE k.user_id = $1
		ORDER BY k.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trial keys: %w", err)
	}
	defer rows.Close()

	var keys []entity.TrialKey
	for rows.Next() {
		var k entity.TrialKey
		if err := rows.Scan(&k.ID, &k.FontID, &k.FontName, &k.UserID, &k.Key, &k.ExpiresAt, &k.UsageCount, &k.MaxUsage, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trial key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type idempotencyRepository struct {
	q queryer
}

func (r *idempotencyRepository) Get(ctx context.Context, userID, scope, key string) (*repository.IdempotencyRecord, error) {
	var rec repository.IdempotencyRecord
	err := r.q.QueryRowContext(ctx,
		"SELECT user_id, scope, key, response, created_at FROM idempotency_keys WHERE user_id = $1 AND scope = $2 AND key = $3",
		userID, scope, key,
	).Scan(&rec.UserID, &rec.Scope, &rec.Key, &rec.Response, &rec.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (r *idempotencyRepository) Save(ctx context.Context, rec *repository.IdempotencyRecord) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO idempotency_keys (user_id, scope, key, response, created_at) VALUES ($1, $2, $3, $4, $5)",
		rec.UserID, rec.Scope, rec.Key, []byte(rec.Response), rec.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to save idempotency key: %w", err)
	}
	return nil
}
