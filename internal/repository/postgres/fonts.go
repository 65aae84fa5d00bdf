package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

const fontColumns = `id, seller_id, seller_name, name, description, category, price, is_free,
	promo_kind, promo_price, promo_ends_at, tags, languages, status, sponsored, sponsor_end_date,
	rating, downloads, files, created_at, updated_at`

type fontRepository struct {
	q queryer
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFont(row rowScanner) (*entity.Font, error) {
	var (
		f          entity.Font
		promoKind  sql.NullString
		promoPrice decimal.NullDecimal
		promoEnds  sql.NullTime
		tags, langs pq.StringArray
		sponsorEnd sql.NullTime
		files      []byte
	)
	err := row.Scan(&f.ID, &f.SellerID, &f.SellerName, &f.Name, &f.Description, &f.Category, &f.Price, &f.IsFree,
		&promoKind, &promoPrice, &promoEnds, &tags, &langs, &f.Status, &f.Sponsored, &sponsorEnd,
		&f.Rating, &f.Downloads, &files, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if promoKind.Valid && promoEnds.Valid {
		f.Promotion = &entity.Promotion{
			Kind:   entity.PromotionKind(promoKind.String),
			Price:  promoPrice.Decimal,
			EndsAt: promoEnds.Time,
		}
	}
	if sponsorEnd.Valid {
		t := sponsorEnd.Time
		f.SponsorEndDate = &t
	}
	f.Tags = []string(tags)
	f.Languages = []string(langs)
	if err := json.Unmarshal(files, &f.Files); err != nil {
		return nil, fmt.Errorf("failed to decode font files: %w", err)
	}
	return &f, nil
}

func scanFonts(rows *sql.Rows) ([]entity.Font, error) {
	defer rows.Close()

	var fonts []entity.Font
	for rows.Next() {
		f, err := scanFont(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan font: %w", err)
		}
		fonts = append(fonts, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating font rows: %w", err)
	}
	return fonts, nil
}

// promoArgs flattens an optional promotion into nullable column values.
func promoArgs(p *entity.Promotion) (any, any, any) {
	if p == nil {
		return nil, nil, nil
	}
	return string(p.Kind), p.Price, p.EndsAt
}

func (r *fontRepository) Create(ctx context.Context, f *entity.Font) error {
	files, err := json.Marshal(f.Files)
	if err != nil {
		return fmt.Errorf("failed to encode font files: %w", err)
	}
	kind, price, ends := promoArgs(f.Promotion)

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO fonts (id, seller_id, seller_name, name, description, category, price, is_free,
			promo_kind, promo_price, promo_ends_at, tags, languages, status, sponsored, sponsor_end_date,
			rating, downloads, files, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		f.ID, f.SellerID, f.SellerName, f.Name, f.Description, f.Category, f.Price, f.IsFree,
		kind, price, ends, pq.StringArray(f.Tags), pq.StringArray(f.Languages), f.Status, f.Sponsored, f.SponsorEndDate,
		f.Rating, f.Downloads, files, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert font: %w", err)
	}
	return nil
}

func (r *fontRepository) Update(ctx context.Context, f *entity.Font) error {
	files, err := json.Marshal(f.Files)
	if err != nil {
		return fmt.Errorf("failed to encode font files: %w", err)
	}
	kind, price, ends := promoArgs(f.Promotion)

	res, err := r.q.ExecContext(ctx, `
		UPDATE fonts SET name = $2, description = $3, category = $4, price = $5, is_free = $6,
			promo_kind = $7, promo_price = $8, promo_ends_at = $9, tags = $10, languages = $11,
			status = $12, files = $13, updated_at = $14
		WHERE id = $1`,
		f.ID, f.Name, f.Description, f.Category, f.Price, f.IsFree,
		kind, price, ends, pq.StringArray(f.Tags), pq.StringArray(f.Languages),
		f.Status, files, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update font: %w", err)
	}
	return requireAffected(res)
}

func (r *fontRepository) Get(ctx context.Context, id string) (*entity.Font, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+fontColumns+" FROM fonts WHERE id = $1", id)
	f, err := scanFont(row)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

func (r *fontRepository) GetMany(ctx context.Context, ids []string) ([]entity.Font, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.QueryContext(ctx, "SELECT "+fontColumns+" FROM fonts WHERE id = ANY($1) ORDER BY created_at DESC", pq.StringArray(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query fonts: %w", err)
	}
	return scanFonts(rows)
}

func (r *fontRepository) Search(ctx context.Context, q repository.FontQuery) ([]entity.Font, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Status != "" {
		where = append(where, "status = "+arg(q.Status))
	}
	if q.Category != "" {
		where = append(where, "category = "+arg(q.Category))
	}
	if q.Free != nil {
		where = append(where, "is_free = "+arg(*q.Free))
	}
	if q.Search != "" {
		p := arg("%" + escapeLike(q.Search) + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR description ILIKE %[1]s OR EXISTS (SELECT 1 FROM unnest(tags) AS t(tag) WHERE t.tag ILIKE %[1]s))", p))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM fonts"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count fonts: %w", err)
	}

	query := "SELECT " + fontColumns + " FROM fonts" + clause +
		" ORDER BY created_at DESC LIMIT " + arg(q.Limit) + " OFFSET " + arg(q.Offset)
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query fonts: %w", err)
	}
	fonts, err := scanFonts(rows)
	if err != nil {
		return nil, 0, err
	}
	return fonts, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *fontRepository) ListBySeller(ctx context.Context, sellerID string) ([]entity.Font, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+fontColumns+" FROM fonts WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seller fonts: %w", err)
	}
	return scanFonts(rows)
}

func (r *fontRepository) ListByStatus(ctx context.Context, status entity.FontStatus) ([]entity.Font, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+fontColumns+" FROM fonts WHERE status = $1 ORDER BY created_at ASC", status)
	if err != nil {
		return nil, fmt.Errorf("failed to query fonts by status: %w", err)
	}
	return scanFonts(rows)
}

func (r *fontRepository) TransitionStatus(ctx context.Context, id string, from, to entity.FontStatus, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE fonts SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		to, at, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update font status: %w", err)
	}
	return affected(res)
}

func (r *fontRepository) SetSponsorship(ctx context.Context, id string, endDate time.Time) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE fonts SET sponsored = TRUE, sponsor_end_date = $1, updated_at = NOW() WHERE id = $2",
		endDate, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set sponsorship: %w", err)
	}
	return requireAffected(res)
}

func (r *fontRepository) ListSponsored(ctx context.Context, now time.Time) ([]entity.Font, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+fontColumns+" FROM fonts WHERE sponsored AND status = $1 AND sponsor_end_date > $2 ORDER BY sponsor_end_date DESC",
		entity.FontApproved, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sponsored fonts: %w", err)
	}
	return scanFonts(rows)
}

func (r *fontRepository) IncrementDownloads(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, "UPDATE fonts SET downloads = downloads + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment downloads: %w", err)
	}
	return requireAffected(res)
}

func (r *fontRepository) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT category, COUNT(*) FROM fonts WHERE status = $1 GROUP BY category", entity.FontApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[category] = n
	}
	return counts, rows.Err()
}
