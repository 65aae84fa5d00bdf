package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

const orderColumns = `o.id, o.buyer_id, o.seller_id, o.font_id, COALESCE(f.name, ''), o.amount, o.payment_method,
	o.payment_status, o.license_generated, o.license_text, o.download_url, o.download_expiry, o.created_at, o.updated_at`

type orderRepository struct {
	q queryer
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	var (
		o      entity.Order
		expiry sql.NullTime
	)
	err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.FontID, &o.FontName, &o.Amount, &o.PaymentMethod,
		&o.PaymentStatus, &o.LicenseGenerated, &o.LicenseText, &o.DownloadURL, &expiry, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		t := expiry.Time
		o.DownloadExpiry = &t
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, o *entity.Order) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, seller_id, font_id, amount, payment_method, payment_status,
			license_generated, license_text, download_url, download_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, o.BuyerID, o.SellerID, o.FontID, o.Amount, o.PaymentMethod, o.PaymentStatus,
		o.LicenseGenerated, o.LicenseText, o.DownloadURL, o.DownloadExpiry, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*entity.Order, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders o LEFT JOIN fonts f ON f.id = o.font_id WHERE o.id = $1",
		id,
	)
	o, err := scanOrder(row)
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (r *orderRepository) Complete(ctx context.Context, o *entity.Order) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders SET payment_status = $1, license_generated = $2, license_text = $3,
			download_url = $4, download_expiry = $5, updated_at = $6
		WHERE id = $7 AND payment_status = $8`,
		entity.PaymentCompleted, o.LicenseGenerated, o.LicenseText,
		o.DownloadURL, o.DownloadExpiry, o.UpdatedAt,
		o.ID, entity.PaymentPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete order: %w", err)
	}
	return affected(res)
}

func (r *orderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]entity.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.BuyerID != "" {
		args = append(args, filter.BuyerID)
		where = append(where, fmt.Sprintf("o.buyer_id = $%d", len(args)))
	}
	if filter.SellerID != "" {
		args = append(args, filter.SellerID)
		where = append(where, fmt.Sprintf("o.seller_id = $%d", len(args)))
	}
	if filter.Party != "" {
		args = append(args, filter.Party)
		where = append(where, fmt.Sprintf("(o.buyer_id = $%[1]d OR o.seller_id = $%[1]d)", len(args)))
	}

	query := "SELECT " + orderColumns + " FROM orders o LEFT JOIN fonts f ON f.id = o.font_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
