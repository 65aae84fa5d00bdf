package postgres

import (
	"context"
	"fmt"

	"github.com/egannguyen/fontmarket/internal/entity"
)

type downloadRepository struct {
	q queryer
}

func (r *downloadRepository) Record(ctx context.Context, rec *entity.DownloadRecord) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO download_history (id, order_id, user_id, font_id, remote_addr, downloaded_at) VALUES ($1, $2, $3, $4, $5, $6)",
		rec.ID, rec.OrderID, rec.UserID, rec.FontID, rec.RemoteAddr, rec.DownloadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

func (r *downloadRepository) ListByOrder(ctx context.Context, orderID string) ([]entity.DownloadRecord, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, order_id, user_id, font_id, remote_addr, downloaded_at FROM download_history WHERE order_id = $1 ORDER BY downloaded_at DESC",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query download history: %w", err)
	}
	defer rows.Close()

	var recs []entity.DownloadRecord
	for rows.Next() {
		var rec entity.DownloadRecord
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.UserID, &rec.FontID, &rec.RemoteAddr, &rec.DownloadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
