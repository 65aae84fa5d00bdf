package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

const eventColumns = "id, stream_id, stream_type, version, event_type, payload, created_at"

// eventStore appends order lifecycle events to the events table. The
// (stream_id, version) unique key backs the optimistic concurrency check.
type eventStore struct {
	st *store
}

func (s *eventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	return s.st.WithinTx(ctx, func(tx repository.Store) error {
		return appendStream(ctx, tx.(*store).q, streamID, streamType, expectedVersion, events)
	})
}

func streamVersion(ctx context.Context, q queryer, streamID string) (int, error) {
	var version int
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1`, streamID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read version of stream %s: %w", streamID, err)
	}
	return version, nil
}

// appendStream writes the whole batch with a single multi-row INSERT.
func appendStream(ctx context.Context, q queryer, streamID, streamType string, expectedVersion int, events []entity.Event) error {
	current, err := streamVersion(ctx, q, streamID)
	if err != nil {
		return err
	}
	if expectedVersion != repository.AnyVersion && current != expectedVersion {
		return fmt.Errorf("%w: stream %s is at version %d, expected %d", repository.ErrVersionConflict, streamID, current, expectedVersion)
	}

	const width = 7
	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events)*width)
	createdAt := time.Now().UTC()

	for i, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", ev.EventType(), err)
		}
		base := i * width
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, uuid.NewString(), streamID, streamType, current+i+1, ev.EventType(), payload, createdAt)
	}

	query := "INSERT INTO events (" + eventColumns + ") VALUES " + strings.Join(placeholders, ", ")
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: stream %s advanced past version %d", repository.ErrVersionConflict, streamID, current)
		}
		return fmt.Errorf("failed to append %d events to stream %s: %w", len(events), streamID, err)
	}
	return nil
}

func (s *eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	rows, err := s.st.q.QueryContext(ctx, "SELECT "+eventColumns+" FROM events WHERE stream_id = $1 ORDER BY version", streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stream %s: %w", streamID, err)
	}
	defer rows.Close()

	var records []entity.EventStoreRecord
	for rows.Next() {
		var r entity.EventStoreRecord
		if err := rows.Scan(&r.ID, &r.StreamID, &r.StreamType, &r.Version, &r.EventType, &r.Payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event of stream %s: %w", streamID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
