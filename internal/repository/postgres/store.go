package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/egannguyen/fontmarket/internal/repository"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type store struct {
	db *sql.DB
	q  queryer
}

// NewStore creates a repository.Store backed by Postgres.
func NewStore(db *sql.DB) repository.Store {
	return &store{db: db, q: db}
}

func (s *store) Users() repository.UserRepository                 { return &userRepository{q: s.q} }
func (s *store) Fonts() repository.FontRepository                 { return &fontRepository{q: s.q} }
func (s *store) Carts() repository.CartRepository                 { return &cartRepository{q: s.q} }
func (s *store) Conversations() repository.ConversationRepository { return &conversationRepository{q: s.q} }
func (s *store) Messages() repository.MessageRepository           { return &messageRepository{q: s.q} }
func (s *store) Orders() repository.OrderRepository               { return &orderRepository{q: s.q} }
func (s *store) Downloads() repository.DownloadRepository         { return &downloadRepository{q: s.q} }
func (s *store) Notifications() repository.NotificationRepository { return &notificationRepository{q: s.q} }
func (s *store) Sponsorships() repository.SponsorshipRepository   { return &sponsorshipRepository{q: s.q} }
func (s *store) TrialKeys() repository.TrialKeyRepository         { return &trialKeyRepository{q: s.q} }
func (s *store) Idempotency() repository.IdempotencyRepository    { return &idempotencyRepository{q: s.q} }
func (s *store) Events() repository.EventStore                    { return &eventStore{st: s} }

func (s *store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&store{db: s.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// notFound maps sql.ErrNoRows to repository.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// affected reports whether the result touched at least one row.
func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// requireAffected returns repository.ErrNotFound when the result touched no rows.
func requireAffected(res sql.Result) error {
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}
