// Package memory is an in-process repository.Store with the same semantics
// as the Postgres store. It backs tests and the memory store driver.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

// table keeps rows by id and remembers insertion order.
type table[T any] struct {
	rows map[string]T
	ids  []string
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = v
}

func (t *table[T]) delete(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	t.ids = slices.DeleteFunc(t.ids, func(s string) bool { return s == id })
}

// newestFirst returns matching rows, most recently inserted first.
func (t *table[T]) newestFirst(match func(T) bool) []T {
	var out []T
	for i := len(t.ids) - 1; i >= 0; i-- {
		v := t.rows[t.ids[i]]
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t table[T]) clone() table[T] {
	return table[T]{rows: maps.Clone(t.rows), ids: slices.Clone(t.ids)}
}

type idemKey struct {
	userID, scope, key string
}

// state holds every table. Row values are never mutated in place; updates
// store a fresh copy so a shallow clone is a valid snapshot.
type state struct {
	users         table[entity.User]
	fonts         table[entity.Font]
	cart          table[entity.CartItem]
	conversations table[entity.Conversation]
	messages      table[entity.ChatMessage]
	orders        table[entity.Order]
	downloads     table[entity.DownloadRecord]
	notifications table[entity.Notification]
	sponsorships  table[entity.Sponsorship]
	trialKeys     table[entity.TrialKey]
	idempotency   map[idemKey]repository.IdempotencyRecord
	events        map[string][]entity.EventStoreRecord
}

func newState() *state {
	return &state{
		users:         newTable[entity.User](),
		fonts:         newTable[entity.Font](),
		cart:          newTable[entity.CartItem](),
		conversations: newTable[entity.Conversation](),
		messages:      newTable[entity.ChatMessage](),
		orders:        newTable[entity.Order](),
		downloads:     newTable[entity.DownloadRecord](),
		notifications: newTable[entity.Notification](),
		sponsorships:  newTable[entity.Sponsorship](),
		trialKeys:     newTable[entity.TrialKey](),
		idempotency:   make(map[idemKey]repository.IdempotencyRecord),
		events:        make(map[string][]entity.EventStoreRecord),
	}
}

func (s *state) snapshot() *state {
	return &state{
		users:         s.users.clone(),
		fonts:         s.fonts.clone(),
		cart:          s.cart.clone(),
		conversations: s.conversations.clone(),
		messages:      s.messages.clone(),
		orders:        s.orders.clone(),
		downloads:     s.downloads.clone(),
		notifications: s.notifications.clone(),
		sponsorships:  s.sponsorships.clone(),
		trialKeys:     s.trialKeys.clone(),
		idempotency:   maps.Clone(s.idempotency),
		events:        maps.Clone(s.events),
	}
}

// db is shared by the root store and every transaction-bound store.
type db struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *state
}

// Store implements repository.Store in memory.
type Store struct {
	db   *db
	inTx bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{db: &db{st: newState()}}
}

// read runs fn under the read lock.
func (s *Store) read(fn func(st *state)) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	fn(s.db.st)
}

// write runs fn under the write lock. Outside a transaction it also
// serializes with running transactions so their rollback cannot drop it.
func (s *Store) write(fn func(st *state) error) error {
	if !s.inTx {
		s.db.txMu.Lock()
		defer s.db.txMu.Unlock()
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.st)
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	saved := s.db.st.snapshot()
	s.db.mu.RUnlock()

	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		s.db.mu.Lock()
		s.db.st = saved
		s.db.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Users() repository.UserRepository                 { return &userRepository{s} }
func (s *Store) Fonts() repository.FontRepository                 { return &fontRepository{s} }
func (s *Store) Carts() repository.CartRepository                 { return &cartRepository{s} }
func (s *Store) Conversations() repository.ConversationRepository { return &conversationRepository{s} }
func (s *Store) Messages() repository.MessageRepository           { return &messageRepository{s} }
func (s *Store) Orders() repository.OrderRepository               { return &orderRepository{s} }
func (s *Store) Downloads() repository.DownloadRepository         { return &downloadRepository{s} }
func (s *Store) Notifications() repository.NotificationRepository { return &notificationRepository{s} }
func (s *Store) Sponsorships() repository.SponsorshipRepository   { return &sponsorshipRepository{s} }
func (s *Store) TrialKeys() repository.TrialKeyRepository         { return &trialKeyRepository{s} }
func (s *Store) Idempotency() repository.IdempotencyRepository    { return &idempotencyRepository{s} }
func (s *Store) Events() repository.EventStore                    { return &eventStore{s} }

var _ repository.Store = (*Store)(nil)
