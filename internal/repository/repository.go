package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/egannguyen/fontmarket/internal/entity"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a uniqueness rule.
	ErrConflict = errors.New("already exists")
	// ErrVersionConflict is returned by SaveEvents when the stream moved on.
	ErrVersionConflict = errors.New("concurrency exception")
)

// AnyVersion skips the optimistic version check in SaveEvents.
const AnyVersion = -1

// FontQuery filters catalog listings.
type FontQuery struct {
	Status   entity.FontStatus
	Search   string
	Category string
	Free     *bool
	Offset   int
	Limit    int
}

// OrderFilter selects orders by party. Empty fields are not applied;
// Party matches either side.
type OrderFilter struct {
	BuyerID  string
	SellerID string
	Party    string
}

// IdempotencyRecord stores the response of a request made with an idempotency key.
type IdempotencyRecord struct {
	UserID    string
	Scope     string
	Key       string
	Response  json.RawMessage
	CreatedAt time.Time
}

// UserRepository handles persistence for users.
type UserRepository interface {
	Get(ctx context.Context, id string) (*entity.User, error)
	Upsert(ctx context.Context, user *entity.User) error
	SetRole(ctx context.Context, id string, role entity.Role) error
	// AddPurchasedFont adds fontID to the purchased set; adding twice is a no-op.
	AddPurchasedFont(ctx context.Context, userID, fontID string) error
	AddToWishlist(ctx context.Context, userID, fontID string) error
	RemoveFromWishlist(ctx context.Context, userID, fontID string) error
}

// FontRepository handles persistence for fonts.
type FontRepository interface {
	Create(ctx context.Context, font *entity.Font) error
	Update(ctx context.Context, font *entity.Font) error
	Get(ctx context.Context, id string) (*entity.Font, error)
	GetMany(ctx context.Context, ids []string) ([]entity.Font, error)
	// Search returns one page of matching fonts, newest first, and the total match count.
	Search(ctx context.Context, q FontQuery) ([]entity.Font, int, error)
	ListBySeller(ctx context.Context, sellerID string) ([]entity.Font, error)
	// ListByStatus returns fonts in the status, oldest first.
	ListByStatus(ctx context.Context, status entity.FontStatus) ([]entity.Font, error)
	// TransitionStatus moves a font from one status to another and reports whether it matched.
	TransitionStatus(ctx context.Context, id string, from, to entity.FontStatus, at time.Time) (bool, error)
	SetSponsorship(ctx context.Context, id string, endDate time.Time) error
	ListSponsored(ctx context.Context, now time.Time) ([]entity.Font, error)
	IncrementDownloads(ctx context.Context, id string) error
	CategoryCounts(ctx context.Context) (map[string]int, error)
}

// CartRepository handles persistence for cart lines.
type CartRepository interface {
	List(ctx context.Context, userID string) ([]entity.CartItem, error)
	// Add inserts a line or increments the quantity of the existing line for the font.
	Add(ctx context.Context, userID, fontID string, quantity int, at time.Time) (*entity.CartItem, error)
	SetQuantity(ctx context.Context, userID, itemID string, quantity int, at time.Time) error
	Remove(ctx context.Context, userID, itemID string) error
	// Clear deletes every line of the user in a single statement.
	Clear(ctx context.Context, userID string) (int, error)
}

// ConversationRepository handles persistence for conversations.
type ConversationRepository interface {
	// FindOrCreate returns the conversation of the unordered pair, creating it if needed.
	FindOrCreate(ctx context.Context, a, b string, at time.Time) (*entity.Conversation, bool, error)
	Find(ctx context.Context, a, b string) (*entity.Conversation, error)
	Get(ctx context.Context, id string) (*entity.Conversation, error)
	// ListByParticipant returns conversations with last message and unread count, most recent first.
	ListByParticipant(ctx context.Context, userID string) ([]entity.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// MessageRepository handles persistence for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *entity.ChatMessage) error
	Get(ctx context.Context, id string) (*entity.ChatMessage, error)
	// ListByConversation returns messages oldest first.
	ListByConversation(ctx context.Context, conversationID string) ([]entity.ChatMessage, error)
	// MarkRead stamps every unread message to receiverID and returns how many changed.
	MarkRead(ctx context.Context, conversationID, receiverID string, at time.Time) (int, error)
	// TransitionPaymentStatus moves a payment request between statuses and reports whether it matched.
	TransitionPaymentStatus(ctx context.Context, id string, from, to entity.PaymentRequestStatus, at time.Time) (bool, error)
	FindPaymentRequestByOrder(ctx context.Context, orderID string) (*entity.ChatMessage, error)
}

// OrderRepository handles persistence for orders.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	Get(ctx context.Context, id string) (*entity.Order, error)
	// Complete writes the completed state of order only if the stored order is
	// still pending, and reports whether it did.
	Complete(ctx context.Context, order *entity.Order) (bool, error)
	// List returns matching orders newest first, with font names.
	List(ctx context.Context, filter OrderFilter) ([]entity.Order, error)
}

// DownloadRepository handles the append-only download history.
type DownloadRepository interface {
	Record(ctx context.Context, rec *entity.DownloadRecord) error
	// ListByOrder returns records newest first.
	ListByOrder(ctx context.Context, orderID string) ([]entity.DownloadRecord, error)
}

// NotificationRepository handles persistence for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.Notification, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
}

// SponsorshipRepository handles persistence for sponsorships.
type SponsorshipRepository interface {
	Create(ctx context.Context, s *entity.Sponsorship) error
}

// TrialKeyRepository handles persistence for trial keys.
type TrialKeyRepository interface {
	// Create returns ErrConflict if the user already holds a key for the font.
	Create(ctx context.Context, key *entity.TrialKey) error
	ListByUser(ctx context.Context, userID string) ([]entity.TrialKey, error)
}

// IdempotencyRepository stores responses keyed by (user, scope, key).
type IdempotencyRepository interface {
	Get(ctx context.Context, userID, scope, key string) (*IdempotencyRecord, error)
	// Save returns ErrConflict if the key was already used.
	Save(ctx context.Context, rec *IdempotencyRecord) error
}

// EventStore handles appending and loading events for an aggregate stream.
type EventStore interface {
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}

// Store groups the repositories over one connection or transaction.
type Store interface {
	Users() UserRepository
	Fonts() FontRepository
	Carts() CartRepository
	Conversations() ConversationRepository
	Messages() MessageRepository
	Orders() OrderRepository
	Downloads() DownloadRepository
	Notifications() NotificationRepository
	Sponsorships() SponsorshipRepository
	TrialKeys() TrialKeyRepository
	Idempotency() IdempotencyRepository
	Events() EventStore

	// WithinTx runs fn against a Store bound to a single transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
