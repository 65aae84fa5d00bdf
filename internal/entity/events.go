package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Broker topics the service publishes to.
const (
	TopicOrdersPlaced    = "orders.placed"
	TopicOrdersCompleted = "orders.completed"
	TopicFontsModerated  = "fonts.moderated"
)

// StreamTypeOrder is the stream type of order event streams.
const StreamTypeOrder = "order"

// Event is a domain event. EventType names it in a stream and on the broker.
type Event interface {
	EventType() string
}

// EventStoreRecord is one persisted event of a stream. Versions start at 1.
type EventStoreRecord struct {
	ID         string    `json:"id"`
	StreamID   string    `json:"stream_id"`
	StreamType string    `json:"stream_type"`
	Version    int       `json:"version"`
	EventType  string    `json:"event_type"`
	Payload    []byte    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderPlaced is emitted when checkout creates a pending order.
type OrderPlaced struct {
	OrderID        string          `json:"order_id"`
	BuyerID        string          `json:"buyer_id"`
	SellerID       string          `json:"seller_id"`
	FontID         string          `json:"font_id"`
	FontName       string          `json:"font_name"`
	Amount         decimal.Decimal `json:"amount"`
	ConversationID string          `json:"conversation_id"`
	MessageID      string          `json:"message_id"`
	PlacedAt       time.Time       `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderCompleted is emitted when payment is confirmed and a license issued.
type OrderCompleted struct {
	OrderID     string          `json:"order_id"`
	BuyerID     string          `json:"buyer_id"`
	SellerID    string          `json:"seller_id"`
	FontID      string          `json:"font_id"`
	FontName    string          `json:"font_name"`
	Amount      decimal.Decimal `json:"amount"`
	CompletedAt time.Time       `json:"completed_at"`
}

func (e OrderCompleted) EventType() string { return "OrderCompleted" }

// PaymentRequestSettled is emitted when a payment-request message leaves pending.
type PaymentRequestSettled struct {
	MessageID string               `json:"message_id"`
	OrderID   string               `json:"order_id,omitempty"`
	Status    PaymentRequestStatus `json:"status"`
	SettledAt time.Time            `json:"settled_at"`
}

func (e PaymentRequestSettled) EventType() string { return "PaymentRequestSettled" }

// FontModerated is emitted when an admin approves or rejects a font.
type FontModerated struct {
	FontID      string     `json:"font_id"`
	FontName    string     `json:"font_name"`
	SellerID    string     `json:"seller_id"`
	Status      FontStatus `json:"status"`
	ModeratedAt time.Time  `json:"moderated_at"`
}

func (e FontModerated) EventType() string { return "FontModerated" }
