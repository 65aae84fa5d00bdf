package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Conversation is an unordered pair of participants. Participants are
// stored sorted so that the pair has a single canonical form.
type Conversation struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Read-model fields, filled by conversation listings.
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
}

// ParticipantPair returns a and b in canonical order.
func ParticipantPair(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// HasParticipant reports whether userID takes part in the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// MessageType tags a chat message.
type MessageType string

const (
	MessageText           MessageType = "text"
	MessagePaymentRequest MessageType = "payment-request"
)

// PaymentRequestStatus mirrors the lifecycle of the order a payment request refers to.
type PaymentRequestStatus string

const (
	PaymentRequestPending   PaymentRequestStatus = "pending"
	PaymentRequestPaid      PaymentRequestStatus = "paid"
	PaymentRequestCancelled PaymentRequestStatus = "cancelled"
)

// PaymentRequest is the payload of a payment-request message.
type PaymentRequest struct {
	FontID  string               `json:"font_id"`
	OrderID string               `json:"order_id,omitempty"`
	Amount  decimal.Decimal      `json:"amount"`
	Status  PaymentRequestStatus `json:"status"`
}

// ChatMessage belongs to exactly one conversation.
type ChatMessage struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	SenderID       string          `json:"sender_id"`
	ReceiverID     string          `json:"receiver_id"`
	Body           string          `json:"message"`
	Type           MessageType     `json:"message_type"`
	PaymentRequest *PaymentRequest `json:"payment_request,omitempty"`
	ReadAt         *time.Time      `json:"read_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
