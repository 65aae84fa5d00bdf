package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

// ChatService handles buyer/seller conversations.
type ChatService struct {
	store repository.Store
	now   func() time.Time
}

func NewChatService(store repository.Store) *ChatService {
	return &ChatService{store: store, now: time.Now}
}

// ResolveConversation returns the conversation between userID and otherID,
// creating it on first use.
func (s *ChatService) ResolveConversation(ctx context.Context, userID, otherID string) (*entity.Conversation, bool, error) {
	if otherID == "" {
		return nil, false, ErrValidation("participant is required")
	}
	if otherID == userID {
		return nil, false, ErrValidation("cannot start a conversation with yourself")
	}
	if _, err := s.store.Users().Get(ctx, otherID); err != nil {
		return nil, false, notFoundOr(err, "participant not found", "load participant")
	}

	conv, created, err := s.store.Conversations().FindOrCreate(ctx, userID, otherID, s.now())
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve conversation: %w", err)
	}
	return conv, created, nil
}

// ListConversations returns the user's conversations, most recently active first.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]entity.Conversation, error) {
	convs, err := s.store.Conversations().ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if convs == nil {
		convs = []entity.Conversation{}
	}
	return convs, nil
}

// participantConversation loads a conversation the user takes part in.
// Conversations of other users are reported as not found.
func participantConversation(ctx context.Context, store repository.Store, userID, conversationID string) (*entity.Conversation, error) {
	conv, err := store.Conversations().Get(ctx, conversationID)
	if err != nil {
		return nil, notFoundOr(err, "conversation not found", "load conversation")
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotFound("conversation not found")
	}
	return conv, nil
}

// ListMessages returns the conversation's messages oldest first and marks
// everything addressed to the user as read. It reports how many messages
// were newly marked.
func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID string) ([]entity.ChatMessage, int, error) {
	conv, err := participantConversation(ctx, s.store, userID, conversationID)
	if err != nil {
		return nil, 0, err
	}

	msgs, err := s.store.Messages().ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	if msgs == nil {
		msgs = []entity.ChatMessage{}
	}

	now := s.now()
	marked, err := s.store.Messages().MarkRead(ctx, conv.ID, userID, now)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	for i := range msgs {
		if msgs[i].ReceiverID == userID && msgs[i].ReadAt == nil {
			msgs[i].ReadAt = &now
		}
	}
	return msgs, marked, nil
}

// OfferInput is a hand-written payment request: a seller offering a font at a price.
type OfferInput struct {
	FontID  string
	OrderID string
	Amount  decimal.Decimal
}

type SendMessageInput struct {
	ConversationID string
	Body           string
	Type           entity.MessageType
	Offer          *OfferInput
}

// Send posts a message to the other participant of the conversation.
func (s *ChatService) Send(ctx context.Context, userID string, in SendMessageInput) (*entity.ChatMessage, error) {
	if in.Type == "" {
		in.Type = entity.MessageText
	}
	in.Body = strings.TrimSpace(in.Body)

	var pr *entity.PaymentRequest
	switch in.Type {
	case entity.MessageText:
		if in.Body == "" {
			return nil, ErrValidation("message is required")
		}
		if in.Offer != nil {
			return nil, ErrValidation("payment details are only allowed on payment requests")
		}
	case entity.MessagePaymentRequest:
		if in.Offer == nil || in.Offer.FontID == "" {
			return nil, ErrValidation("payment request requires a font")
		}
		if in.Offer.OrderID != "" {
			return nil, ErrValidation("payment requests cannot reference an order")
		}
		if !in.Offer.Amount.IsPositive() {
			return nil, ErrValidation("payment request amount must be positive")
		}
	default:
		return nil, ErrValidation("unknown message type")
	}

	conv, err := participantConversation(ctx, s.store, userID, in.ConversationID)
	if err != nil {
		return nil, err
	}
	receiverID := conv.Other(userID)

	if in.Type == entity.MessagePaymentRequest {
		font, err := s.store.Fonts().Get(ctx, in.Offer.FontID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound("font not found")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load font: %w", err)
		}
		if font.SellerID != userID {
			return nil, ErrForbidden("only the font's seller can send a payment request")
		}
		pr = &entity.PaymentRequest{
			FontID: font.ID,
			Amount: in.Offer.Amount,
			Status: entity.PaymentRequestPending,
		}
		if in.Body == "" {
			in.Body = fmt.Sprintf("Offer: %q for $%s", font.Name, in.Offer.Amount.StringFixed(2))
		}
	}

	now := s.now()
	msg := &entity.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       userID,
		ReceiverID:     receiverID,
		Body:           in.Body,
		Type:           in.Type,
		PaymentRequest: pr,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		if err := tx.Conversations().Touch(ctx, conv.ID, now); err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}
