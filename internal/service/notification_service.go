package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

const notificationLimit = 50

const (
	NotifyPaymentRequest   = "payment_request"
	NotifyPurchaseComplete = "purchase_complete"
	NotifyFontApproved     = "font_approved"
	NotifyFontRejected     = "font_rejected"
)

// NotificationService stores in-app notifications and derives them from domain events.
type NotificationService struct {
	store repository.Store
	now   func() time.Time
}

func NewNotificationService(store repository.Store) *NotificationService {
	return &NotificationService{store: store, now: time.Now}
}

// List returns the user's newest notifications.
func (s *NotificationService) List(ctx context.Context, userID string) ([]entity.Notification, error) {
	out, err := s.store.Notifications().ListByUser(ctx, userID, notificationLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if out == nil {
		out = []entity.Notification{}
	}
	return out, nil
}

type NotificationInput struct {
	Type    string
	Title   string
	Message string
	FontID  string
}

func (s *NotificationService) Create(ctx context.Context, userID string, in NotificationInput) (*entity.Notification, error) {
	if in.Type == "" || in.Title == "" {
		return nil, ErrValidation("type and title are required")
	}
	n := &entity.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		FontID:    in.FontID,
		CreatedAt: s.now(),
	}
	if err := s.store.Notifications().Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := s.store.Notifications().MarkRead(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return ErrNotFound("notification not found")
	}
	return nil
}

// HandleOrderPlaced tells the seller a payment request is waiting.
func (s *NotificationService) HandleOrderPlaced(ctx context.Context, payload []byte) error {
	var e entity.OrderPlaced
	if err := json.Unmarshal(payload, &e); err != nil {
		return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
	}
	slog.Info("Notifier: OrderPlaced", "order_id", e.OrderID)
	_, err := s.Create(ctx, e.SellerID, NotificationInput{
		Type:    NotifyPaymentRequest,
		Title:   "New payment request",
		Message: fmt.Sprintf("A buyer wants to purchase %q for $%s.", e.FontName, e.Amount.StringFixed(2)),
		FontID:  e.FontID,
	})
	return err
}

// HandleOrderCompleted tells the buyer the font is ready to download.
func (s *NotificationService) HandleOrderCompleted(ctx context.Context, payload []byte) error {
	var e entity.OrderCompleted
	if err := json.Unmarshal(payload, &e); err != nil {
		return fmt.Errorf("failed to unmarshal OrderCompleted event: %w", err)
	}
	slog.Info("Notifier: OrderCompleted", "order_id", e.OrderID)
	_, err := s.Create(ctx, e.BuyerID, NotificationInput{
		Type:    NotifyPurchaseComplete,
		Title:   "Purchase complete",
		Message: fmt.Sprintf("Your license for %q is ready. You can now download the font.", e.FontName),
		FontID:  e.FontID,
	})
	return err
}

// HandleFontModerated tells the seller the outcome of a review.
func (s *NotificationService) HandleFontModerated(ctx context.Context, payload []byte) error {
	var e entity.FontModerated
	if err := json.Unmarshal(payload, &e); err != nil {
		return fmt.Errorf("failed to unmarshal FontModerated event: %w", err)
	}
	slog.Info("Notifier: FontModerated", "font_id", e.FontID, "status", e.Status)
	in := NotificationInput{
		Type:    NotifyFontApproved,
		Title:   "Font approved",
		Message: fmt.Sprintf("%q is now live in the catalog.", e.FontName),
		FontID:  e.FontID,
	}
	if e.Status == entity.FontRejected {
		in.Type = NotifyFontRejected
		in.Title = "Font rejected"
		in.Message = fmt.Sprintf("%q was not approved.", e.FontName)
	}
	_, err := s.Create(ctx, e.SellerID, in)
	return err
}

// Handlers maps each topic to the handler that consumes it.
func (s *NotificationService) Handlers() map[string]func(ctx context.Context, payload []byte) error {
	return map[string]func(ctx context.Context, payload []byte) error{
		entity.TopicOrdersPlaced:    s.HandleOrderPlaced,
		entity.TopicOrdersCompleted: s.HandleOrderCompleted,
		entity.TopicFontsModerated:  s.HandleFontModerated,
	}
}
