package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/license"
	"github.com/egannguyen/fontmarket/internal/messaging"
	"github.com/egannguyen/fontmarket/internal/repository"
)

// DefaultDownloadTTL is how long a completed order can be downloaded.
const DefaultDownloadTTL = 30 * 24 * time.Hour

const checkoutScope = "checkout"

const confirmationText = "Payment confirmed for your order. You can now download your font."

// errAlreadyCompleted aborts an approval transaction that lost the race.
var errAlreadyCompleted = errors.New("order already completed")

// CheckoutService runs the chat-mediated purchase workflow: checkout creates
// pending orders and payment requests, the seller approves, the buyer gets a license.
type CheckoutService struct {
	store       repository.Store
	publisher   messaging.Publisher
	downloadTTL time.Duration
	now         func() time.Time
}

func NewCheckoutService(store repository.Store, publisher messaging.Publisher, downloadTTL time.Duration) *CheckoutService {
	if downloadTTL <= 0 {
		downloadTTL = DefaultDownloadTTL
	}
	return &CheckoutService{
		store:       store,
		publisher:   publisher,
		downloadTTL: downloadTTL,
		now:         time.Now,
	}
}

type CheckoutResult struct {
	Message         string   `json:"message"`
	ConversationIDs []string `json:"conversationIds"`
	RedirectURL     string   `json:"redirectUrl"`
	OrderIDs        []string `json:"orderIds"`
	Skipped         []string `json:"skipped,omitempty"`
}

// Checkout turns the requested lines into pending orders, one per font, each
// announced to its seller with a payment-request message. Unknown fonts and
// the buyer's own fonts are skipped. The buyer's cart is cleared afterwards.
func (s *CheckoutService) Checkout(ctx context.Context, buyerID string, lines []entity.CheckoutLine, idempotencyKey string) (*CheckoutResult, error) {
	if len(lines) == 0 {
		return nil, ErrValidation("cart is empty")
	}
	cart := entity.NewCart(buyerID)
	for _, l := range lines {
		if l.FontID == "" {
			return nil, ErrValidation("font is required for every item")
		}
		if l.Quantity < 1 {
			return nil, ErrValidation("quantity must be at least 1")
		}
		cart.Add(entity.CartItem{FontID: l.FontID, Quantity: l.Quantity})
	}

	if idempotencyKey != "" {
		rec, err := s.store.Idempotency().Get(ctx, buyerID, checkoutScope, idempotencyKey)
		if err == nil {
			var replay CheckoutResult
			if err := json.Unmarshal(rec.Response, &replay); err != nil {
				return nil, fmt.Errorf("failed to decode stored checkout: %w", err)
			}
			slog.Info("Checkout replayed", "buyer_id", buyerID, "key", idempotencyKey)
			return &replay, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
		}
	}

	if _, err := requireRole(ctx, s.store, buyerID, entity.RoleBuyer, entity.RoleSeller, entity.RoleAdmin); err != nil {
		return nil, err
	}

	slog.Info("Service: Checking out", "buyer_id", buyerID, "lines", len(cart.Lines()))

	result := &CheckoutResult{
		Message:         "Checkout initiated. Please proceed to chat with the seller(s) to complete payment.",
		ConversationIDs: []string{},
		OrderIDs:        []string{},
	}
	seen := make(map[string]bool)
	var firstErr error

	for _, line := range cart.Lines() {
		placed, err := s.placeLine(ctx, buyerID, line)
		if err != nil {
			slog.Error("Checkout line failed", "buyer_id", buyerID, "font_id", line.FontID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			result.Skipped = append(result.Skipped, line.FontID)
			continue
		}
		if placed == nil {
			result.Skipped = append(result.Skipped, line.FontID)
			continue
		}

		result.OrderIDs = append(result.OrderIDs, placed.OrderID)
		if !seen[placed.ConversationID] {
			seen[placed.ConversationID] = true
			result.ConversationIDs = append(result.ConversationIDs, placed.ConversationID)
		}
		publish(ctx, s.publisher, entity.TopicOrdersPlaced, placed.OrderID, *placed)
	}

	if n, err := s.store.Carts().Clear(ctx, buyerID); err != nil {
		slog.Error("Failed to clear cart after checkout", "buyer_id", buyerID, "err", err)
	} else {
		slog.Info("Cart cleared", "buyer_id", buyerID, "lines", n)
	}

	if len(result.OrderIDs) == 0 && firstErr != nil {
		return nil, firstErr
	}

	result.RedirectURL = "/chat"
	if len(result.ConversationIDs) > 0 {
		result.RedirectURL = "/chat?conversationId=" + result.ConversationIDs[0]
	}

	if idempotencyKey != "" {
		s.remember(ctx, buyerID, idempotencyKey, result)
	}
	return result, nil
}

// placeLine writes the order, payment request and conversation activity of
// one line in a single transaction. It returns nil when the line is skipped.
func (s *CheckoutService) placeLine(ctx context.Context, buyerID string, line entity.CheckoutLine) (*entity.OrderPlaced, error) {
	font, err := s.store.Fonts().Get(ctx, line.FontID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && font.Status != entity.FontApproved) {
		slog.Warn("Skipping unknown font during checkout", "buyer_id", buyerID, "font_id", line.FontID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if font.SellerID == buyerID {
		slog.Warn("Skipping own font during checkout", "buyer_id", buyerID, "font_id", font.ID)
		return nil, nil
	}

	now := s.now()
	amount := font.EffectivePrice(now).Mul(decimal.NewFromInt(int64(line.Quantity)))
	order := &entity.Order{
		ID:            uuid.NewString(),
		BuyerID:       buyerID,
		SellerID:      font.SellerID,
		FontID:        font.ID,
		Amount:        amount,
		PaymentMethod: entity.PaymentMethodChat,
		PaymentStatus: entity.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var placed *entity.OrderPlaced
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		conv, _, err := tx.Conversations().FindOrCreate(ctx, buyerID, font.SellerID, now)
		if err != nil {
			return fmt.Errorf("failed to resolve conversation: %w", err)
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		msg := &entity.ChatMessage{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			SenderID:       buyerID,
			ReceiverID:     font.SellerID,
			Body: fmt.Sprintf("I would like to purchase the font %q for $%s. Please provide payment instructions.",
				font.Name, amount.StringFixed(2)),
			Type: entity.MessagePaymentRequest,
			PaymentRequest: &entity.PaymentRequest{
				FontID:  font.ID,
				OrderID: order.ID,
				Amount:  amount,
				Status:  entity.PaymentRequestPending,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return fmt.Errorf("failed to post payment request: %w", err)
		}
		if err := tx.Conversations().Touch(ctx, conv.ID, now); err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}

		placed = &entity.OrderPlaced{
			OrderID:        order.ID,
			BuyerID:        buyerID,
			SellerID:       font.SellerID,
			FontID:         font.ID,
			FontName:       font.Name,
			Amount:         amount,
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			PlacedAt:       now,
		}
		if err := tx.Events().SaveEvents(ctx, order.ID, entity.StreamTypeOrder, 0, []entity.Event{*placed}); err != nil {
			return fmt.Errorf("failed to save OrderPlaced event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (s *CheckoutService) remember(ctx context.Context, buyerID, key string, result *CheckoutResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		slog.Error("Failed to encode checkout for replay", "err", err)
		return
	}
	err = s.store.Idempotency().Save(ctx, &repository.IdempotencyRecord{
		UserID:    buyerID,
		Scope:     checkoutScope,
		Key:       key,
		Response:  payload,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.Warn("Failed to store idempotency key", "buyer_id", buyerID, "key", key, "err", err)
	}
}

type ApprovalResult struct {
	Message          string        `json:"message"`
	AlreadyCompleted bool          `json:"alreadyCompleted"`
	Order            *entity.Order `json:"order"`
}

// Approve confirms payment for a pending order. Only the order's seller may
// approve; approving a completed order changes nothing.
func (s *CheckoutService) Approve(ctx context.Context, sellerID, orderID string) (*ApprovalResult, error) {
	order, err := s.store.Orders().Get(ctx, orderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if err != nil || order.SellerID != sellerID {
		return nil, ErrNotFound("order not found or you are not the seller")
	}
	if order.Completed() {
		return &ApprovalResult{Message: "Order is already completed.", AlreadyCompleted: true, Order: order}, nil
	}

	slog.Info("Service: Approving order", "order_id", order.ID, "seller_id", sellerID)

	now := s.now()
	var completed *entity.OrderCompleted
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		completed, err = s.completeOrder(ctx, tx, order, now)
		if err != nil {
			return err
		}

		conv, err := tx.Conversations().Find(ctx, order.BuyerID, order.SellerID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find conversation: %w", err)
		}
		confirm := &entity.ChatMessage{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			SenderID:       order.SellerID,
			ReceiverID:     order.BuyerID,
			Body:           confirmationText,
			Type:           entity.MessageText,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Messages().Create(ctx, confirm); err != nil {
			return fmt.Errorf("failed to post confirmation: %w", err)
		}
		if err := tx.Conversations().Touch(ctx, conv.ID, now); err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		return nil
	})
	if errors.Is(err, errAlreadyCompleted) {
		current, gerr := s.store.Orders().Get(ctx, order.ID)
		if gerr != nil {
			return nil, fmt.Errorf("failed to reload order: %w", gerr)
		}
		return &ApprovalResult{Message: "Order is already completed.", AlreadyCompleted: true, Order: current}, nil
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, entity.TopicOrdersCompleted, order.ID, *completed)

	current, err := s.store.Orders().Get(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	slog.Info("Order completed", "order_id", order.ID)
	return &ApprovalResult{Message: "Payment approved successfully.", Order: current}, nil
}

// completeOrder moves a pending order to completed inside tx: license fields,
// buyer's purchased set, linked payment request and the order's event stream.
// It returns errAlreadyCompleted when another approval got there first and a
// validation error when the linked payment request was declined.
func (s *CheckoutService) completeOrder(ctx context.Context, tx repository.Store, order *entity.Order, now time.Time) (*entity.OrderCompleted, error) {
	msg, err := tx.Messages().FindPaymentRequestByOrder(ctx, order.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		msg = nil
	case err != nil:
		return nil, fmt.Errorf("failed to find payment request: %w", err)
	case msg.PaymentRequest != nil && msg.PaymentRequest.Status == entity.PaymentRequestCancelled:
		return nil, ErrValidation("payment request was declined")
	}

	font, err := tx.Fonts().Get(ctx, order.FontID)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	buyerName := order.BuyerID
	buyer, err := tx.Users().Get(ctx, order.BuyerID)
	switch {
	case err == nil:
		buyerName = buyer.DisplayName
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}

	text := license.Text(font.SellerName, buyerName, order.ID, now)
	if err := order.Complete(text, license.DownloadURL(order.ID), now.Add(s.downloadTTL), now); err != nil {
		return nil, errAlreadyCompleted
	}

	ok, err := tx.Orders().Complete(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}
	if !ok {
		return nil, errAlreadyCompleted
	}

	records, err := tx.Events().LoadEvents(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	agg := entity.NewOrderAggregate(order.ID)
	if err := agg.Rehydrate(records); err != nil {
		return nil, fmt.Errorf("failed to rehydrate order aggregate: %w", err)
	}

	completed := entity.OrderCompleted{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		SellerID:    order.SellerID,
		FontID:      order.FontID,
		FontName:    font.Name,
		Amount:      order.Amount,
		CompletedAt: now,
	}
	if err := agg.ApplyEvent(completed); errors.Is(err, entity.ErrOrderCompleted) {
		return nil, errAlreadyCompleted
	}
	events := []entity.Event{completed}

	if msg != nil {
		moved, err := tx.Messages().TransitionPaymentStatus(ctx, msg.ID, entity.PaymentRequestPending, entity.PaymentRequestPaid, now)
		if err != nil {
			return nil, fmt.Errorf("failed to mark payment request paid: %w", err)
		}
		if moved {
			events = append(events, entity.PaymentRequestSettled{
				MessageID: msg.ID,
				OrderID:   order.ID,
				Status:    entity.PaymentRequestPaid,
				SettledAt: now,
			})
		}
	}

	if err := tx.Users().AddPurchasedFont(ctx, order.BuyerID, order.FontID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	// The stream version read above guards against a concurrent approval
	// that committed between our conditional update and this append.
	err = tx.Events().SaveEvents(ctx, order.ID, entity.StreamTypeOrder, agg.GetVersion()-1, events)
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil, errAlreadyCompleted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save OrderCompleted event: %w", err)
	}
	return &completed, nil
}

// PaymentAction is a receiver's answer to a payment request.
type PaymentAction string

const (
	PaymentAccept  PaymentAction = "accept"
	PaymentDecline PaymentAction = "decline"
)

type PaymentResponse struct {
	Message          string        `json:"message"`
	AlreadyCompleted bool          `json:"alreadyCompleted,omitempty"`
	Order            *entity.Order `json:"order,omitempty"`
}

// RespondToPaymentRequest accepts or declines a payment request addressed to the user.
func (s *CheckoutService) RespondToPaymentRequest(ctx context.Context, userID, messageID string, action PaymentAction) (*PaymentResponse, error) {
	if action != PaymentAccept && action != PaymentDecline {
		return nil, ErrValidation("invalid action")
	}
	msg, err := s.store.Messages().Get(ctx, messageID)
	if err != nil {
		return nil, notFoundOr(err, "message not found", "load message")
	}
	if msg.Type != entity.MessagePaymentRequest || msg.PaymentRequest == nil {
		return nil, ErrValidation("not a payment request")
	}
	if msg.ReceiverID != userID {
		return nil, ErrForbidden("payment request is not addressed to you")
	}
	if msg.PaymentRequest.Status != entity.PaymentRequestPending {
		return nil, ErrValidation("payment request is no longer pending")
	}

	switch {
	case action == PaymentDecline:
		return s.decline(ctx, msg)
	case msg.PaymentRequest.OrderID != "":
		res, err := s.Approve(ctx, userID, msg.PaymentRequest.OrderID)
		if err != nil {
			return nil, err
		}
		return &PaymentResponse{Message: "Payment accepted and processed", AlreadyCompleted: res.AlreadyCompleted, Order: res.Order}, nil
	default:
		return s.acceptOffer(ctx, msg)
	}
}

func (s *CheckoutService) decline(ctx context.Context, msg *entity.ChatMessage) (*PaymentResponse, error) {
	now := s.now()
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		moved, err := tx.Messages().TransitionPaymentStatus(ctx, msg.ID, entity.PaymentRequestPending, entity.PaymentRequestCancelled, now)
		if err != nil {
			return fmt.Errorf("failed to cancel payment request: %w", err)
		}
		if !moved {
			return ErrValidation("payment request is no longer pending")
		}
		if msg.PaymentRequest.OrderID == "" {
			return nil
		}
		settled := entity.PaymentRequestSettled{
			MessageID: msg.ID,
			OrderID:   msg.PaymentRequest.OrderID,
			Status:    entity.PaymentRequestCancelled,
			SettledAt: now,
		}
		if err := tx.Events().SaveEvents(ctx, msg.PaymentRequest.OrderID, entity.StreamTypeOrder, repository.AnyVersion, []entity.Event{settled}); err != nil {
			return fmt.Errorf("failed to save PaymentRequestSettled event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Payment request declined", "message_id", msg.ID)
	return &PaymentResponse{Message: "Payment declined"}, nil
}

// acceptOffer settles a seller's offer: the receiver buys the font from the
// sender and the order is created already completed.
func (s *CheckoutService) acceptOffer(ctx context.Context, msg *entity.ChatMessage) (*PaymentResponse, error) {
	if _, err := s.store.Fonts().Get(ctx, msg.PaymentRequest.FontID); err != nil {
		return nil, notFoundOr(err, "font not found", "load font")
	}

	now := s.now()
	order := &entity.Order{
		ID:            uuid.NewString(),
		BuyerID:       msg.ReceiverID,
		SellerID:      msg.SenderID,
		FontID:        msg.PaymentRequest.FontID,
		Amount:        msg.PaymentRequest.Amount,
		PaymentMethod: entity.PaymentMethodChatPayment,
		PaymentStatus: entity.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var completed *entity.OrderCompleted
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		moved, err := tx.Messages().TransitionPaymentStatus(ctx, msg.ID, entity.PaymentRequestPending, entity.PaymentRequestPaid, now)
		if err != nil {
			return fmt.Errorf("failed to mark payment request paid: %w", err)
		}
		if !moved {
			return ErrValidation("payment request is no longer pending")
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		placed := entity.OrderPlaced{
			OrderID:        order.ID,
			BuyerID:        order.BuyerID,
			SellerID:       order.SellerID,
			FontID:         order.FontID,
			Amount:         order.Amount,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			PlacedAt:       now,
		}
		if err := tx.Events().SaveEvents(ctx, order.ID, entity.StreamTypeOrder, 0, []entity.Event{placed}); err != nil {
			return fmt.Errorf("failed to save OrderPlaced event: %w", err)
		}

		completed, err = s.completeOrder(ctx, tx, order, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, entity.TopicOrdersCompleted, order.ID, *completed)

	current, err := s.store.Orders().Get(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	slog.Info("Offer accepted", "order_id", order.ID, "message_id", msg.ID)
	return &PaymentResponse{Message: "Payment accepted and processed", Order: current}, nil
}

// OrderView selects which side of the user's orders to list.
type OrderView string

const (
	OrdersPurchases OrderView = "purchases"
	OrdersSales     OrderView = "sales"
	OrdersAll       OrderView = "all"
)

// ListOrders returns the user's orders newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, userID string, view OrderView) ([]entity.Order, error) {
	var filter repository.OrderFilter
	switch view {
	case OrdersPurchases:
		filter.BuyerID = userID
	case OrdersSales:
		filter.SellerID = userID
	case OrdersAll, "":
		filter.Party = userID
	default:
		return nil, ErrValidation("type must be purchases, sales or all")
	}
	orders, err := s.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []entity.Order{}
	}
	return orders, nil
}
