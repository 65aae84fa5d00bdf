package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository/memory"
	"github.com/egannguyen/fontmarket/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type published struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.topic)
	}
	return out
}

type WorkflowSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *memory.Store
	pub   *recordingPublisher
	files *storage.Local

	users     *UserService
	catalog   *CatalogService
	carts     *CartService
	chat      *ChatService
	checkout  *CheckoutService
	downloads *DownloadService
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = memory.NewStore()
	s.pub = &recordingPublisher{}

	files, err := storage.NewLocal(s.T().TempDir())
	s.Require().NoError(err)
	s.files = files

	clock := func() time.Time { return s.now }
	s.users = NewUserService(s.store)
	s.catalog = NewCatalogService(s.store, s.pub)
	s.catalog.now = clock
	s.carts = NewCartService(s.store)
	s.chat = NewChatService(s.store)
	s.chat.now = clock
	s.checkout = NewCheckoutService(s.store, s.pub, DefaultDownloadTTL)
	s.checkout.now = clock
	s.downloads = NewDownloadService(s.store, files)
	s.downloads.now = clock

	s.addUser("seller", "Type Foundry", entity.RoleSeller)
	s.addUser("seller2", "Second Foundry", entity.RoleSeller)
	s.addUser("buyer", "Ada Lovelace", entity.RoleBuyer)
	s.addUser("admin", "Moderator", entity.RoleAdmin)

	s.addFont("font-1", "seller", "Harbor Sans", decimal.NewFromInt(25), entity.FontApproved)
	s.addFont("font-2", "seller2", "Quill Serif", decimal.NewFromInt(40), entity.FontApproved)
	s.addFont("font-pending", "seller", "Draft Grotesk", decimal.NewFromInt(10), entity.FontPending)
}

func (s *WorkflowSuite) addUser(id, name string, role entity.Role) {
	s.Require().NoError(s.store.Users().Upsert(s.ctx, &entity.User{
		ID: id, Email: id + "@example.com", DisplayName: name, Role: role, CreatedAt: s.now, UpdatedAt: s.now,
	}))
}

func (s *WorkflowSuite) addFont(id, sellerID, name string, price decimal.Decimal, status entity.FontStatus) {
	locator := "fonts/" + id + ".ttf"
	s.Require().NoError(s.files.Put(s.ctx, locator, strings.NewReader("glyphs of "+name)))
	seller, err := s.store.Users().Get(s.ctx, sellerID)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Fonts().Create(s.ctx, &entity.Font{
		ID: id, SellerID: sellerID, SellerName: seller.DisplayName, Name: name, Category: "sans-serif",
		Price: price, Status: status,
		Files:     []entity.FontFile{{Format: "ttf", Locator: locator}},
		CreatedAt: s.now, UpdatedAt: s.now,
	}))
}

func (s *WorkflowSuite) placeOrder(fontID string) string {
	res, err := s.checkout.Checkout(s.ctx, "buyer", []entity.CheckoutLine{{FontID: fontID, Quantity: 1}}, "")
	s.Require().NoError(err)
	s.Require().Len(res.OrderIDs, 1)
	return res.OrderIDs[0]
}

func (s *WorkflowSuite) paymentRequestFor(orderID string) *entity.ChatMessage {
	msg, err := s.store.Messages().FindPaymentRequestByOrder(s.ctx, orderID)
	s.Require().NoError(err)
	return msg
}

func (s *WorkflowSuite) TestCheckoutCreatesOrdersAndPaymentRequests() {
	_, err := s.carts.Add(s.ctx, "buyer", "font-1", 1)
	s.Require().NoError(err)

	res, err := s.checkout.Checkout(s.ctx, "buyer", []entity.CheckoutLine{
		{FontID: "font-1", Quantity: 2},
		{FontID: "font-2", Quantity: 1},
		{FontID: "font-1", Quantity: 1},
		{FontID: "missing", Quantity: 1},
		{FontID: "font-pending", Quantity: 1},
	}, "")
	s.Require().NoError(err)

	s.Len(res.OrderIDs, 2)
	s.Len(res.ConversationIDs, 2, "one conversation per seller")
	s.Equal("/chat?conversationId="+res.ConversationIDs[0], res.RedirectURL)
	s.ElementsMatch([]string{"missing", "font-pending"}, res.Skipped)

	order, err := s.store.Orders().Get(s.ctx, res.OrderIDs[0])
	s.Require().NoError(err)
	s.Equal(entity.PaymentPending, order.PaymentStatus)
	s.Equal(entity.PaymentMethodChat, order.PaymentMethod)
	// font-1 runs no promotion, so the effective price is its list price.
	s.True(decimal.NewFromInt(75).Equal(order.Amount), "duplicate lines merge: 25 x 3")

	msg := s.paymentRequestFor(order.ID)
	s.Equal("buyer", msg.SenderID)
	s.Equal("seller", msg.ReceiverID)
	s.Equal(entity.PaymentRequestPending, msg.PaymentRequest.Status)
	s.True(order.Amount.Equal(msg.PaymentRequest.Amount))

	records, err := s.store.Events().LoadEvents(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(1, records[0].Version)

	cart, err := s.carts.List(s.ctx, "buyer")
	s.Require().NoError(err)
	s.Empty(cart.Items, "cart is cleared after checkout")

	s.Equal([]string{entity.TopicOrdersPlaced, entity.TopicOrdersPlaced}, s.pub.topics())
}

func (s *WorkflowSuite) TestCheckoutChargesActivePromotion() {
	font, err := s.store.Fonts().Get(s.ctx, "font-2")
	s.Require().NoError(err)
	font.Promotion = &entity.Promotion{Kind: entity.PromotionSale, Price: decimal.NewFromInt(30), EndsAt: s.now.Add(time.Hour)}
	s.Require().NoError(s.store.Fonts().Update(s.ctx, font))

	res, err := s.checkout.Checkout(s.ctx, "buyer", []entity.CheckoutLine{{FontID: "font-2", Quantity: 2}}, "")
	s.Require().NoError(err)
	s.Require().Len(res.OrderIDs, 1)

	order, err := s.store.Orders().Get(s.ctx, res.OrderIDs[0])
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(60).Equal(order.Amount), "sale price 30 x 2, not list price 40 x 2")
}

func (s *WorkflowSuite) TestCheckoutValidation() {
	_, err := s.checkout.Checkout(s.ctx, "buyer", nil, "")
	s.Equal(KindValidation, KindOf(err))

	_, err = s.checkout.Checkout(s.ctx, "buyer", []entity.CheckoutLine{{FontID: "font-1", Quantity: 0}}, "")
	s.Equal(KindValidation, KindOf(err))

	_, err = s.checkout.Checkout(s.ctx, "ghost", []entity.CheckoutLine{{FontID: "font-1", Quantity: 1}}, "")
	s.Equal(KindForbidden, KindOf(err), "a profile is required")
}

func (s *WorkflowSuite) TestCheckoutSkipsOwnFonts() {
	res, err := s.checkout.Checkout(s.ctx, "seller", []entity.CheckoutLine{{FontID: "font-1", Quantity: 1}}, "")
	s.Require().NoError(err)
	s.Empty(res.OrderIDs)
	s.Equal("/chat", res.RedirectURL)
	s.Equal([]string{"font-1"}, res.Skipped)
}

func (s *WorkflowSuite) TestCheckoutIdempotencyKeyReplays() {
	lines := []entity.CheckoutLine{{FontID: "font-1", Quantity: 1}}
	first, err := s.checkout.Checkout(s.ctx, "buyer", lines, "key-1")
	s.Require().NoError(err)

	second, err := s.checkout.Checkout(s.ctx, "buyer", lines, "key-1")
	s.Require().NoError(err)
	s.Equal(first.OrderIDs, second.OrderIDs)

	orders, err := s.checkout.ListOrders(s.ctx, "buyer", OrdersPurchases)
	s.Require().NoError(err)
	s.Len(orders, 1, "replay has no side effects")

	third, err := s.checkout.Checkout(s.ctx, "buyer", lines, "key-2")
	s.Require().NoError(err)
	s.NotEqual(first.OrderIDs, third.OrderIDs)
}

func (s *WorkflowSuite) TestApproveCompletesOrder() {
	orderID := s.placeOrder("font-1")

	_, err := s.checkout.Approve(s.ctx, "buyer", orderID)
	s.Equal(KindNotFound, KindOf(err), "buyer cannot approve")
	_, err = s.checkout.Approve(s.ctx, "seller2", orderID)
	s.Equal(KindNotFound, KindOf(err), "another seller cannot approve")

	res, err := s.checkout.Approve(s.ctx, "seller", orderID)
	s.Require().NoError(err)
	s.False(res.AlreadyCompleted)

	order := res.Order
	s.Equal(entity.PaymentCompleted, order.PaymentStatus)
	s.True(order.LicenseGenerated)
	s.Equal("Copyright © 2024 Type Foundry, Licensed to: Ada Lovelace (License ID: "+orderID+")", order.LicenseText)
	s.Equal("/api/download/"+orderID, order.DownloadURL)
	s.Require().NotNil(order.DownloadExpiry)
	s.Equal(s.now.Add(DefaultDownloadTTL), order.DownloadExpiry.UTC())

	buyer, err := s.store.Users().Get(s.ctx, "buyer")
	s.Require().NoError(err)
	s.Equal([]string{"font-1"}, buyer.PurchasedFonts)

	s.Equal(entity.PaymentRequestPaid, s.paymentRequestFor(orderID).PaymentRequest.Status)

	conv, err := s.store.Conversations().Find(s.ctx, "buyer", "seller")
	s.Require().NoError(err)
	msgs, err := s.store.Messages().ListByConversation(s.ctx, conv.ID)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal(confirmationText, msgs[1].Body)
	s.Equal("seller", msgs[1].SenderID)

	records, err := s.store.Events().LoadEvents(s.ctx, orderID)
	s.Require().NoError(err)
	s.Len(records, 3, "placed, completed, settled")

	s.Contains(s.pub.topics(), entity.TopicOrdersCompleted)
}

func (s *WorkflowSuite) TestApproveIsIdempotent() {
	orderID := s.placeOrder("font-1")
	first, err := s.checkout.Approve(s.ctx, "seller", orderID)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	second, err := s.checkout.Approve(s.ctx, "seller", orderID)
	s.Require().NoError(err)
	s.True(second.AlreadyCompleted)
	s.Equal(first.Order.LicenseText, second.Order.LicenseText)
	s.Equal(first.Order.DownloadExpiry, second.Order.DownloadExpiry)

	buyer, err := s.store.Users().Get(s.ctx, "buyer")
	s.Require().NoError(err)
	s.Len(buyer.PurchasedFonts, 1)
}

func (s *WorkflowSuite) TestConcurrentApprovalsCompleteOnce() {
	orderID := s.placeOrder("font-1")

	const n = 8
	var wg sync.WaitGroup
	results := make([]*ApprovalResult, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.checkout.Approve(s.ctx, "seller", orderID)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range n {
		s.Require().NoError(errs[i])
		if !results[i].AlreadyCompleted {
			fresh++
		}
	}
	s.Equal(1, fresh)

	completed := 0
	for _, topic := range s.pub.topics() {
		if topic == entity.TopicOrdersCompleted {
			completed++
		}
	}
	s.Equal(1, completed)
}

func (s *WorkflowSuite) TestRespondAcceptApprovesLinkedOrder() {
	orderID := s.placeOrder("font-1")
	msg := s.paymentRequestFor(orderID)

	_, err := s.checkout.RespondToPaymentRequest(s.ctx, "buyer", msg.ID, PaymentAccept)
	s.Equal(KindForbidden, KindOf(err), "only the receiver responds")

	res, err := s.checkout.RespondToPaymentRequest(s.ctx, "seller", msg.ID, PaymentAccept)
	s.Require().NoError(err)
	s.Equal(entity.PaymentCompleted, res.Order.PaymentStatus)

	_, err = s.checkout.RespondToPaymentRequest(s.ctx, "seller", msg.ID, PaymentAccept)
	s.Equal(KindValidation, KindOf(err), "no longer pending")
}

func (s *WorkflowSuite) TestRespondDecline() {
	orderID := s.placeOrder("font-1")
	msg := s.paymentRequestFor(orderID)

	res, err := s.checkout.RespondToPaymentRequest(s.ctx, "seller", msg.ID, PaymentDecline)
	s.Require().NoError(err)
	s.Equal("Payment declined", res.Message)

	stored, err := s.store.Messages().Get(s.ctx, msg.ID)
	s.Require().NoError(err)
	s.Equal(entity.PaymentRequestCancelled, stored.PaymentRequest.Status)

	order, err := s.store.Orders().Get(s.ctx, orderID)
	s.Require().NoError(err)
	s.Equal(entity.PaymentPending, order.PaymentStatus, "declining leaves the order alone")
}

func (s *WorkflowSuite) TestApproveAfterDeclineIsRejected() {
	orderID := s.placeOrder("font-1")
	msg := s.paymentRequestFor(orderID)

	_, err := s.checkout.RespondToPaymentRequest(s.ctx, "seller", msg.ID, PaymentDecline)
	s.Require().NoError(err)

	_, err = s.checkout.Approve(s.ctx, "seller", orderID)
	s.Equal(KindValidation, KindOf(err))

	order, err := s.store.Orders().Get(s.ctx, orderID)
	s.Require().NoError(err)
	s.Equal(entity.PaymentPending, order.PaymentStatus)
	s.False(order.LicenseGenerated)

	stored, err := s.store.Messages().Get(s.ctx, msg.ID)
	s.Require().NoError(err)
	s.Equal(entity.PaymentRequestCancelled, stored.PaymentRequest.Status)

	buyer, err := s.store.Users().Get(s.ctx, "buyer")
	s.Require().NoError(err)
	s.NotContains(buyer.PurchasedFonts, "font-1")
}

func (s *WorkflowSuite) TestRespondAcceptsSellerOffer() {
	conv, _, err := s.chat.ResolveConversation(s.ctx, "seller", "buyer")
	s.Require().NoError(err)

	offer, err := s.chat.Send(s.ctx, "seller", SendMessageInput{
		ConversationID: conv.ID,
		Type:           entity.MessagePaymentRequest,
		Offer:          &OfferInput{FontID: "font-1", Amount: decimal.NewFromInt(12)},
	})
	s.Require().NoError(err)
	s.Equal("buyer", offer.ReceiverID)

	res, err := s.checkout.RespondToPaymentRequest(s.ctx, "buyer", offer.ID, PaymentAccept)
	s.Require().NoError(err)
	order := res.Order
	s.Equal("buyer", order.BuyerID)
	s.Equal("seller", order.SellerID)
	s.Equal(entity.PaymentMethodChatPayment, order.PaymentMethod)
	s.Equal(entity.PaymentCompleted, order.PaymentStatus)
	s.True(decimal.NewFromInt(12).Equal(order.Amount))
	s.True(order.LicenseGenerated)

	stored, err := s.store.Messages().Get(s.ctx, offer.ID)
	s.Require().NoError(err)
	s.Equal(entity.PaymentRequestPaid, stored.PaymentRequest.Status)
}

func (s *WorkflowSuite) TestRespondValidation() {
	_, err := s.checkout.RespondToPaymentRequest(s.ctx, "seller", "missing", PaymentAccept)
	s.Equal(KindNotFound, KindOf(err))

	_, err = s.checkout.RespondToPaymentRequest(s.ctx, "seller", "missing", PaymentAction("maybe"))
	s.Equal(KindValidation, KindOf(err))

	conv, _, err := s.chat.ResolveConversation(s.ctx, "buyer", "seller")
	s.Require().NoError(err)
	text, err := s.chat.Send(s.ctx, "buyer", SendMessageInput{ConversationID: conv.ID, Body: "hi"})
	s.Require().NoError(err)
	_, err = s.checkout.RespondToPaymentRequest(s.ctx, "seller", text.ID, PaymentAccept)
	s.Equal(KindValidation, KindOf(err), "text messages are not payment requests")
}

func (s *WorkflowSuite) TestOfferMustComeFromSeller() {
	conv, _, err := s.chat.ResolveConversation(s.ctx, "buyer", "seller")
	s.Require().NoError(err)

	_, err = s.chat.Send(s.ctx, "buyer", SendMessageInput{
		ConversationID: conv.ID,
		Type:           entity.MessagePaymentRequest,
		Offer:          &OfferInput{FontID: "font-1", Amount: decimal.NewFromInt(1)},
	})
	s.Equal(KindForbidden, KindOf(err))

	_, err = s.chat.Send(s.ctx, "seller", SendMessageInput{
		ConversationID: conv.ID,
		Type:           entity.MessagePaymentRequest,
		Offer:          &OfferInput{FontID: "font-1", OrderID: "forged", Amount: decimal.NewFromInt(1)},
	})
	s.Equal(KindValidation, KindOf(err))
}

func (s *WorkflowSuite) TestDownload() {
	orderID := s.placeOrder("font-1")

	_, err := s.downloads.Fetch(s.ctx, "buyer", orderID, "10.0.0.1")
	s.Equal(KindNotFound, KindOf(err), "pending order")

	_, err = s.checkout.Approve(s.ctx, "seller", orderID)
	s.Require().NoError(err)

	_, err = s.downloads.Fetch(s.ctx, "seller", orderID, "10.0.0.1")
	s.Equal(KindNotFound, KindOf(err), "not the buyer")

	dl, err := s.downloads.Fetch(s.ctx, "buyer", orderID, "10.0.0.1")
	s.Require().NoError(err)
	defer dl.Body.Close()
	s.Equal("Harbor_Sans.ttf", dl.Filename)
	s.Equal("font/ttf", dl.ContentType)

	font, err := s.store.Fonts().Get(s.ctx, "font-1")
	s.Require().NoError(err)
	s.Equal(1, font.Downloads)

	history, err := s.downloads.History(s.ctx, "buyer", orderID)
	s.Require().NoError(err)
	s.Require().Len(history.Downloads, 1)
	s.Equal("10.0.0.1", history.Downloads[0].RemoteAddr)
	s.True(history.CanDownload)

	s.now = s.now.Add(DefaultDownloadTTL + time.Second)
	_, err = s.downloads.Fetch(s.ctx, "buyer", orderID, "10.0.0.1")
	s.Equal(KindExpired, KindOf(err))
}

func (s *WorkflowSuite) TestDownloadMissingArtifact() {
	s.addFont("font-3", "seller", "Ghost", decimal.NewFromInt(5), entity.FontApproved)
	font, err := s.store.Fonts().Get(s.ctx, "font-3")
	s.Require().NoError(err)
	font.Files = []entity.FontFile{{Format: "otf", Locator: "fonts/nowhere.otf"}}
	s.Require().NoError(s.store.Fonts().Update(s.ctx, font))

	orderID := s.placeOrder("font-3")
	_, err = s.checkout.Approve(s.ctx, "seller", orderID)
	s.Require().NoError(err)

	_, err = s.downloads.Fetch(s.ctx, "buyer", orderID, "")
	s.Equal(KindNotFound, KindOf(err))
}

func (s *WorkflowSuite) TestCatalogVisibilityAndModeration() {
	_, err := s.catalog.Get(s.ctx, "", "font-pending")
	s.Equal(KindNotFound, KindOf(err))
	_, err = s.catalog.Get(s.ctx, "buyer", "font-pending")
	s.Equal(KindNotFound, KindOf(err))
	_, err = s.catalog.Get(s.ctx, "seller", "font-pending")
	s.NoError(err, "owner sees own pending font")
	_, err = s.catalog.Get(s.ctx, "admin", "font-pending")
	s.NoError(err)

	page, err := s.catalog.List(s.ctx, ListFontsInput{})
	s.Require().NoError(err)
	s.Equal(2, page.Pagination.Total)
	s.Equal(DefaultPageLimit, page.Pagination.Limit)

	_, err = s.catalog.List(s.ctx, ListFontsInput{Page: math.MaxInt, Limit: 20})
	s.Equal(KindValidation, KindOf(err))

	_, err = s.catalog.Moderate(s.ctx, "seller", "font-pending", entity.FontApproved)
	s.Equal(KindForbidden, KindOf(err))

	font, err := s.catalog.Moderate(s.ctx, "admin", "font-pending", entity.FontApproved)
	s.Require().NoError(err)
	s.Equal(entity.FontApproved, font.Status)

	_, err = s.catalog.Moderate(s.ctx, "admin", "font-pending", entity.FontRejected)
	s.Equal(KindNotFound, KindOf(err), "already reviewed")

	s.Equal([]string{entity.TopicFontsModerated}, s.pub.topics())
}

func (s *WorkflowSuite) TestCreateFontStartsPending() {
	in := FontInput{
		Name:     "  New Face ",
		Category: "display",
		Price:    decimal.NewFromInt(15),
		Files:    []entity.FontFile{{Format: ".WOFF2", Locator: "fonts/new.woff2"}},
	}
	font, err := s.catalog.Create(s.ctx, "seller", in)
	s.Require().NoError(err)
	s.Equal(entity.FontPending, font.Status)
	s.Equal("New Face", font.Name)
	s.Equal("Type Foundry", font.SellerName)
	s.Equal("woff2", font.Files[0].Format)

	_, err = s.catalog.Create(s.ctx, "buyer", in)
	s.Equal(KindForbidden, KindOf(err))

	bad := in
	bad.Files = []entity.FontFile{{Format: "exe", Locator: "x"}}
	_, err = s.catalog.Create(s.ctx, "seller", bad)
	s.Equal(KindValidation, KindOf(err))
}

func (s *WorkflowSuite) TestNotificationHandlers() {
	notifications := NewNotificationService(s.store)

	placed, err := json.Marshal(entity.OrderPlaced{OrderID: "o1", SellerID: "seller", FontID: "font-1", FontName: "Harbor Sans", Amount: decimal.NewFromInt(25)})
	s.Require().NoError(err)
	s.Require().NoError(notifications.Handlers()[entity.TopicOrdersPlaced](s.ctx, placed))

	moderated, err := json.Marshal(entity.FontModerated{FontID: "font-1", FontName: "Harbor Sans", SellerID: "seller", Status: entity.FontRejected})
	s.Require().NoError(err)
	s.Require().NoError(notifications.HandleFontModerated(s.ctx, moderated))

	list, err := notifications.List(s.ctx, "seller")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(NotifyFontRejected, list[0].Type)
	s.Equal(NotifyPaymentRequest, list[1].Type)

	s.Error(notifications.HandleOrderCompleted(s.ctx, []byte("{")))

	s.Equal(KindNotFound, KindOf(notifications.MarkRead(s.ctx, "buyer", list[0].ID)), "owner only")
	s.NoError(notifications.MarkRead(s.ctx, "seller", list[0].ID))
}

func (s *WorkflowSuite) TestSponsorAndTrialKeys() {
	sponsors := NewSponsorService(s.store)
	sponsors.now = func() time.Time { return s.now }

	_, err := sponsors.Sponsor(s.ctx, "seller", "font-1", decimal.NewFromInt(10), 0)
	s.Equal(KindValidation, KindOf(err))
	_, err = sponsors.Sponsor(s.ctx, "seller2", "font-1", decimal.NewFromInt(10), 7)
	s.Equal(KindNotFound, KindOf(err), "not the owner")

	sp, err := sponsors.Sponsor(s.ctx, "seller", "font-1", decimal.NewFromInt(10), 7)
	s.Require().NoError(err)
	s.Equal(s.now.AddDate(0, 0, 7), sp.EndDate)

	active, err := sponsors.ActiveSponsored(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal("font-1", active[0].ID)

	keys := NewTrialKeyService(s.store)
	key, err := keys.Issue(s.ctx, "buyer", "font-2")
	s.Require().NoError(err)
	s.Len(key.Key, 26)
	s.Equal(100, key.MaxUsage)

	_, err = keys.Issue(s.ctx, "buyer", "font-2")
	s.Equal(KindConflict, KindOf(err))
	_, err = keys.Issue(s.ctx, "buyer", "missing")
	s.Equal(KindNotFound, KindOf(err))
}
