package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

func seedFont(t *testing.T, s *Store, id string, status entity.FontStatus, created time.Time, mutate func(f *entity.Font)) {
	t.Helper()
	f := &entity.Font{
		ID:        id,
		SellerID:  "seller",
		Name:      "Font " + id,
		Category:  "serif",
		Price:     decimal.NewFromInt(10),
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if mutate != nil {
		mutate(f)
	}
	require.NoError(t, s.Fonts().Create(context.Background(), f))
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Users().Upsert(ctx, &entity.User{ID: "u1", DisplayName: "Ann", Role: entity.RoleBuyer}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Users().AddPurchasedFont(ctx, "u1", "f1"))
		_, _, err := tx.Conversations().FindOrCreate(ctx, "u1", "u2", time.Now())
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u.PurchasedFonts)

	_, err = s.Conversations().Find(ctx, "u1", "u2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Users().Upsert(ctx, &entity.User{ID: "u1"}))

	err := s.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Users().AddPurchasedFont(ctx, "u1", "f1")
	})
	require.NoError(t, err)

	u, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, u.PurchasedFonts)
}

func TestUserSetsHaveSetSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Users().Upsert(ctx, &entity.User{ID: "u1"}))

	require.NoError(t, s.Users().AddPurchasedFont(ctx, "u1", "f1"))
	require.NoError(t, s.Users().AddPurchasedFont(ctx, "u1", "f1"))
	require.NoError(t, s.Users().AddToWishlist(ctx, "u1", "f2"))
	require.NoError(t, s.Users().AddToWishlist(ctx, "u1", "f2"))

	u, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, u.PurchasedFonts)
	assert.Equal(t, []string{"f2"}, u.Wishlist)

	require.NoError(t, s.Users().RemoveFromWishlist(ctx, "u1", "f2"))
	u, err = s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u.Wishlist)

	assert.ErrorIs(t, s.Users().AddToWishlist(ctx, "missing", "f1"), repository.ErrNotFound)
}

func TestConversationFindOrCreateIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, created, err := s.Conversations().FindOrCreate(ctx, "b", "a", time.Now())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, [2]string{"a", "b"}, first.Participants)

	second, created, err := s.Conversations().FindOrCreate(ctx, "a", "b", time.Now())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestConversationListingCarriesUnreadAndLastMessage(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	conv, _, err := s.Conversations().FindOrCreate(ctx, "a", "b", base)
	require.NoError(t, err)
	for i, body := range []string{"hi", "there", "again"} {
		require.NoError(t, s.Messages().Create(ctx, &entity.ChatMessage{
			ID:             body,
			ConversationID: conv.ID,
			SenderID:       "b",
			ReceiverID:     "a",
			Body:           body,
			Type:           entity.MessageText,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	convs, err := s.Conversations().ListByParticipant(ctx, "a")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 3, convs[0].UnreadCount)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "again", convs[0].LastMessage.Body)

	n, err := s.Messages().MarkRead(ctx, conv.ID, "a", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Messages().MarkRead(ctx, conv.ID, "a", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrderCompleteIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Now()
	order := &entity.Order{
		ID:            "o1",
		BuyerID:       "buyer",
		SellerID:      "seller",
		FontID:        "f1",
		Amount:        decimal.NewFromInt(10),
		PaymentMethod: entity.PaymentMethodChat,
		PaymentStatus: entity.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.Orders().Create(ctx, order))

	require.NoError(t, order.Complete("license", "/api/download/o1", now.Add(time.Hour), now))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Orders().Complete(ctx, order)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	stored, err := s.Orders().Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentCompleted, stored.PaymentStatus)
	assert.Equal(t, "license", stored.LicenseText)
}

func TestEventStoreVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	placed := entity.OrderPlaced{OrderID: "o1"}

	require.NoError(t, s.Events().SaveEvents(ctx, "o1", entity.StreamTypeOrder, 0, []entity.Event{placed}))
	err := s.Events().SaveEvents(ctx, "o1", entity.StreamTypeOrder, 0, []entity.Event{placed})
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	require.NoError(t, s.Events().SaveEvents(ctx, "o1", entity.StreamTypeOrder, repository.AnyVersion, []entity.Event{entity.OrderCompleted{OrderID: "o1"}}))

	records, err := s.Events().LoadEvents(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Version)
	assert.Equal(t, "OrderCompleted", records[1].EventType)
}

func TestFontSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seedFont(t, s, "1", entity.FontApproved, base, func(f *entity.Font) { f.Tags = []string{"Retro", "art"} })
	seedFont(t, s, "2", entity.FontApproved, base.Add(time.Hour), func(f *entity.Font) { f.IsFree = true; f.Price = decimal.Zero })
	seedFont(t, s, "3", entity.FontPending, base.Add(2*time.Hour), nil)
	seedFont(t, s, "4", entity.FontApproved, base.Add(3*time.Hour), func(f *entity.Font) { f.Category = "script" })

	fonts, total, err := s.Fonts().Search(ctx, repository.FontQuery{Status: entity.FontApproved, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, fonts, 2)
	assert.Equal(t, "4", fonts[0].ID)
	assert.Equal(t, "2", fonts[1].ID)

	fonts, total, err = s.Fonts().Search(ctx, repository.FontQuery{Status: entity.FontApproved, Search: "retro", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "1", fonts[0].ID)

	_, total, err = s.Fonts().Search(ctx, repository.FontQuery{Status: entity.FontApproved, Search: "o a", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total, "a search term does not span two tags")

	free := false
	_, total, err = s.Fonts().Search(ctx, repository.FontQuery{Status: entity.FontApproved, Free: &free, Category: "serif", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	fonts, total, err = s.Fonts().Search(ctx, repository.FontQuery{Status: entity.FontApproved, Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, fonts)

	pending, err := s.Fonts().ListByStatus(ctx, entity.FontPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	moved, err := s.Fonts().TransitionStatus(ctx, "3", entity.FontPending, entity.FontApproved, base)
	require.NoError(t, err)
	assert.True(t, moved)
	moved, err = s.Fonts().TransitionStatus(ctx, "3", entity.FontPending, entity.FontRejected, base)
	require.NoError(t, err)
	assert.False(t, moved)

	counts, err := s.Fonts().CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"serif": 3, "script": 1}, counts)
}

func TestCartAddMergesAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Now()

	first, err := s.Carts().Add(ctx, "u1", "f1", 1, now)
	require.NoError(t, err)
	second, err := s.Carts().Add(ctx, "u1", "f1", 2, now)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Quantity)

	_, err = s.Carts().Add(ctx, "u1", "f2", 1, now)
	require.NoError(t, err)
	_, err = s.Carts().Add(ctx, "u2", "f2", 1, now)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Carts().Remove(ctx, "u2", first.ID), repository.ErrNotFound)

	n, err := s.Carts().Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := s.Carts().List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestTrialKeyAndIdempotencyConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedFont(t, s, "f1", entity.FontApproved, time.Now(), nil)

	key := &entity.TrialKey{ID: "k1", FontID: "f1", UserID: "u1", Key: "ABC", CreatedAt: time.Now()}
	require.NoError(t, s.TrialKeys().Create(ctx, key))
	dup := *key
	dup.ID = "k2"
	assert.ErrorIs(t, s.TrialKeys().Create(ctx, &dup), repository.ErrConflict)

	keys, err := s.TrialKeys().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "Font f1", keys[0].FontName)

	rec := &repository.IdempotencyRecord{UserID: "u1", Scope: "checkout", Key: "k", Response: []byte(`{"ok":true}`)}
	require.NoError(t, s.Idempotency().Save(ctx, rec))
	assert.ErrorIs(t, s.Idempotency().Save(ctx, rec), repository.ErrConflict)

	got, err := s.Idempotency().Get(ctx, "u1", "checkout", "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(got.Response))

	_, err = s.Idempotency().Get(ctx, "u2", "checkout", "k")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
