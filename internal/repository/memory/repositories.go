package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

func cloneUser(u entity.User) *entity.User {
	u.Wishlist = slices.Clone(u.Wishlist)
	u.PurchasedFonts = slices.Clone(u.PurchasedFonts)
	return &u
}

func cloneFont(f entity.Font) entity.Font {
	f.Tags = slices.Clone(f.Tags)
	f.Languages = slices.Clone(f.Languages)
	f.Files = slices.Clone(f.Files)
	if f.Promotion != nil {
		p := *f.Promotion
		f.Promotion = &p
	}
	if f.SponsorEndDate != nil {
		t := *f.SponsorEndDate
		f.SponsorEndDate = &t
	}
	return f
}

func cloneMessage(m entity.ChatMessage) entity.ChatMessage {
	if m.PaymentRequest != nil {
		pr := *m.PaymentRequest
		m.PaymentRequest = &pr
	}
	if m.ReadAt != nil {
		t := *m.ReadAt
		m.ReadAt = &t
	}
	return m
}

func cloneOrder(o entity.Order) entity.Order {
	if o.DownloadExpiry != nil {
		t := *o.DownloadExpiry
		o.DownloadExpiry = &t
	}
	return o
}

func byTimeDesc[T any](rows []T, at func(T) time.Time) {
	slices.SortStableFunc(rows, func(a, b T) int { return at(b).Compare(at(a)) })
}

func byTimeAsc[T any](rows []T, at func(T) time.Time) {
	slices.SortStableFunc(rows, func(a, b T) int { return at(a).Compare(at(b)) })
}

// oldestFirst reverses a newest-first listing so ties keep insertion order.
func oldestFirst[T any](rows []T) []T {
	slices.Reverse(rows)
	return rows
}

type userRepository struct{ s *Store }

func (r *userRepository) Get(ctx context.Context, id string) (*entity.User, error) {
	var (
		u  entity.User
		ok bool
	)
	r.s.read(func(st *state) { u, ok = st.users.get(id) })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepository) Upsert(ctx context.Context, u *entity.User) error {
	return r.s.write(func(st *state) error {
		row := *cloneUser(*u)
		if existing, ok := st.users.get(u.ID); ok {
			row.Wishlist = existing.Wishlist
			row.PurchasedFonts = existing.PurchasedFonts
			row.CreatedAt = existing.CreatedAt
		}
		st.users.put(u.ID, row)
		return nil
	})
}

func (r *userRepository) SetRole(ctx context.Context, id string, role entity.Role) error {
	return r.update(id, func(u *entity.User) { u.Role = role })
}

func (r *userRepository) AddPurchasedFont(ctx context.Context, userID, fontID string) error {
	return r.update(userID, func(u *entity.User) {
		if !slices.Contains(u.PurchasedFonts, fontID) {
			u.PurchasedFonts = append(slices.Clone(u.PurchasedFonts), fontID)
		}
	})
}

func (r *userRepository) AddToWishlist(ctx context.Context, userID, fontID string) error {
	return r.update(userID, func(u *entity.User) {
		if !slices.Contains(u.Wishlist, fontID) {
			u.Wishlist = append(slices.Clone(u.Wishlist), fontID)
		}
	})
}

func (r *userRepository) RemoveFromWishlist(ctx context.Context, userID, fontID string) error {
	return r.update(userID, func(u *entity.User) {
		u.Wishlist = slices.DeleteFunc(slices.Clone(u.Wishlist), func(id string) bool { return id == fontID })
	})
}

func (r *userRepository) update(id string, fn func(u *entity.User)) error {
	return r.s.write(func(st *state) error {
		u, ok := st.users.get(id)
		if !ok {
			return repository.ErrNotFound
		}
		fn(&u)
		u.UpdatedAt = time.Now()
		st.users.put(id, u)
		return nil
	})
}

type fontRepository struct{ s *Store }

func (r *fontRepository) Create(ctx context.Context, f *entity.Font) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.fonts.get(f.ID); ok {
			return fmt.Errorf("failed to insert font: %w", repository.ErrConflict)
		}
		st.fonts.put(f.ID, cloneFont(*f))
		return nil
	})
}

func (r *fontRepository) Update(ctx context.Context, f *entity.Font) error {
	return r.s.write(func(st *state) error {
		row, ok := st.fonts.get(f.ID)
		if !ok {
			return repository.ErrNotFound
		}
		in := cloneFont(*f)
		row.Name, row.Description, row.Category = in.Name, in.Description, in.Category
		row.Price, row.IsFree, row.Promotion = in.Price, in.IsFree, in.Promotion
		row.Tags, row.Languages, row.Files = in.Tags, in.Languages, in.Files
		row.Status, row.UpdatedAt = in.Status, in.UpdatedAt
		st.fonts.put(f.ID, row)
		return nil
	})
}

func (r *fontRepository) Get(ctx context.Context, id string) (*entity.Font, error) {
	var (
		f  entity.Font
		ok bool
	)
	r.s.read(func(st *state) { f, ok = st.fonts.get(id) })
	if !ok {
		return nil, repository.ErrNotFound
	}
	f = cloneFont(f)
	return &f, nil
}

func (r *fontRepository) GetMany(ctx context.Context, ids []string) ([]entity.Font, error) {
	return r.list(func(f entity.Font) bool { return slices.Contains(ids, f.ID) }, false), nil
}

// list returns matching fonts by creation time, newest first unless asc.
func (r *fontRepository) list(match func(entity.Font) bool, asc bool) []entity.Font {
	var fonts []entity.Font
	r.s.read(func(st *state) { fonts = st.fonts.newestFirst(match) })
	for i := range fonts {
		fonts[i] = cloneFont(fonts[i])
	}
	at := func(f entity.Font) time.Time { return f.CreatedAt }
	if asc {
		byTimeAsc(oldestFirst(fonts), at)
	} else {
		byTimeDesc(fonts, at)
	}
	return fonts
}

func (r *fontRepository) Search(ctx context.Context, q repository.FontQuery) ([]entity.Font, int, error) {
	needle := strings.ToLower(q.Search)
	matches := r.list(func(f entity.Font) bool {
		if q.Status != "" && f.Status != q.Status {
			return false
		}
		if q.Category != "" && f.Category != q.Category {
			return false
		}
		if q.Free != nil && f.IsFree != *q.Free {
			return false
		}
		if needle == "" {
			return true
		}
		if strings.Contains(strings.ToLower(f.Name), needle) || strings.Contains(strings.ToLower(f.Description), needle) {
			return true
		}
		return slices.ContainsFunc(f.Tags, func(t string) bool { return strings.Contains(strings.ToLower(t), needle) })
	}, false)

	total := len(matches)
	start := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	return matches[start:end], total, nil
}

func (r *fontRepository) ListBySeller(ctx context.Context, sellerID string) ([]entity.Font, error) {
	return r.list(func(f entity.Font) bool { return f.SellerID == sellerID }, false), nil
}

func (r *fontRepository) ListByStatus(ctx context.Context, status entity.FontStatus) ([]entity.Font, error) {
	return r.list(func(f entity.Font) bool { return f.Status == status }, true), nil
}

func (r *fontRepository) TransitionStatus(ctx context.Context, id string, from, to entity.FontStatus, at time.Time) (bool, error) {
	var moved bool
	err := r.s.write(func(st *state) error {
		f, ok := st.fonts.get(id)
		if !ok || f.Status != from {
			return nil
		}
		f.Status, f.UpdatedAt = to, at
		st.fonts.put(id, f)
		moved = true
		return nil
	})
	return moved, err
}

func (r *fontRepository) SetSponsorship(ctx context.Context, id string, endDate time.Time) error {
	return r.s.write(func(st *state) error {
		f, ok := st.fonts.get(id)
		if !ok {
			return repository.ErrNotFound
		}
		f.Sponsored = true
		f.SponsorEndDate = &endDate
		f.UpdatedAt = time.Now()
		st.fonts.put(id, f)
		return nil
	})
}

func (r *fontRepository) ListSponsored(ctx context.Context, now time.Time) ([]entity.Font, error) {
	fonts := r.list(func(f entity.Font) bool {
		return f.Sponsored && f.Status == entity.FontApproved && f.SponsorEndDate != nil && f.SponsorEndDate.After(now)
	}, false)
	byTimeDesc(fonts, func(f entity.Font) time.Time { return *f.SponsorEndDate })
	return fonts, nil
}

func (r *fontRepository) IncrementDownloads(ctx context.Context, id string) error {
	return r.s.write(func(st *state) error {
		f, ok := st.fonts.get(id)
		if !ok {
			return repository.ErrNotFound
		}
		f.Downloads++
		st.fonts.put(id, f)
		return nil
	})
}

func (r *fontRepository) CategoryCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, f := range r.list(func(f entity.Font) bool { return f.Status == entity.FontApproved }, false) {
		counts[f.Category]++
	}
	return counts, nil
}

type cartRepository struct{ s *Store }

func (r *cartRepository) List(ctx context.Context, userID string) ([]entity.CartItem, error) {
	var items []entity.CartItem
	r.s.read(func(st *state) {
		items = st.cart.newestFirst(func(it entity.CartItem) bool { return it.UserID == userID })
	})
	byTimeDesc(items, func(it entity.CartItem) time.Time { return it.AddedAt })
	return items, nil
}

func (r *cartRepository) Add(ctx context.Context, userID, fontID string, quantity int, at time.Time) (*entity.CartItem, error) {
	var out entity.CartItem
	err := r.s.write(func(st *state) error {
		for _, it := range st.cart.rows {
			if it.UserID == userID && it.FontID == fontID {
				it.Quantity += quantity
				it.UpdatedAt = at
				st.cart.put(it.ID, it)
				out = it
				return nil
			}
		}
		out = entity.CartItem{
			ID:        uuid.NewString(),
			UserID:    userID,
			FontID:    fontID,
			Quantity:  quantity,
			AddedAt:   at,
			UpdatedAt: at,
		}
		st.cart.put(out.ID, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, itemID string, quantity int, at time.Time) error {
	return r.s.write(func(st *state) error {
		it, ok := st.cart.get(itemID)
		if !ok || it.UserID != userID {
			return repository.ErrNotFound
		}
		it.Quantity, it.UpdatedAt = quantity, at
		st.cart.put(itemID, it)
		return nil
	})
}

func (r *cartRepository) Remove(ctx context.Context, userID, itemID string) error {
	return r.s.write(func(st *state) error {
		it, ok := st.cart.get(itemID)
		if !ok || it.UserID != userID {
			return repository.ErrNotFound
		}
		st.cart.delete(itemID)
		return nil
	})
}

func (r *cartRepository) Clear(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.s.write(func(st *state) error {
		for _, it := range st.cart.newestFirst(func(it entity.CartItem) bool { return it.UserID == userID }) {
			st.cart.delete(it.ID)
			n++
		}
		return nil
	})
	return n, err
}

type conversationRepository struct{ s *Store }

func findConversation(st *state, pair [2]string) (entity.Conversation, bool) {
	for _, c := range st.conversations.rows {
		if c.Participants == pair {
			return c, true
		}
	}
	return entity.Conversation{}, false
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, a, b string, at time.Time) (*entity.Conversation, bool, error) {
	pair := entity.ParticipantPair(a, b)
	var (
		conv    entity.Conversation
		created bool
	)
	err := r.s.write(func(st *state) error {
		if c, ok := findConversation(st, pair); ok {
			conv = c
			return nil
		}
		conv = entity.Conversation{ID: uuid.NewString(), Participants: pair, CreatedAt: at, UpdatedAt: at}
		st.conversations.put(conv.ID, conv)
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &conv, created, nil
}

func (r *conversationRepository) Find(ctx context.Context, a, b string) (*entity.Conversation, error) {
	var (
		c  entity.Conversation
		ok bool
	)
	r.s.read(func(st *state) { c, ok = findConversation(st, entity.ParticipantPair(a, b)) })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	var (
		c  entity.Conversation
		ok bool
	)
	r.s.read(func(st *state) { c, ok = st.conversations.get(id) })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, userID string) ([]entity.Conversation, error) {
	var convs []entity.Conversation
	r.s.read(func(st *state) {
		convs = st.conversations.newestFirst(func(c entity.Conversation) bool { return c.HasParticipant(userID) })
		for i := range convs {
			var last *entity.ChatMessage
			for _, m := range st.messages.newestFirst(func(m entity.ChatMessage) bool { return m.ConversationID == convs[i].ID }) {
				if last == nil || m.CreatedAt.After(last.CreatedAt) {
					mc := cloneMessage(m)
					last = &mc
				}
				if m.ReceiverID == userID && m.ReadAt == nil {
					convs[i].UnreadCount++
				}
			}
			convs[i].LastMessage = last
		}
	})
	byTimeDesc(convs, func(c entity.Conversation) time.Time { return c.UpdatedAt })
	return convs, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.s.write(func(st *state) error {
		c, ok := st.conversations.get(id)
		if !ok {
			return repository.ErrNotFound
		}
		c.UpdatedAt = at
		st.conversations.put(id, c)
		return nil
	})
}

type messageRepository struct{ s *Store }

func (r *messageRepository) Create(ctx context.Context, m *entity.ChatMessage) error {
	return r.s.write(func(st *state) error {
		st.messages.put(m.ID, cloneMessage(*m))
		return nil
	})
}

func (r *messageRepository) Get(ctx context.Context, id string) (*entity.ChatMessage, error) {
	var (
		m  entity.ChatMessage
		ok bool
	)
	r.s.read(func(st *state) { m, ok = st.messages.get(id) })
	if !ok {
		return nil, repository.ErrNotFound
	}
	m = cloneMessage(m)
	return &m, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]entity.ChatMessage, error) {
	var msgs []entity.ChatMessage
	r.s.read(func(st *state) {
		msgs = oldestFirst(st.messages.newestFirst(func(m entity.ChatMessage) bool { return m.ConversationID == conversationID }))
	})
	for i := range msgs {
		msgs[i] = cloneMessage(msgs[i])
	}
	byTimeAsc(msgs, func(m entity.ChatMessage) time.Time { return m.CreatedAt })
	return msgs, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID, receiverID string, at time.Time) (int, error) {
	var n int
	err := r.s.write(func(st *state) error {
		for id, m := range st.messages.rows {
			if m.ConversationID != conversationID || m.ReceiverID != receiverID || m.ReadAt != nil {
				continue
			}
			readAt := at
			m.ReadAt = &readAt
			st.messages.put(id, m)
			n++
		}
		return nil
	})
	return n, err
}

func (r *messageRepository) TransitionPaymentStatus(ctx context.Context, id string, from, to entity.PaymentRequestStatus, at time.Time) (bool, error) {
	var moved bool
	err := r.s.write(func(st *state) error {
		m, ok := st.messages.get(id)
		if !ok || m.Type != entity.MessagePaymentRequest || m.PaymentRequest == nil || m.PaymentRequest.Status != from {
			return nil
		}
		m = cloneMessage(m)
		m.PaymentRequest.Status = to
		m.UpdatedAt = at
		st.messages.put(id, m)
		moved = true
		return nil
	})
	return moved, err
}

func (r *messageRepository) FindPaymentRequestByOrder(ctx context.Context, orderID string) (*entity.ChatMessage, error) {
	var found []entity.ChatMessage
	r.s.read(func(st *state) {
		found = oldestFirst(st.messages.newestFirst(func(m entity.ChatMessage) bool {
			return m.Type == entity.MessagePaymentRequest && m.PaymentRequest != nil && m.PaymentRequest.OrderID == orderID
		}))
	})
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	byTimeAsc(found, func(m entity.ChatMessage) time.Time { return m.CreatedAt })
	m := cloneMessage(found[0])
	return &m, nil
}

type orderRepository struct{ s *Store }

func (r *orderRepository) Create(ctx context.Context, o *entity.Order) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.orders.get(o.ID); ok {
			return fmt.Errorf("failed to insert order: %w", repository.ErrConflict)
		}
		row := cloneOrder(*o)
		row.FontName = ""
		st.orders.put(o.ID, row)
		return nil
	})
}

func withFontName(st *state, o entity.Order) entity.Order {
	o = cloneOrder(o)
	if f, ok := st.fonts.get(o.FontID); ok {
		o.FontName = f.Name
	}
	return o
}

func (r *orderRepository) Get(ctx context.Context, id string) (*entity.Order, error) {
	var (
		o  entity.Order
		ok bool
	)
	r.s.read(func(st *state) {
		o, ok = st.orders.get(id)
		if ok {
			o = withFontName(st, o)
		}
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r *orderRepository) Complete(ctx context.Context, o *entity.Order) (bool, error) {
	var done bool
	err := r.s.write(func(st *state) error {
		row, ok := st.orders.get(o.ID)
		if !ok || row.PaymentStatus != entity.PaymentPending {
			return nil
		}
		in := cloneOrder(*o)
		row.PaymentStatus = entity.PaymentCompleted
		row.LicenseGenerated = in.LicenseGenerated
		row.LicenseText = in.LicenseText
		row.DownloadURL = in.DownloadURL
		row.DownloadExpiry = in.DownloadExpiry
		row.UpdatedAt = in.UpdatedAt
		st.orders.put(o.ID, row)
		done = true
		return nil
	})
	return done, err
}

func (r *orderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]entity.Order, error) {
	var orders []entity.Order
	r.s.read(func(st *state) {
		orders = st.orders.newestFirst(func(o entity.Order) bool {
			if filter.BuyerID != "" && o.BuyerID != filter.BuyerID {
				return false
			}
			if filter.SellerID != "" && o.SellerID != filter.SellerID {
				return false
			}
			if filter.Party != "" && o.BuyerID != filter.Party && o.SellerID != filter.Party {
				return false
			}
			return true
		})
		for i := range orders {
			orders[i] = withFontName(st, orders[i])
		}
	})
	byTimeDesc(orders, func(o entity.Order) time.Time { return o.CreatedAt })
	return orders, nil
}

type downloadRepository struct{ s *Store }

func (r *downloadRepository) Record(ctx context.Context, rec *entity.DownloadRecord) error {
	return r.s.write(func(st *state) error {
		st.downloads.put(rec.ID, *rec)
		return nil
	})
}

func (r *downloadRepository) ListByOrder(ctx context.Context, orderID string) ([]entity.DownloadRecord, error) {
	var recs []entity.DownloadRecord
	r.s.read(func(st *state) {
		recs = st.downloads.newestFirst(func(d entity.DownloadRecord) bool { return d.OrderID == orderID })
	})
	byTimeDesc(recs, func(d entity.DownloadRecord) time.Time { return d.DownloadedAt })
	return recs, nil
}

type notificationRepository struct{ s *Store }

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return r.s.write(func(st *state) error {
		st.notifications.put(n.ID, *n)
		return nil
	})
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entity.Notification, error) {
	var out []entity.Notification
	r.s.read(func(st *state) {
		out = st.notifications.newestFirst(func(n entity.Notification) bool { return n.UserID == userID })
	})
	byTimeDesc(out, func(n entity.Notification) time.Time { return n.CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	var marked bool
	err := r.s.write(func(st *state) error {
		n, ok := st.notifications.get(id)
		if !ok || n.UserID != userID {
			return nil
		}
		n.Read = true
		st.notifications.put(id, n)
		marked = true
		return nil
	})
	return marked, err
}

type sponsorshipRepository struct{ s *Store }

func (r *sponsorshipRepository) Create(ctx context.Context, sp *entity.Sponsorship) error {
	return r.s.write(func(st *state) error {
		st.sponsorships.put(sp.ID, *sp)
		return nil
	})
}

type trialKeyRepository struct{ s *Store }

func (r *trialKeyRepository) Create(ctx context.Context, k *entity.TrialKey) error {
	return r.s.write(func(st *state) error {
		for _, existing := range st.trialKeys.rows {
			if existing.FontID == k.FontID && existing.UserID == k.UserID {
				return repository.ErrConflict
			}
		}
		row := *k
		row.FontName = ""
		st.trialKeys.put(k.ID, row)
		return nil
	})
}

func (r *trialKeyRepository) ListByUser(ctx context.Context, userID string) ([]entity.TrialKey, error) {
	var keys []entity.TrialKey
	r.s.read(func(st *state) {
		keys = st.trialKeys.newestFirst(func(k entity.TrialKey) bool {
			_, ok := st.fonts.get(k.FontID)
			return k.UserID == userID && ok
		})
		for i := range keys {
			f, _ := st.fonts.get(keys[i].FontID)
			keys[i].FontName = f.Name
		}
	})
	byTimeDesc(keys, func(k entity.TrialKey) time.Time { return k.CreatedAt })
	return keys, nil
}

type idempotencyRepository struct{ s *Store }

func (r *idempotencyRepository) Get(ctx context.Context, userID, scope, key string) (*repository.IdempotencyRecord, error) {
	var (
		rec repository.IdempotencyRecord
		ok  bool
	)
	r.s.read(func(st *state) { rec, ok = st.idempotency[idemKey{userID, scope, key}] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	rec.Response = slices.Clone(rec.Response)
	return &rec, nil
}

func (r *idempotencyRepository) Save(ctx context.Context, rec *repository.IdempotencyRecord) error {
	return r.s.write(func(st *state) error {
		k := idemKey{rec.UserID, rec.Scope, rec.Key}
		if _, ok := st.idempotency[k]; ok {
			return repository.ErrConflict
		}
		row := *rec
		row.Response = slices.Clone(rec.Response)
		st.idempotency[k] = row
		return nil
	})
}

type eventStore struct{ s *Store }

func (e *eventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	return e.s.write(func(st *state) error {
		stream := st.events[streamID]
		currentVersion := 0
		if len(stream) > 0 {
			currentVersion = stream[len(stream)-1].Version
		}
		if expectedVersion != repository.AnyVersion && currentVersion != expectedVersion {
			return fmt.Errorf("%w: expected version %d, got %d", repository.ErrVersionConflict, expectedVersion, currentVersion)
		}

		appended := slices.Clone(stream)
		now := time.Now()
		for _, event := range events {
			payload, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
			}
			currentVersion++
			appended = append(appended, entity.EventStoreRecord{
				ID:         uuid.NewString(),
				StreamID:   streamID,
				StreamType: streamType,
				Version:    currentVersion,
				EventType:  event.EventType(),
				Payload:    payload,
				CreatedAt:  now,
			})
		}
		st.events[streamID] = appended
		return nil
	})
}

func (e *eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	var records []entity.EventStoreRecord
	e.s.read(func(st *state) { records = slices.Clone(st.events[streamID]) })
	return records, nil
}

