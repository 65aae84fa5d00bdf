package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

// CartService manages the per-user shopping cart.
type CartService struct {
	store repository.Store
	now   func() time.Time
}

func NewCartService(store repository.Store) *CartService {
	return &CartService{store: store, now: time.Now}
}

type CartView struct {
	Items []entity.CartItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

// List returns the user's cart lines with their fonts, newest first.
// Lines whose font no longer exists are left out.
func (s *CartService) List(ctx context.Context, userID string) (*CartView, error) {
	items, err := s.store.Carts().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.FontID)
	}
	fonts, err := s.store.Fonts().GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart fonts: %w", err)
	}
	byID := make(map[string]*entity.Font, len(fonts))
	for i := range fonts {
		byID[fonts[i].ID] = &fonts[i]
	}

	cart := entity.NewCart(userID)
	view := &CartView{Items: []entity.CartItem{}}
	for _, it := range items {
		font, ok := byID[it.FontID]
		if !ok {
			continue
		}
		it.Font = font
		view.Items = append(view.Items, it)
		cart.Add(it)
	}
	view.Total = cart.Total(s.now())
	return view, nil
}

// Add puts an approved font in the cart, incrementing an existing line.
func (s *CartService) Add(ctx context.Context, userID, fontID string, quantity int) (*entity.CartItem, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, ErrValidation("quantity must be positive")
	}
	font, err := s.store.Fonts().Get(ctx, fontID)
	if err != nil {
		return nil, notFoundOr(err, "font not found", "load font")
	}
	if font.Status != entity.FontApproved {
		return nil, ErrNotFound("font not found")
	}

	item, err := s.store.Carts().Add(ctx, userID, fontID, quantity, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}
	item.Font = font
	return item, nil
}

func (s *CartService) SetQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity < 1 {
		return ErrValidation("quantity must be at least 1")
	}
	if err := s.store.Carts().SetQuantity(ctx, userID, itemID, quantity, s.now()); err != nil {
		return notFoundOr(err, "cart item not found", "update cart item")
	}
	return nil
}

func (s *CartService) Remove(ctx context.Context, userID, itemID string) error {
	if err := s.store.Carts().Remove(ctx, userID, itemID); err != nil {
		return notFoundOr(err, "cart item not found", "remove cart item")
	}
	return nil
}

// Clear empties the cart and returns how many lines were removed.
func (s *CartService) Clear(ctx context.Context, userID string) (int, error) {
	n, err := s.store.Carts().Clear(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return n, nil
}
