package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

// WishlistService manages the fonts a user is watching.
type WishlistService struct {
	store repository.Store
	now   func() time.Time
}

func NewWishlistService(store repository.Store) *WishlistService {
	return &WishlistService{store: store, now: time.Now}
}

func (s *WishlistService) Add(ctx context.Context, userID, fontID string) error {
	if _, err := s.store.Fonts().Get(ctx, fontID); err != nil {
		return notFoundOr(err, "font not found", "load font")
	}
	if err := s.store.Users().AddToWishlist(ctx, userID, fontID); err != nil {
		return notFoundOr(err, "user not found", "update wishlist")
	}
	return nil
}

func (s *WishlistService) Remove(ctx context.Context, userID, fontID string) error {
	if err := s.store.Users().RemoveFromWishlist(ctx, userID, fontID); err != nil {
		return notFoundOr(err, "user not found", "update wishlist")
	}
	return nil
}

// List returns the wishlisted fonts that still exist.
func (s *WishlistService) List(ctx context.Context, userID string) ([]entity.Font, error) {
	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	fonts, err := s.store.Fonts().GetMany(ctx, user.Wishlist)
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist fonts: %w", err)
	}
	if fonts == nil {
		fonts = []entity.Font{}
	}
	return fonts, nil
}

type PriceAlert struct {
	Font           entity.Font          `json:"font"`
	Kind           entity.PromotionKind `json:"kind"`
	EffectivePrice decimal.Decimal      `json:"effectivePrice"`
	EndsAt         time.Time            `json:"endsAt"`
}

// PriceMonitor returns wishlisted fonts that are currently on sale or given away.
func (s *WishlistService) PriceMonitor(ctx context.Context, userID string) ([]PriceAlert, error) {
	fonts, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	alerts := []PriceAlert{}
	for _, f := range fonts {
		if !f.Promotion.Active(now) {
			continue
		}
		alerts = append(alerts, PriceAlert{
			Font:           f,
			Kind:           f.Promotion.Kind,
			EffectivePrice: f.EffectivePrice(now),
			EndsAt:         f.Promotion.EndsAt,
		})
	}
	return alerts, nil
}
