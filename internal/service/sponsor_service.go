package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

const maxSponsorDays = 365

// SponsorService sells promoted placement of fonts.
type SponsorService struct {
	store repository.Store
	now   func() time.Time
}

func NewSponsorService(store repository.Store) *SponsorService {
	return &SponsorService{store: store, now: time.Now}
}

// Sponsor records a sponsorship on the seller's font and flags the font.
func (s *SponsorService) Sponsor(ctx context.Context, sellerID, fontID string, amount decimal.Decimal, days int) (*entity.Sponsorship, error) {
	if !amount.IsPositive() {
		return nil, ErrValidation("amount must be positive")
	}
	if days < 1 || days > maxSponsorDays {
		return nil, ErrValidation(fmt.Sprintf("duration must be between 1 and %d days", maxSponsorDays))
	}
	if _, err := requireRole(ctx, s.store, sellerID, entity.RoleSeller); err != nil {
		return nil, err
	}
	font, err := s.store.Fonts().Get(ctx, fontID)
	if err != nil {
		return nil, notFoundOr(err, "font not found or unauthorized", "load font")
	}
	if font.SellerID != sellerID {
		return nil, ErrNotFound("font not found or unauthorized")
	}

	now := s.now()
	sp := &entity.Sponsorship{
		ID:           uuid.NewString(),
		FontID:       font.ID,
		SellerID:     sellerID,
		Amount:       amount,
		DurationDays: days,
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, days),
		Active:       true,
		CreatedAt:    now,
	}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Sponsorships().Create(ctx, sp); err != nil {
			return fmt.Errorf("failed to create sponsorship: %w", err)
		}
		if err := tx.Fonts().SetSponsorship(ctx, font.ID, sp.EndDate); err != nil {
			return fmt.Errorf("failed to flag sponsored font: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Font sponsored", "font_id", font.ID, "days", days)
	return sp, nil
}

// ActiveSponsored returns approved fonts whose sponsorship has not ended.
func (s *SponsorService) ActiveSponsored(ctx context.Context) ([]entity.Font, error) {
	fonts, err := s.store.Fonts().ListSponsored(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list sponsored fonts: %w", err)
	}
	if fonts == nil {
		fonts = []entity.Font{}
	}
	return fonts, nil
}
