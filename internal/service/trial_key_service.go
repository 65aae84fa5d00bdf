package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

const (
	trialKeyTTL      = 7 * 24 * time.Hour
	trialKeyMaxUsage = 100
)

// TrialKeyService issues evaluation keys for fonts.
type TrialKeyService struct {
	store repository.Store
	now   func() time.Time
}

func NewTrialKeyService(store repository.Store) *TrialKeyService {
	return &TrialKeyService{store: store, now: time.Now}
}

// Issue creates the user's single trial key for a font.
func (s *TrialKeyService) Issue(ctx context.Context, userID, fontID string) (*entity.TrialKey, error) {
	font, err := s.store.Fonts().Get(ctx, fontID)
	if err != nil {
		return nil, notFoundOr(err, "font not found", "load font")
	}

	now := s.now()
	key := &entity.TrialKey{
		ID:        uuid.NewString(),
		FontID:    font.ID,
		FontName:  font.Name,
		UserID:    userID,
		Key:       rand.Text(),
		ExpiresAt: now.Add(trialKeyTTL),
		MaxUsage:  trialKeyMaxUsage,
		CreatedAt: now,
	}
	err = s.store.TrialKeys().Create(ctx, key)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrConflict("trial key already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trial key: %w", err)
	}
	return key, nil
}

func (s *TrialKeyService) List(ctx context.Context, userID string) ([]entity.TrialKey, error) {
	keys, err := s.store.TrialKeys().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trial keys: %w", err)
	}
	if keys == nil {
		keys = []entity.TrialKey{}
	}
	return keys, nil
}
