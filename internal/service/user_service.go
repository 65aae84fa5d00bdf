package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
)

// UserService manages marketplace accounts.
type UserService struct {
	store repository.Store
	now   func() time.Time
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store, now: time.Now}
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, userID string) (*entity.User, error) {
	return loadUser(ctx, s.store, userID)
}

// ProfileInput is the self-service part of an account.
type ProfileInput struct {
	Email       string
	DisplayName string
	Role        entity.Role
}

// UpsertProfile creates or updates the caller's account. Admin is never self-assigned.
func (s *UserService) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (*entity.User, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.DisplayName == "" {
		return nil, ErrValidation("display name is required")
	}
	if in.Role == "" {
		in.Role = entity.RoleBuyer
	}
	if in.Role != entity.RoleBuyer && in.Role != entity.RoleSeller {
		return nil, ErrValidation("role must be buyer or seller")
	}

	now := s.now()
	user := &entity.User{
		ID:          userID,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Role:        in.Role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	existing, err := s.store.Users().Get(ctx, userID)
	switch {
	case err == nil:
		user.CreatedAt = existing.CreatedAt
		if existing.Role == entity.RoleAdmin {
			user.Role = entity.RoleAdmin
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.store.Users().Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return loadUser(ctx, s.store, userID)
}

// SetRole changes a user's role. It is reachable from the CLI only.
func (s *UserService) SetRole(ctx context.Context, userID string, role entity.Role) error {
	if !role.Valid() {
		return ErrValidation("unknown role " + string(role))
	}
	if err := s.store.Users().SetRole(ctx, userID, role); err != nil {
		return notFoundOr(err, "user not found", "set role")
	}
	slog.Info("Role changed", "user_id", userID, "role", role)
	return nil
}

func loadUser(ctx context.Context, store repository.Store, userID string) (*entity.User, error) {
	user, err := store.Users().Get(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load user")
	}
	return user, nil
}

// requireRole loads the user and checks that it holds one of roles.
func requireRole(ctx context.Context, store repository.Store, userID string, roles ...entity.Role) (*entity.User, error) {
	user, err := store.Users().Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrForbidden("account profile required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !slices.Contains(roles, user.Role) {
		return nil, ErrForbidden(fmt.Sprintf("%s access required", roles[0]))
	}
	return user, nil
}
