package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/ports"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// UserService implements account administration.
type UserService struct {
	users ports.UserDirectory
	log   zerolog.Logger
}

func NewUserService(users ports.UserDirectory, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

// ListUsers returns a page of users ordered by id. Limit defaults to 10 and is
// capped at 100.
func (s *UserService) ListUsers(ctx context.Context, filter ports.ListUsersFilter) ([]*domain.User, error) {
	if filter.Skip < 0 {
		return nil, fmt.Errorf("%w: skip must be >= 0", domain.ErrInvalidInput)
	}
	switch {
	case filter.Limit == 0:
		filter.Limit = defaultListLimit
	case filter.Limit < 0:
		return nil, fmt.Errorf("%w: limit must be >= 1", domain.ErrInvalidInput)
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return users, nil
}

// DeleteAccount removes the caller's own record.
func (s *UserService) DeleteAccount(ctx context.Context, user *domain.User) error {
	if err := s.users.Delete(ctx, user.Email); err != nil {
		return wrapStoreErr(err)
	}
	s.log.Info().Str("user_id", user.ID).Msg("account deleted")
	return nil
}

func (s *UserService) ChangeRole(ctx context.Context, email string, role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	email = domain.NormalizeEmail(email)
	if err := s.users.UpdateRole(ctx, email, role); err != nil {
		return wrapStoreErr(err)
	}
	s.log.Info().Str("email", email).Str("role", role.String()).Msg("role changed")
	return nil
}

func (s *UserService) SetActive(ctx context.Context, email string, active bool) error {
	email = domain.NormalizeEmail(email)
	if err := s.users.SetActive(ctx, email, active); err != nil {
		return wrapStoreErr(err)
	}
	s.log.Info().Str("email", email).Bool("active", active).Msg("active flag changed")
	return nil
}

// wrapStoreErr keeps not-found distinguishable from a failing store.
func wrapStoreErr(err error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
