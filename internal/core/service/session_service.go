package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/ports"
)

// SessionService implements signup, login and refresh. It keeps no state
// between calls; the only write outside signup is the login promotion.
type SessionService struct {
	users    ports.UserDirectory
	verifier ports.CredentialVerifier
	codec    ports.TokenCodec
	guard    ports.AccessGuard
	notify   ports.NotificationQueue
	promote  PromotionPolicy
	now      func() time.Time
	log      zerolog.Logger
}

// SessionOption customises a SessionService.
type SessionOption func(*SessionService)

// WithPromotionPolicy overrides the role transition applied on login.
func WithPromotionPolicy(p PromotionPolicy) SessionOption {
	return func(s *SessionService) {
		if p != nil {
			s.promote = p
		}
	}
}

// WithNotificationQueue enables the welcome message after signup.
func WithNotificationQueue(q ports.NotificationQueue) SessionOption {
	return func(s *SessionService) { s.notify = q }
}

// WithClock sets the time source used as token issue time.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSessionService(
	users ports.UserDirectory,
	verifier ports.CredentialVerifier,
	codec ports.TokenCodec,
	guard ports.AccessGuard,
	log zerolog.Logger,
	opts ...SessionOption,
) *SessionService {
	s := &SessionService{
		users:    users,
		verifier: verifier,
		codec:    codec,
		guard:    guard,
		promote:  PromoteGuestToAdmin,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers a guest account. The email must not be registered yet.
func (s *SessionService) Signup(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = domain.NormalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", domain.ErrInvalidInput)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		s.log.Warn().Str("email", email).Msg("signup with an email that already exists")
		return nil, domain.ErrUserExists
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	hash, err := s.verifier.Hash(password)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, domain.NewUser(username, email, hash, s.now().UTC()))
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	if s.notify != nil {
		s.notify.Enqueue(ports.Notification{
			Kind:     ports.NotificationWelcome,
			Username: created.Username,
			Email:    created.Email,
		})
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user created")
	return created, nil
}

// Login verifies credentials, applies the promotion policy and issues an
// access and a refresh token. Nothing is returned unless both are signed.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn().Str("email", email).Msg("login attempt for unknown email")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	ok, err := s.verifier.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash is unusable")
		return nil, err
	}
	if !ok {
		s.log.Warn().Str("email", email).Msg("login attempt failed: incorrect password")
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrInactiveUser
	}

	user, err = s.applyPromotion(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now()
	access, err := s.codec.Encode(user.Email, user.Role, domain.TokenTypeAccess, now)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.Encode(user.Email, user.Role, domain.TokenTypeRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	s.log.Info().Str("username", user.Username).Str("role", user.Role.String()).Msg("user logged in")
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.BearerScheme,
	}, nil
}

// applyPromotion moves user to the policy's target role with a conditional
// update. When another request won the race the record is re-read so the
// issued tokens carry the stored role.
func (s *SessionService) applyPromotion(ctx context.Context, user *domain.User) (*domain.User, error) {
	target, due := s.promote(user.Role)
	if !due || target == user.Role {
		return user, nil
	}

	applied, err := s.users.PromoteRole(ctx, user.Email, user.Role, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if applied {
		s.log.Info().Str("user_id", user.ID).Str("from", user.Role.String()).Str("to", target.String()).Msg("role promoted on login")
		promoted := *user
		promoted.Role = target
		return &promoted, nil
	}

	current, err := s.users.FindByEmail(ctx, user.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if !current.Active {
		return nil, domain.ErrInactiveUser
	}
	return current, nil
}

// Refresh exchanges a valid refresh token for a new access token carrying the
// user's current role. The refresh token itself is not rotated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	user, _, err := s.guard.Check(ctx, refreshToken, RefreshPolicy)
	if err != nil {
		return nil, err
	}

	access, err := s.codec.Encode(user.Email, user.Role, domain.TokenTypeAccess, s.now())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, TokenType: domain.BearerScheme}, nil
}
