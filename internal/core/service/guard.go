package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/ports"
)

// Reusable per-endpoint policies.
var (
	AccessPolicy  = ports.Policy{TokenType: domain.TokenTypeAccess}
	AdminPolicy   = ports.Policy{TokenType: domain.TokenTypeAccess, Roles: []domain.Role{domain.RoleAdmin}}
	RefreshPolicy = ports.Policy{TokenType: domain.TokenTypeRefresh}
)

// Guard implements ports.AccessGuard.
type Guard struct {
	codec ports.TokenCodec
	users ports.UserDirectory
	log   zerolog.Logger
}

func NewGuard(codec ports.TokenCodec, users ports.UserDirectory, log zerolog.Logger) *Guard {
	return &Guard{codec: codec, users: users, log: log}
}

// Authenticate decodes token, checks its type and resolves its subject.
// Absent and inactive subjects are both reported as domain.ErrUserNotFound;
// directory failures are reported as domain.ErrStoreUnavailable.
func (g *Guard) Authenticate(ctx context.Context, token string, expected domain.TokenType) (*domain.User, *domain.Claims, error) {
	claims, err := g.codec.Decode(token)
	if err != nil {
		return nil, nil, err
	}
	if claims.Type != expected {
		return nil, nil, fmt.Errorf("%w: expected %s, got %s", domain.ErrInvalidTokenType, expected, claims.Type)
	}
	if claims.Subject == "" {
		g.log.Warn().Str("jti", claims.ID).Msg("token payload does not contain sub")
		return nil, nil, domain.ErrTokenSubjectMissing
	}

	user, err := g.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			g.log.Warn().Str("email", claims.Subject).Msg("token subject not found")
			return nil, nil, domain.ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if !user.Active {
		g.log.Warn().Str("email", claims.Subject).Msg("token subject inactive")
		return nil, nil, domain.ErrUserNotFound
	}

	return user, claims, nil
}

func (g *Guard) RequireActive(user *domain.User) (*domain.User, error) {
	if user == nil || !user.Active {
		return nil, domain.ErrInactiveUser
	}
	return user, nil
}

func (g *Guard) RequireRole(user *domain.User, allowed ...domain.Role) (*domain.User, error) {
	if user == nil || !slices.Contains(allowed, user.Role) {
		return nil, domain.ErrInsufficientRights
	}
	return user, nil
}

// Check runs authenticate -> requireActive -> requireRole, stopping at the
// first failure. Roles are only enforced when the policy lists some.
func (g *Guard) Check(ctx context.Context, token string, policy ports.Policy) (*domain.User, *domain.Claims, error) {
	user, claims, err := g.Authenticate(ctx, token, policy.TokenType)
	if err != nil {
		return nil, nil, err
	}
	if _, err := g.RequireActive(user); err != nil {
		return nil, nil, err
	}
	if len(policy.Roles) > 0 {
		if _, err := g.RequireRole(user, policy.Roles...); err != nil {
			return nil, nil, err
		}
	}
	return user, claims, nil
}
