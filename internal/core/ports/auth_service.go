package ports

import (
	"context"
	"time"

	"github.com/musichub/catalog-api/internal/core/domain"
)

// CredentialVerifier hashes and checks passwords.
type CredentialVerifier interface {
	Hash(password string) ([]byte, error)
	Verify(password string, hash []byte) (bool, error)
}

// TokenCodec signs and parses tokens.
type TokenCodec interface {
	Encode(subject string, role domain.Role, typ domain.TokenType, now time.Time) (string, error)
	Decode(token string) (*domain.Claims, error)
}

// Policy is the set of preconditions a protected operation requires.
// An empty Roles slice admits every role.
type Policy struct {
	TokenType domain.TokenType
	Roles     []domain.Role
}

// AccessGuard resolves and authorizes the caller behind a raw token.
type AccessGuard interface {
	Authenticate(ctx context.Context, token string, expected domain.TokenType) (*domain.User, *domain.Claims, error)
	RequireActive(user *domain.User) (*domain.User, error)
	RequireRole(user *domain.User, allowed ...domain.Role) (*domain.User, error)
	Check(ctx context.Context, token string, policy Policy) (*domain.User, *domain.Claims, error)
}

// SessionService is the signup/login/refresh flow.
type SessionService interface {
	Signup(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
}

// UserService covers account administration on top of the directory.
type UserService interface {
	ListUsers(ctx context.Context, filter ListUsersFilter) ([]*domain.User, error)
	DeleteAccount(ctx context.Context, user *domain.User) error
	ChangeRole(ctx context.Context, email string, role domain.Role) error
	SetActive(ctx context.Context, email string, active bool) error
}
