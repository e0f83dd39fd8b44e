package ports

import (
	"context"

	"github.com/musichub/catalog-api/internal/core/domain"
)

// ListUsersFilter carries paging for the admin listing.
type ListUsersFilter struct {
	Skip   int    // rows to skip, >= 0
	Limit  int    // max rows, capped by the service
	UserID string // optional: restrict to one id
}

// UserDirectory is the persistent store of user records.
// Lookups return domain.ErrUserNotFound when no record matches; any other
// error means the store itself failed.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// PromoteRole sets role to `to` only if the stored role is still `from`.
	// It reports whether the update applied.
	PromoteRole(ctx context.Context, email string, from, to domain.Role) (bool, error)
	UpdateRole(ctx context.Context, email string, role domain.Role) error
	SetActive(ctx context.Context, email string, active bool) error
	Delete(ctx context.Context, email string) error
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, error)
}
