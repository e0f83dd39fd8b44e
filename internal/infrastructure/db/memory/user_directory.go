// Package memory is a process-local user directory for development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/ports"
)

// UserDirectory implements ports.UserDirectory over a map keyed by email.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	seq   int64
	order map[string]int64
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{
		users: make(map[string]*domain.User),
		order: make(map[string]int64),
	}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.PasswordHash = slices.Clone(u.PasswordHash)
	return &c
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (d *UserDirectory) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[user.Email]; ok {
		return nil, domain.ErrUserExists
	}
	for _, u := range d.users {
		if strings.EqualFold(u.Username, user.Username) {
			return nil, domain.ErrUserExists
		}
	}

	stored := cloneUser(user)
	stored.ID = uuid.NewString()
	d.seq++
	d.users[stored.Email] = stored
	d.order[stored.Email] = d.seq
	return cloneUser(stored), nil
}

func (d *UserDirectory) PromoteRole(ctx context.Context, email string, from, to domain.Role) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[email]
	if !ok || u.Role != from {
		return false, nil
	}
	u.Role = to
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (d *UserDirectory) UpdateRole(ctx context.Context, email string, role domain.Role) error {
	return d.mutate(ctx, email, func(u *domain.User) { u.Role = role })
}

func (d *UserDirectory) SetActive(ctx context.Context, email string, active bool) error {
	return d.mutate(ctx, email, func(u *domain.User) { u.Active = active })
}

func (d *UserDirectory) mutate(ctx context.Context, email string, fn func(*domain.User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[email]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *UserDirectory) Delete(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[email]; !ok {
		return domain.ErrUserNotFound
	}
	delete(d.users, email)
	delete(d.order, email)
	return nil
}

// List returns users in insertion order.
func (d *UserDirectory) List(ctx context.Context, filter ports.ListUsersFilter) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := make([]*domain.User, 0, len(d.users))
	for _, u := range d.users {
		if filter.UserID != "" && u.ID != filter.UserID {
			continue
		}
		all = append(all, u)
	}
	slices.SortFunc(all, func(a, b *domain.User) int {
		return int(d.order[a.Email] - d.order[b.Email])
	})

	if filter.Skip >= len(all) {
		return []*domain.User{}, nil
	}
	all = all[filter.Skip:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}

	out := make([]*domain.User, len(all))
	for i, u := range all {
		out[i] = cloneUser(u)
	}
	return out, nil
}
