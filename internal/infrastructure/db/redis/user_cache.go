package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/ports"
)

const (
	defaultUserCacheTTL = 15 * time.Second
	// generation keys must outlive any in-flight read-through.
	generationTTL = 24 * time.Hour
	evictAttempts = 3
	evictBackoff  = 20 * time.Millisecond
)

// errStaleRead aborts a write-back whose record was mutated after it was read.
var errStaleRead = errors.New("user changed during read-through")

// cachedUser is the cache representation; unlike domain.User's JSON form it
// keeps the password hash so login can be served from the cache.
type cachedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"password_hash"`
	Active       bool      `json:"active"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CachedUserDirectory is a read-through cache in front of another directory.
// Email lookups are cached for a short TTL and every mutation evicts the key.
// Redis failures degrade to the backing store.
//
// Each email has a generation counter that every mutation increments. A
// lookup that missed the cache writes its record back only if the counter is
// unchanged since before the store read, so a copy loaded before a
// deactivation or demotion is never cached after it.
type CachedUserDirectory struct {
	next   ports.UserDirectory
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewCachedUserDirectory(next ports.UserDirectory, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedUserDirectory {
	if ttl <= 0 {
		ttl = defaultUserCacheTTL
	}
	return &CachedUserDirectory{next: next, client: client, ttl: ttl, log: log}
}

func (c *CachedUserDirectory) key(email string) string {
	return "user:email:" + email
}

func (c *CachedUserDirectory) genKey(email string) string {
	return "user:gen:" + email
}

func (c *CachedUserDirectory) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	raw, err := c.client.Get(ctx, c.key(email)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if jsonErr := json.Unmarshal(raw, &cu); jsonErr == nil {
			return cu.toDomain(), nil
		}
		c.log.Warn().Str("email", email).Msg("discarding undecodable user cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Msg("user cache read failed")
	}

	// Without the generation seen before the store read a write-back could
	// not be checked, so it is skipped.
	gen, genErr := c.generation(ctx, c.client, email)
	if genErr != nil {
		c.log.Warn().Err(genErr).Msg("user cache generation read failed")
	}

	user, err := c.next.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		c.store(ctx, email, user, gen)
	}
	return user, nil
}

func (c *CachedUserDirectory) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	created, err := c.next.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, created.Email)
	return created, nil
}

func (c *CachedUserDirectory) PromoteRole(ctx context.Context, email string, from, to domain.Role) (bool, error) {
	applied, err := c.next.PromoteRole(ctx, email, from, to)
	c.evict(ctx, email)
	return applied, err
}

func (c *CachedUserDirectory) UpdateRole(ctx context.Context, email string, role domain.Role) error {
	err := c.next.UpdateRole(ctx, email, role)
	c.evict(ctx, email)
	return err
}

func (c *CachedUserDirectory) SetActive(ctx context.Context, email string, active bool) error {
	err := c.next.SetActive(ctx, email, active)
	c.evict(ctx, email)
	return err
}

func (c *CachedUserDirectory) Delete(ctx context.Context, email string) error {
	err := c.next.Delete(ctx, email)
	c.evict(ctx, email)
	return err
}

// List is never cached.
func (c *CachedUserDirectory) List(ctx context.Context, filter ports.ListUsersFilter) ([]*domain.User, error) {
	return c.next.List(ctx, filter)
}

// stringGetter is the part of *redis.Client and *redis.Tx that generation needs.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *CachedUserDirectory) generation(ctx context.Context, cmd stringGetter, email string) (int64, error) {
	gen, err := cmd.Get(ctx, c.genKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// store caches u unless the generation of email moved past seen. WATCH makes
// a mutation landing between the check and the SET abort the transaction.
func (c *CachedUserDirectory) store(ctx context.Context, email string, u *domain.User, seen int64) {
	payload, err := json.Marshal(fromDomain(u))
	if err != nil {
		c.log.Warn().Err(err).Msg("encode user cache entry")
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		gen, err := c.generation(ctx, tx, email)
		if err != nil {
			return err
		}
		if gen != seen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(email), payload, c.ttl)
			return nil
		})
		return err
	}, c.genKey(email))

	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		c.log.Debug().Str("email", email).Msg("user changed during lookup, not cached")
	default:
		c.log.Warn().Err(err).Msg("user cache write failed")
	}
}

// evict bumps the generation of email and drops its entry. It retries a few
// times because a surviving entry would keep serving the old record.
func (c *CachedUserDirectory) evict(ctx context.Context, email string) {
	var err error
	for attempt := range evictAttempts {
		if attempt > 0 {
			time.Sleep(evictBackoff)
		}
		_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, c.genKey(email))
			pipe.Expire(ctx, c.genKey(email), generationTTL)
			pipe.Del(ctx, c.key(email))
			return nil
		})
		if err == nil {
			return
		}
	}
	c.log.Error().Err(fmt.Errorf("evict %s: %w", email, err)).Msg("user cache eviction failed, entry may be stale until it expires")
}

func fromDomain(u *domain.User) cachedUser {
	return cachedUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Active:       u.Active,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (cu cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:           cu.ID,
		Username:     cu.Username,
		Email:        cu.Email,
		PasswordHash: cu.PasswordHash,
		Active:       cu.Active,
		Role:         domain.Role(cu.Role),
		CreatedAt:    cu.CreatedAt,
		UpdatedAt:    cu.UpdatedAt,
	}
}
