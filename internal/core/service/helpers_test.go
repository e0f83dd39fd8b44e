package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/musichub/catalog-api/internal/core/domain"
	"github.com/musichub/catalog-api/internal/core/ports"
	"github.com/musichub/catalog-api/internal/infrastructure/db/memory"
)

var (
	t0         = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testSecret = []byte("test-secret-with-enough-entropy-0123456789")
	errBroken  = errors.New("connection reset by peer")
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCodec(t *testing.T, now func() time.Time) *JWTCodec {
	t.Helper()
	codec, err := NewJWTCodec(TokenCodecConfig{
		Secret:     testSecret,
		Issuer:     "musichub-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		Now:        now,
	})
	require.NoError(t, err)
	return codec
}

// ---------------------------------------------------------------------------
// Directory doubles
// ---------------------------------------------------------------------------

// brokenDirectory fails every call as an unreachable store would.
type brokenDirectory struct{}

func (brokenDirectory) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, errBroken
}
func (brokenDirectory) Create(context.Context, *domain.User) (*domain.User, error) {
	return nil, errBroken
}
func (brokenDirectory) PromoteRole(context.Context, string, domain.Role, domain.Role) (bool, error) {
	return false, errBroken
}
func (brokenDirectory) UpdateRole(context.Context, string, domain.Role) error { return errBroken }
func (brokenDirectory) SetActive(context.Context, string, bool) error         { return errBroken }
func (brokenDirectory) Delete(context.Context, string) error                  { return errBroken }
func (brokenDirectory) List(context.Context, ports.ListUsersFilter) ([]*domain.User, error) {
	return nil, errBroken
}

// countingDirectory counts promotions that actually applied.
type countingDirectory struct {
	*memory.UserDirectory
	promotions atomic.Int32
}

func (d *countingDirectory) PromoteRole(ctx context.Context, email string, from, to domain.Role) (bool, error) {
	ok, err := d.UserDirectory.PromoteRole(ctx, email, from, to)
	if ok {
		d.promotions.Add(1)
	}
	return ok, err
}

type recordingQueue struct {
	mu   sync.Mutex
	sent []ports.Notification
}

func (q *recordingQueue) Enqueue(n ports.Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, n)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	users    ports.UserDirectory
	codec    *JWTCodec
	guard    *Guard
	sessions *SessionService
	queue    *recordingQueue
}

func newFixture(t *testing.T, users ports.UserDirectory, opts ...SessionOption) *fixture {
	t.Helper()
	if users == nil {
		users = memory.NewUserDirectory()
	}
	codec := newTestCodec(t, fixedClock(t0))
	guard := NewGuard(codec, users, zerolog.Nop())
	q := &recordingQueue{}
	opts = append([]SessionOption{WithClock(fixedClock(t0)), WithNotificationQueue(q)}, opts...)

	return &fixture{
		users:    users,
		codec:    codec,
		guard:    guard,
		sessions: NewSessionService(users, NewBcryptVerifier(bcrypt.MinCost), codec, guard, zerolog.Nop(), opts...),
		queue:    q,
	}
}
