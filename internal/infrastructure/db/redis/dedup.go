package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupTTL = 24 * time.Hour

// DedupChecker suppresses repeated notifications to one recipient.
// Key format: notify:<kind>:<email>
type DedupChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupChecker creates a DedupChecker; a non-positive ttl uses 24h.
func NewDedupChecker(client *redis.Client, ttl time.Duration) *DedupChecker {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupChecker{client: client, ttl: ttl}
}

// Claim atomically marks (kind, email) as sent. It returns false when the
// mark already existed, meaning the notification was handled before.
func (d *DedupChecker) Claim(ctx context.Context, kind, email string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(kind, email), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Release drops the mark so a failed delivery can be attempted again.
func (d *DedupChecker) Release(ctx context.Context, kind, email string) error {
	return d.client.Del(ctx, d.key(kind, email)).Err()
}

func (d *DedupChecker) key(kind, email string) string {
	return fmt.Sprintf("notify:%s:%s", kind, email)
}
