package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxCacheTTL = 24 * time.Hour
	// fillTTL bounds entries written from a read path, which may race a newer issue.
	fillTTL = 5 * time.Minute
)

// TokenCache keeps the current verification token of an activity in Redis so
// check-in bursts do not hit Postgres. A nil cache or client is a no-op.
type TokenCache struct {
	client *redis.Client
}

func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

func tokenKey(activityID string) string {
	return "checkin-token:" + activityID
}

func (c *TokenCache) enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached token. A miss is reported as ok=false with a nil error.
func (c *TokenCache) Get(ctx context.Context, activityID string) (VerificationToken, bool, error) {
	if !c.enabled() {
		return VerificationToken{}, false, nil
	}
	raw, err := c.client.Get(ctx, tokenKey(activityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return VerificationToken{}, false, nil
	}
	if err != nil {
		return VerificationToken{}, false, err
	}
	var t VerificationToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return VerificationToken{}, false, err
	}
	return t, true, nil
}

// Put stores t until it expires, capped at a day. Only writers of the
// verification_tokens row call it; the entry replaces whatever is cached.
func (c *TokenCache) Put(ctx context.Context, t VerificationToken, now time.Time) error {
	if !c.enabled() {
		return nil
	}
	ttl, ok := cacheTTL(t, now, maxCacheTTL)
	if !ok {
		return c.Drop(ctx, t.ActivityID)
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tokenKey(t.ActivityID), raw, ttl).Err()
}

// Fill caches a token loaded from Postgres unless an entry already exists, so a
// slow reader never overwrites a token written by a concurrent issue or revoke.
func (c *TokenCache) Fill(ctx context.Context, t VerificationToken, now time.Time) error {
	if !c.enabled() {
		return nil
	}
	ttl, ok := cacheTTL(t, now, fillTTL)
	if !ok {
		return nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, tokenKey(t.ActivityID), raw, ttl).Err()
}

func cacheTTL(t VerificationToken, now time.Time, limit time.Duration) (time.Duration, bool) {
	if t.ExpiresAt == nil {
		return limit, true
	}
	ttl := t.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return 0, false
	}
	if ttl > limit {
		ttl = limit
	}
	return ttl, true
}

func (c *TokenCache) Drop(ctx context.Context, activityID string) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, tokenKey(activityID)).Err()
}
