// Package ratelimit provides per-caller token bucket limiting for fiber routes.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const staleAfter = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store maps caller keys to limiters. Idle entries are swept lazily, at most once a minute.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*entry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewStore(rps float64, burst int) *Store {
	if burst < 1 {
		burst = 1
	}
	return &Store{
		entries: map[string]*entry{},
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

func (s *Store) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > time.Minute {
		s.sweep(now)
	}
	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (s *Store) sweep(now time.Time) {
	cutoff := now.Add(-staleAfter)
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
	s.lastSweep = now
}

func (s *Store) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Middleware limits requests per key. keyFn returning "" falls back to the client IP.
// A non-positive rps disables limiting.
func Middleware(rps float64, burst int, keyFn func(c *fiber.Ctx) string) fiber.Handler {
	if rps <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	store := NewStore(rps, burst)
	return func(c *fiber.Ctx) error {
		key := ""
		if keyFn != nil {
			key = keyFn(c)
		}
		if key == "" {
			key = "ip:" + c.IP()
		} else {
			key = "uid:" + key
		}
		if !store.Allow(key) {
			c.Set(fiber.HeaderRetryAfter, "1")
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}
