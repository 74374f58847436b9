package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RateDecision is the outcome of one rate-limit check.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts hits per key. Implementations exist for a single process and for Redis.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error)
}

// OrderDeduplicator suppresses identical baskets submitted inside a short window.
// Claim returns false when the fingerprint is already held.
type OrderDeduplicator interface {
	Claim(ctx context.Context, fingerprint string, window time.Duration) (bool, error)
	Release(ctx context.Context, fingerprint string) error
}

// MenuCache stores the serialized public menu per restaurant.
type MenuCache interface {
	Get(ctx context.Context, restaurantID uuid.UUID) ([]byte, bool, error)
	Set(ctx context.Context, restaurantID uuid.UUID, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, restaurantID uuid.UUID) error
}

// LockoutState is the current lockout envelope for a login key.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore handles short-lived brute-force protection state.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}
