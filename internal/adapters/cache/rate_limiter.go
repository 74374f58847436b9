package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
	"golang.org/x/time/rate"
)

// fixedWindowScript increments the window counter and arms its expiry on first hit.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisRateLimiter is a fixed-window limiter shared by every API replica.
type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (ports.RateDecision, error) {
	if limit <= 0 || window <= 0 {
		return ports.RateDecision{Allowed: true, Limit: limit}, nil
	}
	res, err := fixedWindowScript.Run(ctx, l.client, []string{keyPrefix + "ratelimit:" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return ports.RateDecision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return ports.RateDecision{}, fmt.Errorf("rate limit script: unexpected reply length %d", len(res))
	}
	count, ttlMillis := res[0], res[1]
	if ttlMillis < 0 {
		ttlMillis = window.Milliseconds()
	}
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	decision := ports.RateDecision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: int(remaining),
	}
	if !decision.Allowed {
		decision.RetryAfter = time.Duration(ttlMillis) * time.Millisecond
	}
	return decision, nil
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter keeps a token bucket per key. Buckets idle longer than
// idleTTL are evicted every sweepEvery calls.
type MemoryRateLimiter struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	idleTTL    time.Duration
	sweepEvery int
	hits       int
	nowFn      func() time.Time
}

func NewMemoryRateLimiter(idleTTL time.Duration) *MemoryRateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &MemoryRateLimiter{
		entries:    make(map[string]*limiterEntry),
		idleTTL:    idleTTL,
		sweepEvery: 512,
		nowFn:      time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (ports.RateDecision, error) {
	if limit <= 0 || window <= 0 {
		return ports.RateDecision{Allowed: true, Limit: limit}, nil
	}
	now := l.nowFn()
	every := rate.Every(window / time.Duration(limit))

	l.mu.Lock()
	defer l.mu.Unlock()

	l.hits++
	if l.hits%l.sweepEvery == 0 {
		l.evictIdle(now)
	}

	entry, ok := l.entries[key]
	if !ok || entry.limiter.Burst() != limit || entry.limiter.Limit() != every {
		entry = &limiterEntry{limiter: rate.NewLimiter(every, limit)}
		l.entries[key] = entry
	}
	entry.lastSeen = now

	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return ports.RateDecision{Allowed: false, Limit: limit, RetryAfter: window}, nil
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return ports.RateDecision{Allowed: false, Limit: limit, RetryAfter: delay}, nil
	}
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return ports.RateDecision{Allowed: true, Limit: limit, Remaining: remaining}, nil
}

func (l *MemoryRateLimiter) evictIdle(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.entries, key)
		}
	}
}

// Len reports the number of tracked buckets.
func (l *MemoryRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
