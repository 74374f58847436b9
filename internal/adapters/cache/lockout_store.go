package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

// recordFailureScript counts a failed login atomically. A lock that has already
// expired resets the counter first.
// KEYS[1] lockout hash; ARGV: now (unix s), threshold, window (s), idle ttl (s).
var recordFailureScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local locked = tonumber(redis.call('HGET', KEYS[1], 'locked_until') or '0')
if locked > 0 and locked <= now then
  redis.call('DEL', KEYS[1])
end
local count = redis.call('HINCRBY', KEYS[1], 'failed_count', 1)
if count >= tonumber(ARGV[2]) then
  local untilTs = now + tonumber(ARGV[3])
  redis.call('HSET', KEYS[1], 'locked_until', untilTs)
  redis.call('EXPIRE', KEYS[1], tonumber(ARGV[3]) + 1800)
  return {count, untilTs}
end
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[4]))
return {count, 0}
`)

const lockoutIdleTTL = 24 * time.Hour

// RedisLockoutStore keeps failed staff login counters in Redis hashes so every
// API replica sees the same lockout.
type RedisLockoutStore struct {
	client *redis.Client
}

func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client}
}

func lockoutKey(key string) string { return keyPrefix + "lockout:" + key }

func (s *RedisLockoutStore) Get(ctx context.Context, key string) (ports.LockoutState, error) {
	data, err := s.client.HGetAll(ctx, lockoutKey(key)).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}
	count, _ := strconv.Atoi(data["failed_count"])
	until, _ := strconv.ParseInt(data["locked_until"], 10, 64)
	return lockoutState(int64(count), until), nil
}

func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	windowSecs := int64(lockoutWindow / time.Second)
	if windowSecs < 1 {
		windowSecs = 1
	}
	res, err := recordFailureScript.Run(ctx, s.client, []string{lockoutKey(key)},
		now.Unix(), threshold, windowSecs, int64(lockoutIdleTTL/time.Second)).Int64Slice()
	if err != nil {
		return ports.LockoutState{}, err
	}
	if len(res) != 2 {
		return ports.LockoutState{}, fmt.Errorf("lockout script returned %d values", len(res))
	}
	return lockoutState(res[0], res[1]), nil
}

func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockoutKey(key)).Err()
}

func lockoutState(count, lockedUntilUnix int64) ports.LockoutState {
	state := ports.LockoutState{FailedCount: int(count)}
	if lockedUntilUnix > 0 {
		t := time.Unix(lockedUntilUnix, 0).UTC()
		state.LockedUntil = &t
	}
	return state
}

// MemoryLockoutStore is the single-process lockout store used when no Redis is configured.
type MemoryLockoutStore struct {
	mu      sync.Mutex
	entries map[string]ports.LockoutState
}

func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{entries: make(map[string]ports.LockoutState)}
}

func (s *MemoryLockoutStore) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[key], nil
}

func (s *MemoryLockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.entries[key]
	if state.LockedUntil != nil && !state.LockedUntil.After(now) {
		state = ports.LockoutState{}
	}
	state.FailedCount++
	if state.FailedCount >= threshold {
		lockedUntil := now.Add(lockoutWindow).UTC()
		state.LockedUntil = &lockedUntil
	}
	s.entries[key] = state
	return state, nil
}

func (s *MemoryLockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
