package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOrderDeduplicator claims basket fingerprints with SET NX PX.
type RedisOrderDeduplicator struct {
	client *redis.Client
}

func NewRedisOrderDeduplicator(client *redis.Client) *RedisOrderDeduplicator {
	return &RedisOrderDeduplicator{client: client}
}

func (d *RedisOrderDeduplicator) Claim(ctx context.Context, fingerprint string, window time.Duration) (bool, error) {
	return d.client.SetNX(ctx, keyPrefix+"dedup:"+fingerprint, time.Now().UTC().Unix(), window).Result()
}

func (d *RedisOrderDeduplicator) Release(ctx context.Context, fingerprint string) error {
	return d.client.Del(ctx, keyPrefix+"dedup:"+fingerprint).Err()
}

// MemoryOrderDeduplicator is the single-process fallback when Redis is not configured.
type MemoryOrderDeduplicator struct {
	mu     sync.Mutex
	claims map[string]time.Time
	nowFn  func() time.Time
}

func NewMemoryOrderDeduplicator() *MemoryOrderDeduplicator {
	return &MemoryOrderDeduplicator{claims: make(map[string]time.Time), nowFn: time.Now}
}

func (d *MemoryOrderDeduplicator) Claim(_ context.Context, fingerprint string, window time.Duration) (bool, error) {
	now := d.nowFn()
	d.mu.Lock()
	defer d.mu.Unlock()
	for fp, until := range d.claims {
		if !until.After(now) {
			delete(d.claims, fp)
		}
	}
	if _, taken := d.claims[fingerprint]; taken {
		return false, nil
	}
	d.claims[fingerprint] = now.Add(window)
	return true, nil
}

func (d *MemoryOrderDeduplicator) Release(_ context.Context, fingerprint string) error {
	d.mu.Lock()
	delete(d.claims, fingerprint)
	d.mu.Unlock()
	return nil
}
