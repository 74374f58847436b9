package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisMenuCache stores rendered public menus per restaurant.
type RedisMenuCache struct {
	client *redis.Client
}

func NewRedisMenuCache(client *redis.Client) *RedisMenuCache {
	return &RedisMenuCache{client: client}
}

func menuKey(restaurantID uuid.UUID) string {
	return keyPrefix + "menu:" + restaurantID.String()
}

func (c *RedisMenuCache) Get(ctx context.Context, restaurantID uuid.UUID) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, menuKey(restaurantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (c *RedisMenuCache) Set(ctx context.Context, restaurantID uuid.UUID, payload []byte, ttl time.Duration) error {
	return c.client.Set(ctx, menuKey(restaurantID), payload, ttl).Err()
}

func (c *RedisMenuCache) Invalidate(ctx context.Context, restaurantID uuid.UUID) error {
	return c.client.Del(ctx, menuKey(restaurantID)).Err()
}

type menuEntry struct {
	payload   []byte
	expiresAt time.Time
}

type MemoryMenuCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]menuEntry
	nowFn   func() time.Time
}

func NewMemoryMenuCache() *MemoryMenuCache {
	return &MemoryMenuCache{entries: make(map[uuid.UUID]menuEntry), nowFn: time.Now}
}

func (c *MemoryMenuCache) Get(_ context.Context, restaurantID uuid.UUID) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[restaurantID]
	c.mu.RUnlock()
	if !ok || !entry.expiresAt.After(c.nowFn()) {
		return nil, false, nil
	}
	out := make([]byte, len(entry.payload))
	copy(out, entry.payload)
	return out, true, nil
}

func (c *MemoryMenuCache) Set(_ context.Context, restaurantID uuid.UUID, payload []byte, ttl time.Duration) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)
	c.mu.Lock()
	c.entries[restaurantID] = menuEntry{payload: stored, expiresAt: c.nowFn().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryMenuCache) Invalidate(_ context.Context, restaurantID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, restaurantID)
	c.mu.Unlock()
	return nil
}
