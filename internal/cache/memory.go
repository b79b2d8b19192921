package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the default process-local cache. Each service instance keeps
// its own copy; no state is shared across instances. Operators who need a
// shared backing store can switch to the Redis implementation instead.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

// NewMemoryCacheWithClock creates an in-memory cache with an injected clock,
// so tests can simulate TTL expiry deterministically
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		now:   now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}

	if c.now().After(item.expiresAt) {
		// Expired entries are dropped lazily; the next Set replaces
		// them wholesale anyway.
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && cur.expiresAt.Equal(item.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()

		return nil, ErrCacheMiss
	}

	return item.value, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = memoryItem{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]memoryItem)
	return nil
}
