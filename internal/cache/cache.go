package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache stores computed server listings keyed by provider and operation.
// Invalidation is time-only: entries expire after their TTL and are replaced
// wholesale on the next write; there is no eviction API.
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close closes the cache and releases its resources
	Close() error
}

// Key builds a cache key from a provider name and operation parameters
func Key(parts ...string) string {
	key := parts[0]
	for _, part := range parts[1:] {
		key += ":" + part
	}
	return key
}
