package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing (for when caching is
// disabled); every lookup misses and every upstream fetch goes through
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (c *NoOpCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
