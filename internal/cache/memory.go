package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process cache for single-instance deployments and tests
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a cache that purges expired entries every cleanupInterval
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (c *MemoryCache) Get(_ context.Context, code string) (string, bool, error) {
	val, ok := c.store.Get(code)
	if !ok {
		return "", false, nil
	}
	url, ok := val.(string)
	return url, ok, nil
}

// Set stores the URL; ttl 0 means no expiration
func (c *MemoryCache) Set(_ context.Context, code, url string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(code, url, ttl)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, code string) error {
	c.store.Delete(code)
	return nil
}

func (c *MemoryCache) Ping(context.Context) error {
	return nil
}

func (c *MemoryCache) Close() error {
	c.store.Flush()
	return nil
}
