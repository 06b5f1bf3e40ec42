package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// Cache interface for key-value storage
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-memory TTL cache. The underlying expirable LRU is
// created unbounded (size 0) with maxTTL as the eviction backstop; per-call
// TTLs shorter than maxTTL are enforced on read.
type MemoryCache struct {
	lru *expirable.LRU[string, entry]
	log *logger.Logger
}

// NewMemoryCache creates a new in-memory cache. maxTTL must be at least as
// large as the longest per-call TTL callers will use.
func NewMemoryCache(maxTTL time.Duration, log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, entry](0, nil, maxTTL),
		log: log,
	}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}

	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}

	return e.value, true, nil
}

// Set stores a value in cache with TTL (0 = cache default)
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Close closes the cache (for interface compatibility)
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	c.log.Info("memory cache closed")
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"entries": c.lru.Len(),
		"type":    "memory",
	}
}

// NoopCache satisfies Cache when caching is disabled.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (NoopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (NoopCache) Delete(ctx context.Context, key string) error { return nil }

func (NoopCache) Close() error { return nil }
