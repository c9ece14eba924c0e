// internal/cache/memory.go

package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps serialized map results in memory so that repeated
// requests for an unchanged dataset version and zoom level skip the
// clustering pipeline entirely.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a cache with the given default TTL and
// expired-entry cleanup interval.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a cached payload.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores a payload with the given TTL.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.cache.Set(key, value, ttl)
}

// Delete removes one entry.
func (c *MemoryCache) Delete(key string) {
	c.cache.Delete(key)
}

// Clear removes all entries. Called whenever the dataset recomputes so
// stale results can never be served.
func (c *MemoryCache) Clear() {
	c.cache.Flush()
}
