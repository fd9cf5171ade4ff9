package fx

import (
	"sync"
	"time"
)

type cacheEntry struct {
	rate      float64
	expiresAt time.Time
}

// Cache is a thread-safe in-memory rate cache with a TTL. It is purely
// an optimization layered over the durable store: stale or evicted
// entries only cost an extra store lookup, never correctness.
type Cache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	ttl   time.Duration
}

// NewCache creates a cache with the given TTL. Expired entries are
// dropped lazily on read.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		items: make(map[string]cacheEntry),
		ttl:   ttl,
	}
}

// Get retrieves a cached rate. Returns false if not found or expired.
func (c *Cache) Get(key string) (float64, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return 0, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return 0, false
	}
	return e.rate, true
}

// Set stores a rate with the configured TTL.
func (c *Cache) Set(key string, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheEntry{
		rate:      rate,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
