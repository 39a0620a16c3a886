// Package cache provides a thread-safe, run-scoped memo with TTL support.
package cache

import (
	"sync"
	"time"
)

// entry holds a cached value with expiration.
type entry[V any] struct {
	value      V
	expiration time.Time
}

// Cache memoizes lookups for the lifetime of a single reminder run.
// Expired entries are removed lazily on read.
type Cache[V any] struct {
	entries map[string]entry[V]
	now     func() time.Time
	mu      sync.RWMutex
	ttl     time.Duration
}

// New creates a new cache with the specified default TTL.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a value from cache if not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()
	if !exists {
		return zero, false
	}

	if c.now().After(e.expiration) {
		c.mu.Lock()
		// Double-check after lock upgrade to avoid deleting a fresh Set
		if e, exists := c.entries[key]; exists && c.now().After(e.expiration) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return e.value, true
}

// Set stores a value in cache with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in cache with custom TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:      value,
		expiration: c.now().Add(ttl),
	}
}

// Len returns the number of stored entries, including any not yet evicted.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
