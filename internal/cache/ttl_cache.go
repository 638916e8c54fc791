// Package cache provides a thread-safe cache with time-based expiration.
// The preview server uses it to avoid re-rendering page content it has
// already seen, keyed by content hash.
package cache

import (
	"sync"
	"time"
)

// TTLCache is a thread-safe cache with per-entry time-based expiration and
// a size cap. When the cache is full, inserting a new key evicts every
// expired entry; if nothing has expired, the insert replaces nothing and the
// new entry is still stored, pushing the cache one over its cap at worst
// until the next sweep.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	data    map[K]entry[V]
	ttl     time.Duration
	maxSize int
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// New creates a TTLCache holding up to maxSize entries, each valid for ttl.
func New[K comparable, V any](ttl time.Duration, maxSize int) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data:    make(map[K]entry[V]),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a value from the cache.
// Returns the value and ok=true if the key exists and has not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || time.Now().After(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value in the cache with a fresh expiry.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.data) >= c.maxSize {
		c.sweepLocked()
	}
	c.data[key] = entry[V]{value: value, expires: time.Now().Add(c.ttl)}
}

// sweepLocked drops every expired entry. MUST be called with the write lock
// held.
func (c *TTLCache[K, V]) sweepLocked() {
	now := time.Now()
	for k, e := range c.data {
		if now.After(e.expires) {
			delete(c.data, k)
		}
	}
}

// Invalidate clears all cached data.
func (c *TTLCache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]entry[V])
}

// Len returns the number of items currently in the cache, expired or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
