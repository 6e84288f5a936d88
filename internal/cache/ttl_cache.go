package cache

import (
	"sync"
	"time"
)

// Cache provides a minimal TTL cache interface for hot-path lookups.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache stores values in-memory with per-entry TTLs and a hard entry
// bound. When the bound is reached, Set first drops expired entries and
// then, still full, evicts the entry closest to expiry so the cache can
// never grow without limit.
type TTLCache[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]cacheEntry[V]
	maxEntries int
}

const defaultMaxEntries = 10_000

// NewTTLCache constructs a TTLCache bounded at maxEntries. Values of
// maxEntries <= 0 fall back to the default bound.
func NewTTLCache[K comparable, V any](maxEntries int) *TTLCache[K, V] {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &TTLCache[K, V]{
		items:      make(map[K]cacheEntry[V]),
		maxEntries: maxEntries,
	}
}

// Get returns a cached value if it exists and has not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.Delete(key)
		return zero, false
	}
	return entry.value, true
}

// Set stores a value with the provided TTL, evicting if at capacity.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if c == nil {
		return
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictLocked()
	}
	c.items[key] = cacheEntry[V]{
		value:     value,
		expiresAt: expiresAt,
	}
	c.mu.Unlock()
}

// Delete removes a cached entry.
func (c *TTLCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len reports the current entry count, expired entries included.
func (c *TTLCache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictLocked frees at least one slot. Expired entries go first; with
// none expired, the entry closest to expiry goes. Entries without a TTL
// sort last so they survive longest.
func (c *TTLCache[K, V]) evictLocked() {
	now := time.Now()
	var (
		victim    K
		victimAt  time.Time
		hasVictim bool
	)
	for key, entry := range c.items {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.items, key)
			continue
		}
		at := entry.expiresAt
		if at.IsZero() {
			// Entries without expiry are the least preferred victims.
			at = now.Add(100 * 365 * 24 * time.Hour)
		}
		if !hasVictim || at.Before(victimAt) {
			victim = key
			victimAt = at
			hasVictim = true
		}
	}
	if len(c.items) >= c.maxEntries && hasVictim {
		delete(c.items, victim)
	}
}

// NoopCache always returns cache misses and ignores writes.
type NoopCache[K comparable, V any] struct{}

// Get always returns a miss.
func (NoopCache[K, V]) Get(key K) (V, bool) {
	var zero V
	return zero, false
}

// Set is a no-op.
func (NoopCache[K, V]) Set(key K, value V, ttl time.Duration) {}

// Delete is a no-op.
func (NoopCache[K, V]) Delete(key K) {}
