// Package cache provides a small in-memory TTL cache with a bounded size.
// It backs short-lived lookups that must stay stable across repeated
// requests, such as per-identifier salt responses.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache maps string keys to values that expire a fixed duration after
// insertion. When the cache is full, inserting a new key evicts the oldest
// entry. All methods are safe for concurrent use.
type TTLCache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	entries map[string]entry[V]
}

// New returns a TTLCache holding at most maxSize entries for ttl each.
// A nil clock defaults to time.Now.
func New[V any](ttl time.Duration, maxSize int, clock func() time.Time) *TTLCache[V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache[V]{
		ttl:     ttl,
		maxSize: maxSize,
		now:     clock,
		entries: make(map[string]entry[V], maxSize),
	}
}

// Get returns the live value for key. Expired entries are removed on the
// way out and reported as absent.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key, resetting its TTL. If the cache is full and
// key is new, the oldest entry is evicted first.
func (c *TTLCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Update replaces the value under key without extending its TTL, so the
// entry still expires relative to its original insertion. It reports
// whether a live entry was present.
func (c *TTLCache[V]) Update(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return false
	}
	c.entries[key] = entry[V]{value: value, storedAt: e.storedAt}
	return true
}

// Delete removes key if present.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *TTLCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, expired ones included until the next
// Sweep or Get touches them.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTLCache[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, e := range c.entries {
		if !found || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, e.storedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
