// Package cache holds short-lived lookup results in memory, keyed by
// string. The backend uses it to avoid re-querying the CRM for the same
// contact on every session bootstrap. Entries expire after a fixed TTL
// and a sweeper reclaims them in the background.
package cache

import (
	"sync"
	"time"
)

type item[T any] struct {
	value    T
	deadline time.Time
}

// TTL is a concurrency-safe in-memory cache where every entry shares
// one time-to-live.
type TTL[T any] struct {
	mu      sync.RWMutex
	entries map[string]item[T]
	ttl     time.Duration
}

// New builds a TTL cache and starts its background sweeper.
func New[T any](ttl time.Duration) *TTL[T] {
	c := &TTL[T]{
		entries: make(map[string]item[T]),
		ttl:     ttl,
	}
	go c.sweep()
	return c
}

// Get returns the cached value for key. The second result is false when
// the key is absent or its entry has expired.
func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.deadline) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry and
// restarting its TTL.
func (c *TTL[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = item[T]{
		value:    value,
		deadline: time.Now().Add(c.ttl),
	}
}

// Delete drops the entry for key. Callers invalidate a contact after
// writing a number through to the profile store so the next lookup sees
// fresh CRM state.
func (c *TTL[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

func (c *TTL[T]) sweep() {
	interval := c.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for k, e := range c.entries {
			if now.After(e.deadline) {
				delete(c.entries, k)
			}
		}
		c.mu.Unlock()
	}
}
