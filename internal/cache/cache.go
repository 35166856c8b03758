// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/biodscan/internal/metrics"
)

// Entry is a cached value with its expiry.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Cache is a thread-safe TTL cache. Expired entries are dropped lazily on
// Get and swept on Set, so no background goroutine is needed.
type Cache[V any] struct {
	name    string
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]Entry[V]
	nowFunc func() time.Time
}

// New returns a cache whose entries live for ttl. name labels the
// cache_lookups_total and cache_evictions_total metrics.
func New[V any](name string, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		name:    name,
		ttl:     ttl,
		entries: make(map[string]Entry[V]),
		nowFunc: time.Now,
	}
}

// Get returns the value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	now := c.nowFunc()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && now.Before(entry.ExpiresAt) {
		metrics.RecordCacheLookup(c.name, true)
		return entry.Value, true
	}

	if ok {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed it.
		if cur, still := c.entries[key]; still && !now.Before(cur.ExpiresAt) {
			delete(c.entries, key)
			metrics.RecordCacheEviction(c.name, 1)
		}
		c.mu.Unlock()
	}
	metrics.RecordCacheLookup(c.name, false)

	var zero V
	return zero, false
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	now := c.nowFunc()

	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
			expired++
		}
	}
	metrics.RecordCacheEviction(c.name, expired)
	c.entries[key] = Entry[V]{Value: value, ExpiresAt: now.Add(ttl)}
}

// GetOrLoad returns the cached value for key, calling load on a miss.
// Errors from load are returned and not cached.
func (c *Cache[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
