// Package cache provides in-memory caching for generated ruleset
// documents.
package cache

import (
	"sync"
	"time"
)

// ResultCache caches rendered ruleset documents keyed by the canonical
// generation parameters. An entry is only served while the store
// fingerprint it was generated from still matches, so reloading the
// category directory invalidates everything at once.
type ResultCache struct {
	mu      sync.RWMutex
	results map[string]*entry
	ttl     time.Duration
}

type entry struct {
	value       []byte
	fingerprint string
	timestamp   time.Time
}

// New creates a ResultCache with the specified TTL.
func New(ttl time.Duration) *ResultCache {
	return &ResultCache{
		results: make(map[string]*entry),
		ttl:     ttl,
	}
}

// Get retrieves a cached document if it is fresh and was generated
// from a store with the given fingerprint.
func (c *ResultCache) Get(key, fingerprint string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.results[key]
	if !ok {
		return nil, false
	}
	if e.fingerprint != fingerprint || time.Since(e.timestamp) > c.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores a document in the cache.
func (c *ResultCache) Set(key string, value []byte, fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[key] = &entry{
		value:       value,
		fingerprint: fingerprint,
		timestamp:   time.Now(),
	}
}

// Cleanup removes expired entries.
func (c *ResultCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.results {
		if now.Sub(e.timestamp) > c.ttl {
			delete(c.results, key)
		}
	}
}
