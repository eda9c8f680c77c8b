// Package cache provides the short-lived entity-by-id memoization layer used
// by repositories. It never changes observable behavior, only latency.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultTTL bounds how long an entry may be served after it was stored.
	DefaultTTL = 5 * time.Minute
	// DefaultSize bounds the number of cached entries.
	DefaultSize = 1000
)

// Config tunes a TTL cache. Zero values select the defaults; a negative Size
// disables caching entirely. Now overrides the clock used for expiry.
type Config struct {
	TTL  time.Duration
	Size int
	Now  func() time.Time
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL memoizes values by id with expiry. A nil *TTL is a valid, always-missing cache.
// Expiry is checked on read, so a cache owns no background goroutine and
// needs no Close.
type TTL[V any] struct {
	lru *lru.Cache[string, entry[V]]
	ttl time.Duration
	now func() time.Time
}

// New constructs a TTL cache, or returns nil when cfg disables caching.
func New[V any](cfg Config) *TTL[V] {
	if cfg.Size < 0 {
		return nil
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	size := cfg.Size
	if size == 0 {
		size = DefaultSize
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	// size is positive here, the only case lru.New rejects
	c, _ := lru.New[string, entry[V]](size)
	return &TTL[V]{lru: c, ttl: ttl, now: now}
}

// Get returns the cached value iff present and younger than the TTL.
func (c *TTL[V]) Get(id string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	e, ok := c.lru.Get(id)
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expires) {
		c.lru.Remove(id)
		return zero, false
	}
	return e.value, true
}

// Set stores value under id. The least recently used entries are evicted
// once the size bound is reached.
func (c *TTL[V]) Set(id string, value V) {
	if c == nil {
		return
	}
	c.lru.Add(id, entry[V]{value: value, expires: c.now().Add(c.ttl)})
}

// Invalidate drops id so the next read goes to the backing collection.
func (c *TTL[V]) Invalidate(id string) {
	if c == nil {
		return
	}
	c.lru.Remove(id)
}

// Purge drops every entry.
func (c *TTL[V]) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Len reports the number of stored entries, including expired ones not yet read.
func (c *TTL[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
