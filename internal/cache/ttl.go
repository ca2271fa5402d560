// Package cache provides small in-process TTL caches with lazy eviction.
// There is no background sweeper: an expired entry is treated as absent on
// the next lookup and removed at that moment.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a mutex-guarded map whose entries expire a fixed duration after the
// last Put. Safe for concurrent use.
type TTL[K comparable, V any] struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[K]entry[V]
	now func() time.Time // overridable in tests
}

// NewTTL creates a cache with the given entry lifetime.
func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return &TTL[K, V]{
		ttl: ttl,
		m:   make(map[K]entry[V]),
		now: time.Now,
	}
}

// Get returns the live value for key. An expired entry is purged and
// reported as absent.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.m, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key and resets its expiry to now+ttl.
func (c *TTL[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Update mutates the live value for key under the cache lock and refreshes
// its expiry. When the key is absent or expired, fn receives the zero value.
// The returned value is stored back.
func (c *TTL[K, V]) Update(key K, fn func(V, bool) V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.m[key]
	if ok && !now.Before(e.expiresAt) {
		delete(c.m, key)
		ok = false
	}
	var cur V
	if ok {
		cur = e.value
	}
	c.m[key] = entry[V]{value: fn(cur, ok), expiresAt: now.Add(c.ttl)}
}

// Delete removes key if present.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// Len returns the number of stored entries, expired or not.
// Intended for tests and diagnostics.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// SetClock overrides the time source. Tests only.
func (c *TTL[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
