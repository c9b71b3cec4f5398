// Package cache provides a bounded in-memory TTL cache.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/lru"
)

// DefaultCapacity bounds caches created without WithCapacity.
const DefaultCapacity = 10_000

type item[V any] struct {
	value     V
	expiresAt time.Time // zero never expires
}

func (i item[V]) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	capacity int
	now      func() time.Time
}

// WithCapacity bounds the number of entries; the least recently used entry is evicted first.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Cache is a thread-safe LRU with per-entry expiry and a background sweeper.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	items lru.BasicLRU[K, item[V]]
	now   func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// New creates a cache. A positive cleanupInterval starts a sweeper removing expired entries.
func New[K comparable, V any](cleanupInterval time.Duration, opts ...Option) *Cache[K, V] {
	o := options{capacity: DefaultCapacity, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[K, V]{
		items: lru.NewBasicLRU[K, item[V]](o.capacity),
		now:   o.now,
		stop:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}

	return c
}

// Get returns a live entry.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if it.expired(c.now()) {
		c.items.Remove(key)
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set stores value for ttl. A ttl of zero or less keeps the entry until evicted.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	it := item[V]{value: value}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.items.Add(key, it)
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.mu.Lock()
	c.items.Remove(key)
	c.mu.Unlock()
}

// Purge removes every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	c.items.Purge()
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included until swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Close stops the sweeper. It is safe to call more than once.
func (c *Cache[K, V]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, k := range c.items.Keys() {
		if it, ok := c.items.Peek(k); ok && it.expired(now) {
			c.items.Remove(k)
		}
	}
}
