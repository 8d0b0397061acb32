// Package cache provides a time-bounded cache on top of a storage backend.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/picatz/bato/internal/chat/storage"
	"github.com/picatz/bato/internal/chat/storage/memory"
)

// DefaultTTL is how long an entry stays fresh when no TTL is given.
const DefaultTTL = 5 * time.Minute

// Entry is a cached value and the time it was stored.
type Entry[V any] struct {
	Value    V         `json:"value"`
	StoredAt time.Time `json:"storedAt"`
}

// Cache maps string keys to values that expire after a fixed TTL. Expired entries are
// deleted when they are read.
type Cache[V any] struct {
	backend storage.Backend[string, Entry[V]]
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithBackend stores entries in b instead of a new memory backend.
func WithBackend[V any](b storage.Backend[string, Entry[V]]) Option[V] {
	return func(c *Cache[V]) {
		c.backend = b
	}
}

// WithClock replaces time.Now, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// WithLogger sets the logger used to report backend failures.
func WithLogger[V any](logger *slog.Logger) Option[V] {
	return func(c *Cache[V]) {
		c.logger = logger
	}
}

// New returns a cache whose entries stay fresh for ttl. A ttl of zero or less selects
// DefaultTTL.
func New[V any](ttl time.Duration, opts ...Option[V]) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache[V]{
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backend == nil {
		c.backend = memory.NewBackend[string, Entry[V]]()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	return c
}

// Get returns the value stored under key if it is still fresh.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V

	e, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	if c.now().Sub(e.StoredAt) > c.ttl {
		c.delete(ctx, key)
		return zero, false
	}

	return e.Value, true
}

// Set stores value under key.
func (c *Cache[V]) Set(ctx context.Context, key string, value V) {
	err := c.backend.Set(ctx, key, Entry[V]{Value: value, StoredAt: c.now()})
	if err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Invalidate deletes every entry whose key contains pattern and returns how many were
// removed. An empty pattern matches every key.
func (c *Cache[V]) Invalidate(ctx context.Context, pattern string) int {
	entries, err := storage.All(ctx, c.backend)
	if err != nil {
		c.logger.Warn("cache invalidation failed", "pattern", pattern, "error", err)
		return 0
	}

	var n int
	for _, e := range entries {
		if strings.Contains(e.Key, pattern) {
			c.delete(ctx, e.Key)
			n++
		}
	}

	if n > 0 {
		c.logger.Debug("cache invalidated", "pattern", pattern, "entries", n)
	}
	return n
}

func (c *Cache[V]) delete(ctx context.Context, key string) {
	if err := c.backend.Delete(ctx, key); err != nil {
		c.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}
