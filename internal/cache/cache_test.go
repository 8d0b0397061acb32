package cache_test

import (
	"testing"
	"time"

	"github.com/picatz/bato/internal/cache"
	"github.com/picatz/bato/internal/chat/storage/memory"
	"github.com/shoenig/test/must"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCache(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New(time.Minute, cache.WithClock[string](clk.now))

	_, ok := c.Get(t.Context(), "missing")
	must.False(t, ok)

	c.Set(t.Context(), "k", "v")

	v, ok := c.Get(t.Context(), "k")
	must.True(t, ok)
	must.Eq(t, "v", v)

	clk.advance(time.Minute)
	_, ok = c.Get(t.Context(), "k")
	must.True(t, ok)

	clk.advance(time.Second)
	_, ok = c.Get(t.Context(), "k")
	must.False(t, ok)
}

func TestCache_expiredEntriesAreDeleted(t *testing.T) {
	clk := &clock{t: time.Now()}
	backend := memory.NewBackend[string, cache.Entry[int]]()
	c := cache.New(time.Second, cache.WithBackend[int](backend), cache.WithClock[int](clk.now))

	c.Set(t.Context(), "k", 1)
	must.Eq(t, 1, backend.Len())

	clk.advance(2 * time.Second)
	_, ok := c.Get(t.Context(), "k")
	must.False(t, ok)
	must.Eq(t, 0, backend.Len())
}

func TestCache_invalidate(t *testing.T) {
	c := cache.New[string](0)

	c.Set(t.Context(), "http://api/api/chat/abc", "chat")
	c.Set(t.Context(), "http://api/api/chat/abc/messages", "messages")
	c.Set(t.Context(), "http://api/api/chat/def", "other")

	must.Eq(t, 2, c.Invalidate(t.Context(), "/chat/abc"))

	_, ok := c.Get(t.Context(), "http://api/api/chat/abc")
	must.False(t, ok)
	_, ok = c.Get(t.Context(), "http://api/api/chat/abc/messages")
	must.False(t, ok)
	v, ok := c.Get(t.Context(), "http://api/api/chat/def")
	must.True(t, ok)
	must.Eq(t, "other", v)

	must.Eq(t, 1, c.Invalidate(t.Context(), ""))
	_, ok = c.Get(t.Context(), "http://api/api/chat/def")
	must.False(t, ok)
}
