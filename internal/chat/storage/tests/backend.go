package tests

import (
	"fmt"
	"testing"

	"github.com/picatz/bato/internal/chat/storage"
	"github.com/shoenig/test/must"
)

// BackendSuite tests a backend implementation of the storage package, using
// the provided backend instance to perform the tests.
func BackendSuite(t *testing.T, backend storage.Backend[string, string]) {
	t.Helper()

	_, ok, err := backend.Get(t.Context(), "missing")
	must.NoError(t, err)
	must.False(t, ok)

	err = backend.Set(t.Context(), "hello", "world")
	must.NoError(t, err)

	value, ok, err := backend.Get(t.Context(), "hello")
	must.NoError(t, err)
	must.True(t, ok)
	must.Eq(t, "world", value)

	err = backend.Set(t.Context(), "hello again", "world2")
	must.NoError(t, err)

	value, ok, err = backend.Get(t.Context(), "hello again")
	must.NoError(t, err)
	must.True(t, ok)
	must.Eq(t, "world2", value)

	entries, next, err := backend.List(t.Context(), storage.PageSize(1), nil)
	must.NoError(t, err)
	must.NotNil(t, next)

	for key, value := range entries {
		must.Eq(t, "hello again", key)
		must.Eq(t, "world2", value)
	}

	entries, next, err = backend.List(t.Context(), nil, next)
	must.NoError(t, err)
	must.Nil(t, next)

	for key, value := range entries {
		must.Eq(t, "hello", key)
		must.Eq(t, "world", value)
	}

	err = backend.Delete(t.Context(), "hello")
	must.NoError(t, err)

	_, ok, err = backend.Get(t.Context(), "hello")
	must.NoError(t, err)
	must.False(t, ok)

	must.NoError(t, backend.Flush(t.Context()))
}

// ValueSuite stores first and second under two keys and checks they read back
// intact, for backends holding structured values.
func ValueSuite[V any](t *testing.T, b storage.Backend[string, V], first, second V) {
	t.Helper()

	must.NoError(t, b.Set(t.Context(), "a", first))
	must.NoError(t, b.Set(t.Context(), "b", second))

	value, ok, err := b.Get(t.Context(), "a")
	must.NoError(t, err)
	must.True(t, ok)
	must.Eq(t, first, value)

	value, ok, err = b.Get(t.Context(), "b")
	must.NoError(t, err)
	must.True(t, ok)
	must.Eq(t, second, value)

	must.NoError(t, b.Set(t.Context(), "a", second))

	value, ok, err = b.Get(t.Context(), "a")
	must.NoError(t, err)
	must.True(t, ok)
	must.Eq(t, second, value)
}

// AllSuite checks that storage.All follows page tokens across every page of b.
func AllSuite(t *testing.T, b storage.Backend[string, int]) {
	t.Helper()

	const n = 60
	for i := range n {
		must.NoError(t, b.Set(t.Context(), fmt.Sprintf("key-%03d", i), i))
	}

	entries, err := storage.All(t.Context(), b)
	must.NoError(t, err)
	must.SliceLen(t, n, entries)

	seen := make(map[string]int, n)
	for _, e := range entries {
		seen[e.Key] = e.Value
	}
	must.MapLen(t, n, seen)
	must.Eq(t, 42, seen["key-042"])
}
