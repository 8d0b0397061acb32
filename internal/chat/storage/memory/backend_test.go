package memory_test

import (
	"sync"
	"testing"

	"github.com/picatz/bato/internal/chat/storage/memory"
	"github.com/picatz/bato/internal/chat/storage/tests"
	"github.com/shoenig/test/must"
)

type record struct {
	Name  string
	Count int
}

func TestBackend(t *testing.T) {
	tests.BackendSuite(t, memory.NewBackend[string, string]())
	tests.ValueSuite(t, memory.NewBackend[string, record](), record{"first", 1}, record{"second", 2})
	tests.AllSuite(t, memory.NewBackend[string, int]())
}

func TestBackend_concurrent(t *testing.T) {
	b := memory.NewBackend[string, int]()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i))
			must.NoError(t, b.Set(t.Context(), key, i))
			_, _, err := b.Get(t.Context(), key)
			must.NoError(t, err)
			_, _, err = b.List(t.Context(), nil, nil)
			must.NoError(t, err)
		}()
	}
	wg.Wait()

	must.Eq(t, 16, b.Len())

	must.NoError(t, b.Close(t.Context()))
	must.Eq(t, 0, b.Len())
}
