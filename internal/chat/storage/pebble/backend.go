package pebble

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/cockroachdb/pebble"
	"github.com/picatz/bato/internal/chat/storage"
)

var (
	_ storage.Backend[string, any] = (*Backend[string, any])(nil)
	_ storage.Tailer[string, any]  = (*Backend[string, any])(nil)
)

// DefaultListPageSize is the number of entries returned by List without a page size.
const DefaultListPageSize = 25

// Backend keeps entries in a Pebble database, ordered by their encoded keys.
//
// The chat history lives in a directory on disk; a temporary session passes options
// with an in-memory filesystem instead.
type Backend[K comparable, V any] struct {
	db    *pebble.DB
	codec storage.Codec[K, V]
}

// NewBackend opens (or creates) the database at dirname.
func NewBackend[K comparable, V any](dirname string, opts *pebble.Options, codec storage.Codec[K, V]) (*Backend[K, V], error) {
	db, err := pebble.Open(dirname, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}

	return &Backend[K, V]{db: db, codec: codec}, nil
}

func (b *Backend[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V

	k, err := b.codec.EncodeKey(key)
	if err != nil {
		return zero, false, fmt.Errorf("failed to encode key: %w", err)
	}

	data, closer, err := b.db.Get(k)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		return zero, false, nil
	case err != nil:
		return zero, false, fmt.Errorf("failed to get value: %w", err)
	}
	defer closer.Close()

	// data is only valid until closer is closed, the codec copies what it keeps.
	value, err := b.codec.DecodeValue(data)
	if err != nil {
		return zero, false, fmt.Errorf("failed to decode value: %w", err)
	}

	return value, true, nil
}

func (b *Backend[K, V]) Set(ctx context.Context, key K, value V) error {
	k, err := b.codec.EncodeKey(key)
	if err != nil {
		return fmt.Errorf("failed to encode key: %w", err)
	}

	v, err := b.codec.EncodeValue(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	if err := b.db.Set(k, v, pebble.Sync); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	return nil
}

func (b *Backend[K, V]) Delete(ctx context.Context, key K) error {
	k, err := b.codec.EncodeKey(key)
	if err != nil {
		return fmt.Errorf("failed to encode key: %w", err)
	}

	if err := b.db.Delete(k, pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// List returns up to pageSize entries in key order, starting at pageToken. The
// returned token is the first key of the next page.
func (b *Backend[K, V]) List(ctx context.Context, pageSize *int, pageToken *K) (iter.Seq2[K, V], *K, error) {
	limit := DefaultListPageSize
	if pageSize != nil && *pageSize > 0 {
		limit = *pageSize
	}

	var opts pebble.IterOptions
	if pageToken != nil {
		lower, err := b.codec.EncodeKey(*pageToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode page token: %w", err)
		}
		opts.LowerBound = lower
	}

	it, err := b.db.NewIter(&opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer it.Close()

	var entries []storage.Entry[K, V]
	for valid := it.First(); valid && len(entries) < limit; valid = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("stopped listing entries: %w", err)
		}

		entry, err := b.decode(it)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
	}

	var next *K
	if len(entries) == limit && it.Valid() {
		key, err := b.codec.DecodeKey(it.Key())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode next page token: %w", err)
		}
		next = &key
	}

	if err := it.Error(); err != nil {
		return nil, nil, fmt.Errorf("failed to list entries: %w", err)
	}

	return seq(entries), next, nil
}

// Tail returns the last n entries in key order, reading backwards from the end of
// the database. With time-sortable keys these are the newest entries, oldest first.
func (b *Backend[K, V]) Tail(ctx context.Context, n int) ([]storage.Entry[K, V], error) {
	it, err := b.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer it.Close()

	var entries []storage.Entry[K, V]
	for valid := it.Last(); valid && len(entries) < n; valid = it.Prev() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("stopped reading entries: %w", err)
		}

		entry, err := b.decode(it)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	slices.Reverse(entries)
	return entries, nil
}

func (b *Backend[K, V]) decode(it *pebble.Iterator) (storage.Entry[K, V], error) {
	k, err := b.codec.DecodeKey(it.Key())
	if err != nil {
		return storage.Entry[K, V]{}, fmt.Errorf("failed to decode key: %w", err)
	}

	v, err := b.codec.DecodeValue(it.Value())
	if err != nil {
		return storage.Entry[K, V]{}, fmt.Errorf("failed to decode value of %v: %w", k, err)
	}

	return storage.Entry[K, V]{Key: k, Value: v}, nil
}

func seq[K, V any](entries []storage.Entry[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Flush writes the memtable to disk.
func (b *Backend[K, V]) Flush(ctx context.Context) error {
	if err := b.db.Flush(); err != nil {
		return fmt.Errorf("failed to flush pebble database: %w", err)
	}
	return nil
}

func (b *Backend[K, V]) Close(ctx context.Context) error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close pebble database: %w", err)
	}
	return nil
}
