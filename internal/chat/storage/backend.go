package storage

import (
	"context"
	"fmt"
	"iter"
)

// Entry is a single key-value pair held by a Backend.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Backend is a key-value store. List returns at most pageSize entries starting at
// pageToken, along with the token of the next page, or nil on the last page.
type Backend[K, V any] interface {
	Get(ctx context.Context, key K) (value V, found bool, err error)
	Set(ctx context.Context, key K, value V) error
	Delete(ctx context.Context, key K) error
	List(ctx context.Context, pageSize *int, pageToken *K) (entries iter.Seq2[K, V], nextPageToken *K, err error)
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Tailer is implemented by backends that can read their last entries without
// listing everything before them.
type Tailer[K, V any] interface {
	// Tail returns the last n entries in key order.
	Tail(ctx context.Context, n int) ([]Entry[K, V], error)
}

func ptr[T any](v T) *T {
	return &v
}

func PageSize(pageSize int) *int {
	return ptr(pageSize)
}

func PageToken[T any](pageToken T) *T {
	return ptr(pageToken)
}

// All reads every entry of b, following page tokens until the last page.
func All[K comparable, V any](ctx context.Context, b Backend[K, V]) ([]Entry[K, V], error) {
	var (
		entries []Entry[K, V]
		token   *K
	)

	for {
		page, next, err := b.List(ctx, nil, token)
		if err != nil {
			return nil, fmt.Errorf("failed to list entries: %w", err)
		}

		for k, v := range page {
			entries = append(entries, Entry[K, V]{Key: k, Value: v})
		}

		if next == nil || (token != nil && *next == *token) {
			return entries, nil
		}
		token = next
	}
}
