// Package storage provides a pluggable key-value storage layer. The chat session keeps its
// local transcript history in the pebble backend, and the API client's response cache sits
// on top of the memory backend.
package storage
