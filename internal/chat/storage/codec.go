package storage

import "encoding/json"

// Codec converts keys and values to the bytes a Backend stores.
type Codec[K, V any] interface {
	EncodeKey(K) ([]byte, error)
	DecodeKey([]byte) (K, error)
	EncodeValue(V) ([]byte, error)
	DecodeValue([]byte) (V, error)
}

var (
	_ Codec[any, any]    = (*JSONCodec[any, any])(nil)
	_ Codec[string, any] = (*StringKeyCodec[any])(nil)
)

// JSONCodec stores keys and values as JSON. String keys are quoted, so the backend
// orders them by their JSON encoding.
type JSONCodec[K, V any] struct{}

func (c *JSONCodec[K, V]) EncodeKey(key K) ([]byte, error) {
	return json.Marshal(key)
}

func (c *JSONCodec[K, V]) DecodeKey(data []byte) (K, error) {
	var key K
	err := json.Unmarshal(data, &key)
	return key, err
}

func (c *JSONCodec[K, V]) EncodeValue(value V) ([]byte, error) {
	return json.Marshal(value)
}

func (c *JSONCodec[K, V]) DecodeValue(data []byte) (V, error) {
	var value V
	err := json.Unmarshal(data, &value)
	return value, err
}

// StringKeyCodec stores string keys as their raw bytes and values as JSON.
//
// Raw keys keep the backend's byte ordering equal to the string ordering, so
// time-sortable identifiers such as KSUIDs list oldest first.
type StringKeyCodec[V any] struct {
	JSONCodec[string, V]
}

func (c *StringKeyCodec[V]) EncodeKey(key string) ([]byte, error) {
	return []byte(key), nil
}

func (c *StringKeyCodec[V]) DecodeKey(data []byte) (string, error) {
	return string(data), nil
}
