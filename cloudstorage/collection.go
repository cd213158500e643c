package cloudstorage

import (
	"encoding/json"
	"iter"
	"slices"
)

// Collection is an ordered map of listing results. It supports key lookup
// and positional access in insertion order.
type Collection[T any] struct {
	keys  []string
	items map[string]T
}

// NewCollection returns an empty Collection.
func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{items: make(map[string]T)}
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	return len(c.keys)
}

// Has reports whether key is present.
func (c *Collection[T]) Has(key string) bool {
	_, ok := c.items[key]
	return ok
}

// Get returns the item stored under key.
func (c *Collection[T]) Get(key string) (T, bool) {
	v, ok := c.items[key]
	return v, ok
}

// At returns the i-th item in insertion order.
func (c *Collection[T]) At(i int) (T, bool) {
	if i < 0 || i >= len(c.keys) {
		var zero T
		return zero, false
	}
	return c.items[c.keys[i]], true
}

// Keys returns the keys in insertion order.
func (c *Collection[T]) Keys() []string {
	return slices.Clone(c.keys)
}

// Values returns the items in insertion order.
func (c *Collection[T]) Values() []T {
	out := make([]T, len(c.keys))
	for i, k := range c.keys {
		out[i] = c.items[k]
	}
	return out
}

// All iterates over key/item pairs in insertion order.
func (c *Collection[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		for _, k := range c.keys {
			if !yield(k, c.items[k]) {
				return
			}
		}
	}
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position.
func (c *Collection[T]) Set(key string, v T) {
	if c.items == nil {
		c.items = make(map[string]T)
	}
	if _, ok := c.items[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.items[key] = v
}

// Delete removes key and reports whether it was present.
func (c *Collection[T]) Delete(key string) bool {
	if _, ok := c.items[key]; !ok {
		return false
	}
	delete(c.items, key)
	if i := slices.Index(c.keys, key); i >= 0 {
		c.keys = slices.Delete(c.keys, i, i+1)
	}
	return true
}

// MarshalJSON encodes the items as a JSON array in insertion order.
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Values())
}
