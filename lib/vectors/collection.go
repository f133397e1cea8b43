// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vectors

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/vectorlog/lib/codec"
)

// Collection maps key paths to numeric vectors in insertion order.
// The zero value is an empty collection ready to use.
type Collection struct {
	keys   []string
	values map[string][]float64
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Set stores values under key. A new key is appended after every
// existing key; an existing key keeps its position. The collection
// keeps the slice it is given.
func (c *Collection) Set(key string, values []float64) {
	if c.values == nil {
		c.values = make(map[string][]float64)
	}
	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = values
}

// Get returns the vector stored under key.
func (c *Collection) Get(key string) ([]float64, bool) {
	values, ok := c.values[key]
	return values, ok
}

// Keys returns the keys in insertion order. The returned slice must
// not be modified.
func (c *Collection) Keys() []string { return c.keys }

// Len returns the number of keys.
func (c *Collection) Len() int { return len(c.keys) }

// Range calls fn for every entry in insertion order until fn returns
// false.
func (c *Collection) Range(fn func(key string, values []float64) bool) {
	for _, key := range c.keys {
		if !fn(key, c.values[key]) {
			return
		}
	}
}

// Merge copies every entry of other into c, in other's order.
func (c *Collection) Merge(other *Collection) {
	other.Range(func(key string, values []float64) bool {
		c.Set(key, values)
		return true
	})
}

// Reset removes every entry, keeping allocated capacity.
func (c *Collection) Reset() {
	c.keys = c.keys[:0]
	clear(c.values)
}

// Clone returns a deep copy.
func (c *Collection) Clone() *Collection {
	clone := &Collection{
		keys:   append([]string(nil), c.keys...),
		values: make(map[string][]float64, len(c.values)),
	}
	for key, values := range c.values {
		clone.values[key] = append([]float64(nil), values...)
	}
	return clone
}

// CollectionEntry is the serialized form of one collection entry.
type CollectionEntry struct {
	Key    string    `json:"key"`
	Values []float64 `json:"values"`
}

// Entries returns the collection as an ordered entry list.
func (c *Collection) Entries() []CollectionEntry {
	entries := make([]CollectionEntry, 0, len(c.keys))
	for _, key := range c.keys {
		entries = append(entries, CollectionEntry{Key: key, Values: c.values[key]})
	}
	return entries
}

func (c *Collection) fromEntries(entries []CollectionEntry) error {
	c.Reset()
	for _, entry := range entries {
		if _, exists := c.values[entry.Key]; exists {
			return fmt.Errorf("duplicate collection key %q", entry.Key)
		}
		values := entry.Values
		if values == nil {
			values = []float64{}
		}
		c.Set(entry.Key, values)
	}
	return nil
}

// MarshalCBOR encodes the collection as an array of entries so that
// key order survives the round trip.
func (c *Collection) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(c.Entries())
}

// UnmarshalCBOR decodes an entry array produced by MarshalCBOR.
func (c *Collection) UnmarshalCBOR(data []byte) error {
	var entries []CollectionEntry
	if err := codec.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decoding collection: %w", err)
	}
	return c.fromEntries(entries)
}

// MarshalJSON encodes the collection as an array of entries.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Entries())
}

// UnmarshalJSON decodes an entry array produced by MarshalJSON.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var entries []CollectionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decoding collection: %w", err)
	}
	return c.fromEntries(entries)
}
