// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vectors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bureau-foundation/vectorlog/lib/codec"
)

// Metadata maps key paths to component names in insertion order. The
// zero value is empty and ready to use.
type Metadata struct {
	keys   []string
	labels map[string][]string
}

// NewMetadata returns empty metadata.
func NewMetadata() *Metadata {
	return &Metadata{}
}

// Set stores the component names for key, with the same ordering
// rules as [Collection.Set].
func (m *Metadata) Set(key string, names []string) {
	if m.labels == nil {
		m.labels = make(map[string][]string)
	}
	if _, exists := m.labels[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.labels[key] = names
}

// Get returns the component names stored under key.
func (m *Metadata) Get(key string) ([]string, bool) {
	names, ok := m.labels[key]
	return names, ok
}

// Keys returns the keys in insertion order. The returned slice must
// not be modified.
func (m *Metadata) Keys() []string { return m.keys }

// Len returns the number of keys.
func (m *Metadata) Len() int { return len(m.keys) }

// Range calls fn for every entry in insertion order until fn returns
// false.
func (m *Metadata) Range(fn func(key string, names []string) bool) {
	for _, key := range m.keys {
		if !fn(key, m.labels[key]) {
			return
		}
	}
}

// Merge copies every entry of other into m, in other's order.
func (m *Metadata) Merge(other *Metadata) {
	other.Range(func(key string, names []string) bool {
		m.Set(key, names)
		return true
	})
}

// Reset removes every entry.
func (m *Metadata) Reset() {
	m.keys = m.keys[:0]
	clear(m.labels)
}

// Clone returns a deep copy.
func (m *Metadata) Clone() *Metadata {
	clone := &Metadata{
		keys:   append([]string(nil), m.keys...),
		labels: make(map[string][]string, len(m.labels)),
	}
	for key, names := range m.labels {
		clone.labels[key] = append([]string(nil), names...)
	}
	return clone
}

// Fingerprint hashes the keys, their order and their component
// names. Two metadata values have equal fingerprints exactly when a
// reader would interpret their frames identically.
func (m *Metadata) Fingerprint() Hash {
	hasher := NewShapeHasher()
	m.Range(func(key string, names []string) bool {
		hasher.Add(key, names)
		return true
	})
	return hasher.Sum()
}

// ErrCountMismatch is wrapped by [Metadata.Validate] for every key
// whose component count differs from the collection's vector length.
var ErrCountMismatch = errors.New("component count mismatch")

// ErrMissingMetadata is wrapped by [Metadata.Validate] for every
// collection key that has no metadata entry.
var ErrMissingMetadata = errors.New("missing metadata")

// Validate checks that every key in collection has a metadata entry
// with exactly as many component names as the vector has values.
// Metadata keys absent from the collection are allowed: a frame may
// carry a subset of the known shape. All violations are reported.
func (m *Metadata) Validate(collection *Collection) error {
	var errs []error
	collection.Range(func(key string, values []float64) bool {
		names, ok := m.labels[key]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%w for key %q", ErrMissingMetadata, key))
		case len(names) != len(values):
			errs = append(errs, fmt.Errorf("%w for key %q: %d names, %d values",
				ErrCountMismatch, key, len(names), len(values)))
		}
		return true
	})
	return errors.Join(errs...)
}

// MetadataEntry is the serialized form of one metadata entry.
type MetadataEntry struct {
	Key   string   `json:"key"`
	Names []string `json:"names"`
}

// Entries returns the metadata as an ordered entry list.
func (m *Metadata) Entries() []MetadataEntry {
	entries := make([]MetadataEntry, 0, len(m.keys))
	for _, key := range m.keys {
		entries = append(entries, MetadataEntry{Key: key, Names: m.labels[key]})
	}
	return entries
}

func (m *Metadata) fromEntries(entries []MetadataEntry) error {
	m.Reset()
	for _, entry := range entries {
		if _, exists := m.labels[entry.Key]; exists {
			return fmt.Errorf("duplicate metadata key %q", entry.Key)
		}
		names := entry.Names
		if names == nil {
			names = []string{}
		}
		m.Set(entry.Key, names)
	}
	return nil
}

// MarshalCBOR encodes the metadata as an ordered entry array.
func (m *Metadata) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(m.Entries())
}

// UnmarshalCBOR decodes an entry array produced by MarshalCBOR.
func (m *Metadata) UnmarshalCBOR(data []byte) error {
	var entries []MetadataEntry
	if err := codec.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decoding metadata: %w", err)
	}
	return m.fromEntries(entries)
}

// MarshalJSON encodes the metadata as an ordered entry array.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Entries())
}

// UnmarshalJSON decodes an entry array produced by MarshalJSON.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var entries []MetadataEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decoding metadata: %w", err)
	}
	return m.fromEntries(entries)
}
