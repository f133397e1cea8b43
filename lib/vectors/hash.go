// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vectors

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 shape fingerprint.
type Hash [32]byte

// shapeDomainKey keys the BLAKE3 hash so shape fingerprints never
// collide with hashes of the same bytes computed elsewhere. Changing
// it invalidates every fingerprint stored in existing logs.
var shapeDomainKey = [32]byte{
	'v', 'e', 'c', 't', 'o', 'r', 'l', 'o', 'g', '.', 's', 'h', 'a', 'p', 'e', 0,
}

// String returns the lowercase hex digest.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Short returns the first 12 hex characters, for log lines.
func (h Hash) Short() string { return h.String()[:12] }

// IsZero reports whether h is the zero value (no shape recorded).
func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(data []byte) error {
	decoded, err := hex.DecodeString(string(data))
	if err != nil {
		return fmt.Errorf("invalid shape hash: %w", err)
	}
	if len(decoded) != len(h) {
		return fmt.Errorf("invalid shape hash: expected %d bytes, got %d", len(h), len(decoded))
	}
	copy(h[:], decoded)
	return nil
}

// ShapeHasher computes a shape fingerprint incrementally, so callers
// can fingerprint a message without materializing its metadata.
// Feeding the same (key, names) sequence as a Metadata produces the
// same Hash as [Metadata.Fingerprint].
type ShapeHasher struct {
	hasher  hash.Hash
	scratch []byte
}

// NewShapeHasher returns an empty hasher.
func NewShapeHasher() *ShapeHasher {
	hasher, err := blake3.NewKeyed(shapeDomainKey[:])
	if err != nil {
		// Only fails for keys that are not 32 bytes.
		panic("vectors: blake3 keyed hasher: " + err.Error())
	}
	return &ShapeHasher{hasher: hasher}
}

// Add feeds one entry. Every string is length-prefixed so that
// ("ab", ["c"]) and ("a", ["bc"]) hash differently.
func (s *ShapeHasher) Add(key string, names []string) {
	s.writeString(key)
	s.scratch = binary.AppendUvarint(s.scratch[:0], uint64(len(names)))
	s.hasher.Write(s.scratch)
	for _, name := range names {
		s.writeString(name)
	}
}

func (s *ShapeHasher) writeString(value string) {
	s.scratch = binary.AppendUvarint(s.scratch[:0], uint64(len(value)))
	s.scratch = append(s.scratch, value...)
	s.hasher.Write(s.scratch)
}

// Sum returns the fingerprint of everything added so far.
func (s *ShapeHasher) Sum() Hash {
	var digest Hash
	copy(digest[:], s.hasher.Sum(nil))
	return digest
}
