// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vectors

import (
	"errors"
	"slices"
	"testing"

	"github.com/bureau-foundation/vectorlog/lib/codec"
)

func TestMetadataValidate(t *testing.T) {
	metadata := NewMetadata()
	metadata.Set("robot::basePosition", []string{"x", "y", "z"})
	metadata.Set("robot::jointPositions", []string{"hip", "knee"})
	metadata.Set("robot::unused", []string{"a"})

	collection := NewCollection()
	collection.Set("robot::basePosition", []float64{1, 2, 3})
	collection.Set("robot::jointPositions", []float64{0.1, 0.2})

	if err := metadata.Validate(collection); err != nil {
		t.Fatalf("Validate on consistent pair: %v", err)
	}

	collection.Set("robot::jointPositions", []float64{0.1, 0.2, 0.3})
	collection.Set("robot::extra", []float64{1})
	err := metadata.Validate(collection)
	if !errors.Is(err, ErrCountMismatch) {
		t.Errorf("expected ErrCountMismatch, got %v", err)
	}
	if !errors.Is(err, ErrMissingMetadata) {
		t.Errorf("expected ErrMissingMetadata, got %v", err)
	}
}

func TestMetadataFingerprint(t *testing.T) {
	build := func(entries ...MetadataEntry) *Metadata {
		metadata := NewMetadata()
		for _, entry := range entries {
			metadata.Set(entry.Key, entry.Names)
		}
		return metadata
	}

	base := build(
		MetadataEntry{Key: "a", Names: []string{"x", "y"}},
		MetadataEntry{Key: "b", Names: []string{"z"}},
	)

	if base.Fingerprint() != base.Clone().Fingerprint() {
		t.Error("clone has a different fingerprint")
	}
	if base.Fingerprint().IsZero() {
		t.Error("fingerprint of non-empty metadata is zero")
	}

	variants := map[string]*Metadata{
		"reordered": build(
			MetadataEntry{Key: "b", Names: []string{"z"}},
			MetadataEntry{Key: "a", Names: []string{"x", "y"}},
		),
		"renamed component": build(
			MetadataEntry{Key: "a", Names: []string{"x", "w"}},
			MetadataEntry{Key: "b", Names: []string{"z"}},
		),
		"shifted boundary": build(
			MetadataEntry{Key: "a", Names: []string{"x"}},
			MetadataEntry{Key: "b", Names: []string{"y", "z"}},
		),
		"concatenation": build(
			MetadataEntry{Key: "ax", Names: []string{"y"}},
			MetadataEntry{Key: "b", Names: []string{"z"}},
		),
	}
	for name, variant := range variants {
		if variant.Fingerprint() == base.Fingerprint() {
			t.Errorf("%s: fingerprint collides with base", name)
		}
	}
}

func TestShapeHasherMatchesFingerprint(t *testing.T) {
	metadata := NewMetadata()
	metadata.Set("wear::sensor::imu0::acceleration", []string{"x", "y", "z"})
	metadata.Set("wear::sensor::thermo::payload", []string{"0"})

	hasher := NewShapeHasher()
	hasher.Add("wear::sensor::imu0::acceleration", []string{"x", "y", "z"})
	hasher.Add("wear::sensor::thermo::payload", []string{"0"})

	if hasher.Sum() != metadata.Fingerprint() {
		t.Error("incremental hash differs from Metadata.Fingerprint")
	}
}

func TestHashTextRoundtrip(t *testing.T) {
	metadata := NewMetadata()
	metadata.Set("k", []string{"v"})
	original := metadata.Fingerprint()

	text, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var decoded Hash
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: %s != %s", decoded, original)
	}
	if len(original.Short()) != 12 {
		t.Errorf("Short() = %q", original.Short())
	}
	if err := decoded.UnmarshalText([]byte("abcd")); err == nil {
		t.Error("expected error for short hash")
	}
}

func TestMetadataCBORKeepsOrder(t *testing.T) {
	metadata := NewMetadata()
	metadata.Set("robot::jointPositions", []string{"hip", "knee", "ankle"})
	metadata.Set("robot::basePosition", []string{"x", "y", "z"})

	data, err := codec.Marshal(metadata)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded := NewMetadata()
	if err := codec.Unmarshal(data, decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !slices.Equal(decoded.Keys(), metadata.Keys()) {
		t.Fatalf("keys = %v, want %v", decoded.Keys(), metadata.Keys())
	}
	if decoded.Fingerprint() != metadata.Fingerprint() {
		t.Error("fingerprint changed across CBOR round trip")
	}
}
