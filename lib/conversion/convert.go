// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversion

import (
	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
	"github.com/bureau-foundation/vectorlog/lib/vectors"
)

// ExtractMetadata appends the component names of every vector in
// message to metadata, under keys rooted at prefix. Existing entries
// are kept; an entry with the same key is replaced in place. Empty
// joint, target and sensor sequences contribute no keys.
func ExtractMetadata(message wearable.Message, prefix string, metadata *vectors.Metadata, opts ...Option) {
	options := resolveOptions(opts)
	walk(message, func(ch channel) {
		metadata.Set(KeyPath(options.Delimiter, prefix, ch.segments...), ch.names())
	})
}

// ConvertToVectorsCollection appends the value vector of every field
// in message to collection, using the same keys and order as
// ExtractMetadata. Vectors are copied; the collection never aliases
// the message.
func ConvertToVectorsCollection(message wearable.Message, prefix string, collection *vectors.Collection, opts ...Option) {
	options := resolveOptions(opts)
	walk(message, func(ch channel) {
		collection.Set(KeyPath(options.Delimiter, prefix, ch.segments...), ch.values())
	})
}

// Convert fills metadata and collection from a single traversal of
// message. Use it when both containers are updated together.
func Convert(message wearable.Message, prefix string, metadata *vectors.Metadata, collection *vectors.Collection, opts ...Option) {
	options := resolveOptions(opts)
	walk(message, func(ch channel) {
		key := KeyPath(options.Delimiter, prefix, ch.segments...)
		metadata.Set(key, ch.names())
		collection.Set(key, ch.values())
	})
}

// ShapeOf returns the fingerprint ExtractMetadata's output would have
// for message and prefix, without building it. Equal fingerprints
// mean previously extracted metadata can be reused.
func ShapeOf(message wearable.Message, prefix string, opts ...Option) vectors.Hash {
	options := resolveOptions(opts)
	hasher := vectors.NewShapeHasher()
	walk(message, func(ch channel) {
		hasher.Add(KeyPath(options.Delimiter, prefix, ch.segments...), ch.names())
	})
	return hasher.Sum()
}
