// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by
// every vectorlog package.
//
// CBOR is the storage format for vector logs (lib/framelog) and the
// input format for recorded message streams. JSON is reserved for
// human-facing output (vectorlog convert, vectorlog inspect) and for
// hand-written message fixtures.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// The same frame always produces identical bytes, which is what makes
// metadata fingerprints and compressed record sizes stable across runs.
//
// For buffer-oriented operations (records, fixtures):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (log files, message streams):
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Types carry `json` struct tags; fxamacker/cbor reads them as a
// fallback when `cbor` tags are absent, so one tag controls field
// naming in both formats.
package codec
