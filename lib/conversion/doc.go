// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversion flattens wearable telemetry messages into keyed
// numeric vectors and their component names.
//
// There are two entry points, mirroring how a logging device uses
// them:
//
//   - [ExtractMetadata] writes key → component names. It depends only
//     on the message shape (joint names, target and sensor names,
//     payload lengths), so callers rerun it only when [ShapeOf]
//     changes.
//   - [ConvertToVectorsCollection] writes key → values for every
//     message.
//
// [Convert] does both from a single traversal and is what the
// recorder uses.
//
// Both outputs come from one descriptor walk per message variant.
// Each descriptor yields a key and a pair of generators (names and
// values) whose lengths are tied by construction, so for any key the
// metadata component count equals the collection vector length.
//
// Keys are built as prefix, delimiter, then schema-derived segments:
//
//	robot::jointPositions
//	hands::target::leftHand
//	wear::sensor::imu0::acceleration
//
// The delimiter defaults to [DefaultDelimiter] and can be overridden
// per call with [WithDelimiter]. Callers converting several message
// sources into the same containers give each a distinct prefix; the
// conversion functions do not check for collisions, and they never
// remove entries that are already present.
package conversion
