// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vectors provides the two containers that lib/conversion
// fills and lib/framelog stores:
//
//   - [Collection]: key path → numeric vector, one row of a frame.
//   - [Metadata]: key path → component names, the column labels for
//     every vector in the collection with the same key.
//
// Both preserve insertion order. Adding a key that already exists
// replaces its value in place; nothing is ever removed except by
// Reset. A collection is rebuilt for every message while metadata
// lives until the message shape changes, which [Metadata.Fingerprint]
// detects.
//
// Neither container is safe for concurrent mutation.
package vectors
