// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package framelog reads and writes vector logs: the on-disk record
// of a recording session.
//
// A log is the magic line "VLOG1\n" followed by a CBOR sequence: one
// [Header], then any number of [Record] envelopes. Each envelope holds
// a compressed CBOR body that is either a [MetadataRecord] (the
// component names of a message shape) or a [FrameRecord] (one
// timestamped collection). Every frame names the fingerprint of its
// shape, and a shape's metadata record always precedes its first
// frame:
//
//	VLOG1\n
//	Header{session, delimiter, compression}
//	Record{metadata, shape A}
//	Record{frame, shape A}
//	Record{frame, shape A}
//	Record{metadata, shape B}     ← a target appeared
//	Record{frame, shape B}
//
// Bodies are compressed per record with LZ4 or zstd; a body that does
// not shrink is stored uncompressed and tagged accordingly.
//
// When the writer is given age recipients, the entire stream
// (magic included) is age-encrypted. [Open] detects the age header
// and decrypts with the supplied identities.
//
// [Create] holds an exclusive flock on the output file for the
// writer's lifetime, so two recorders cannot interleave records in
// one log.
package framelog
