// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recorder turns streams of telemetry messages from several
// named sources into frames in a vector log.
//
// Each [Source] owns a key prefix. [Recorder.Record] converts a
// message into that source's slice of the frame, merges the latest
// slice of every source into one collection, and queues the encoded
// frame in a bounded [Buffer]. Metadata is derived in the same pass as
// the values and queued only when the merged shape changes, so the log
// never holds a frame whose labels it has not already described.
//
// [Recorder.Run] drains the buffer into a [Sink], normally a
// [framelog.Writer], and syncs it on a fixed interval. When the sink
// falls behind, the oldest frames are dropped; metadata records are
// never dropped.
package recorder
