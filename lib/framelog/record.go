// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framelog

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/vectorlog/lib/codec"
	"github.com/bureau-foundation/vectorlog/lib/vectors"
)

// Magic opens every plaintext log stream.
const Magic = "VLOG1\n"

// FormatVersion is the Header.Version written by this package.
const FormatVersion = 1

// MaxRecordSize bounds the uncompressed body of one record. Readers
// treat a larger declared size as corruption rather than allocating it.
const MaxRecordSize = 256 << 20

var (
	// ErrCorrupt is wrapped by every reader error caused by malformed
	// log contents, as opposed to I/O failures.
	ErrCorrupt = errors.New("corrupt vector log")

	// ErrUnknownShape is returned for a frame whose shape fingerprint
	// has no preceding metadata record.
	ErrUnknownShape = errors.New("frame references unknown shape")
)

// Header is the first item after the magic line.
type Header struct {
	Version int `json:"version"`
	// Session identifies one recording run. Logs rotated from the same
	// run share it.
	Session     uuid.UUID      `json:"session"`
	Delimiter   string         `json:"delimiter"`
	Compression CompressionTag `json:"compression"`
	CreatedAt   time.Time      `json:"created_at"`
}

// RecordType distinguishes record bodies.
type RecordType uint8

const (
	RecordMetadata RecordType = 1
	RecordFrame    RecordType = 2
)

// String returns "metadata" or "frame".
func (t RecordType) String() string {
	switch t {
	case RecordMetadata:
		return "metadata"
	case RecordFrame:
		return "frame"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t RecordType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Record is the envelope around every body. Type and Shape are kept
// outside the compressed body so writers and readers can check
// ordering without decompressing.
type Record struct {
	Type        RecordType     `json:"type"`
	Shape       vectors.Hash   `json:"shape"`
	Compression CompressionTag `json:"compression"`
	Size        int            `json:"size"`
	Body        []byte         `json:"body"`
}

// MetadataRecord describes one message shape.
type MetadataRecord struct {
	Shape    vectors.Hash      `json:"shape"`
	Metadata *vectors.Metadata `json:"metadata"`
}

// FrameRecord is one merged collection captured at Timestamp.
type FrameRecord struct {
	Sequence   uint64              `json:"sequence"`
	Timestamp  time.Time           `json:"timestamp"`
	Shape      vectors.Hash        `json:"shape"`
	Collection *vectors.Collection `json:"collection"`
}

// EncodeMetadata builds the record for metadata. The record's shape
// is the metadata fingerprint.
func EncodeMetadata(metadata *vectors.Metadata, compression CompressionTag) (Record, error) {
	shape := metadata.Fingerprint()
	return encodeRecord(RecordMetadata, shape, MetadataRecord{Shape: shape, Metadata: metadata}, compression)
}

// EncodeFrame builds the record for frame.
func EncodeFrame(frame FrameRecord, compression CompressionTag) (Record, error) {
	return encodeRecord(RecordFrame, frame.Shape, frame, compression)
}

func encodeRecord(recordType RecordType, shape vectors.Hash, body any, compression CompressionTag) (Record, error) {
	data, err := codec.Marshal(body)
	if err != nil {
		return Record{}, fmt.Errorf("encoding %s body: %w", recordType, err)
	}
	if len(data) > MaxRecordSize {
		return Record{}, fmt.Errorf("encoding %s body: %d bytes exceeds limit of %d", recordType, len(data), MaxRecordSize)
	}
	stored, tag, err := compressBody(data, compression)
	if err != nil {
		return Record{}, fmt.Errorf("compressing %s body: %w", recordType, err)
	}
	return Record{
		Type:        recordType,
		Shape:       shape,
		Compression: tag,
		Size:        len(data),
		Body:        stored,
	}, nil
}

// EncodedSize returns the approximate number of bytes the record
// occupies in a log, for buffer accounting.
func (r Record) EncodedSize() int {
	// Envelope fields add a few dozen bytes on top of the body.
	return len(r.Body) + len(r.Shape) + 16
}

// DecodeMetadata decompresses and decodes a metadata record body.
func (r Record) DecodeMetadata() (*MetadataRecord, error) {
	if r.Type != RecordMetadata {
		return nil, fmt.Errorf("%w: expected metadata record, got %s", ErrCorrupt, r.Type)
	}
	var decoded MetadataRecord
	if err := r.decodeBody(&decoded); err != nil {
		return nil, err
	}
	if decoded.Metadata == nil {
		decoded.Metadata = vectors.NewMetadata()
	}
	if decoded.Metadata.Fingerprint() != r.Shape {
		return nil, fmt.Errorf("%w: metadata fingerprint %s does not match envelope %s",
			ErrCorrupt, decoded.Metadata.Fingerprint().Short(), r.Shape.Short())
	}
	return &decoded, nil
}

// DecodeFrame decompresses and decodes a frame record body.
func (r Record) DecodeFrame() (*FrameRecord, error) {
	if r.Type != RecordFrame {
		return nil, fmt.Errorf("%w: expected frame record, got %s", ErrCorrupt, r.Type)
	}
	var decoded FrameRecord
	if err := r.decodeBody(&decoded); err != nil {
		return nil, err
	}
	if decoded.Collection == nil {
		decoded.Collection = vectors.NewCollection()
	}
	return &decoded, nil
}

func (r Record) decodeBody(target any) error {
	if r.Size < 0 || r.Size > MaxRecordSize {
		return fmt.Errorf("%w: %s record declares body size %d", ErrCorrupt, r.Type, r.Size)
	}
	data, err := decompressBody(r.Body, r.Compression, r.Size)
	if err != nil {
		return fmt.Errorf("%w: %s record: %v", ErrCorrupt, r.Type, err)
	}
	if err := codec.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: decoding %s record: %v", ErrCorrupt, r.Type, err)
	}
	return nil
}
