// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framelog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"

	"github.com/bureau-foundation/vectorlog/lib/codec"
	"github.com/bureau-foundation/vectorlog/lib/vectors"
)

// ageMagic opens every age-encrypted file.
const ageMagic = "age-encryption.org/"

// ErrEncrypted is returned when an encrypted log is opened without
// identities.
var ErrEncrypted = errors.New("vector log is encrypted; an age identity is required")

// Entry is one record read from a log. Exactly one of Metadata and
// Frame is set, according to Record.Type.
type Entry struct {
	Record   Record
	Metadata *MetadataRecord
	Frame    *FrameRecord
}

// Reader reads records in order, checking every frame against the
// metadata of its shape.
type Reader struct {
	file    *os.File
	decoder *codec.Decoder
	header  Header
	shapes  map[vectors.Hash]*vectors.Metadata
	count   int
}

// Open opens the log at path. Identities are required only for
// encrypted logs.
func Open(path string, identities ...age.Identity) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vector log: %w", err)
	}
	reader, err := NewReader(file, identities...)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.file = file
	return reader, nil
}

// NewReader reads a log from r.
func NewReader(r io.Reader, identities ...age.Identity) (*Reader, error) {
	buffered := bufio.NewReader(r)
	var source io.Reader = buffered

	prefix, err := buffered.Peek(len(ageMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading vector log: %w", err)
	}
	if bytes.Equal(prefix, []byte(ageMagic)) {
		if len(identities) == 0 {
			return nil, ErrEncrypted
		}
		decrypted, err := age.Decrypt(buffered, identities...)
		if err != nil {
			return nil, fmt.Errorf("decrypting vector log: %w", err)
		}
		source = bufio.NewReader(decrypted)
	}

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(source, magic); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", ErrCorrupt, err)
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, magic)
	}

	reader := &Reader{
		decoder: codec.NewDecoder(source),
		shapes:  make(map[vectors.Hash]*vectors.Metadata),
	}
	if err := reader.decoder.Decode(&reader.header); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrCorrupt, err)
	}
	if reader.header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, reader.header.Version)
	}
	return reader, nil
}

// Header returns the log header.
func (r *Reader) Header() Header { return r.header }

// Shape returns the metadata of a shape seen so far.
func (r *Reader) Shape(shape vectors.Hash) (*vectors.Metadata, bool) {
	metadata, ok := r.shapes[shape]
	return metadata, ok
}

// Next returns the next record, or io.EOF at the end of the log.
func (r *Reader) Next() (Entry, error) {
	var record Record
	if err := r.decoder.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("%w: record %d: %v", ErrCorrupt, r.count, err)
	}
	index := r.count
	r.count++

	switch record.Type {
	case RecordMetadata:
		decoded, err := record.DecodeMetadata()
		if err != nil {
			return Entry{}, fmt.Errorf("record %d: %w", index, err)
		}
		r.shapes[record.Shape] = decoded.Metadata
		return Entry{Record: record, Metadata: decoded}, nil

	case RecordFrame:
		metadata, ok := r.shapes[record.Shape]
		if !ok {
			return Entry{}, fmt.Errorf("%w: record %d: %w %s", ErrCorrupt, index, ErrUnknownShape, record.Shape.Short())
		}
		decoded, err := record.DecodeFrame()
		if err != nil {
			return Entry{}, fmt.Errorf("record %d: %w", index, err)
		}
		if decoded.Shape != record.Shape {
			return Entry{}, fmt.Errorf("%w: record %d: frame shape %s does not match envelope %s",
				ErrCorrupt, index, decoded.Shape.Short(), record.Shape.Short())
		}
		if err := metadata.Validate(decoded.Collection); err != nil {
			return Entry{}, fmt.Errorf("%w: record %d: %w", ErrCorrupt, index, err)
		}
		return Entry{Record: record, Frame: decoded}, nil

	default:
		return Entry{}, fmt.Errorf("%w: record %d: unknown record type %d", ErrCorrupt, index, record.Type)
	}
}

// Close closes the underlying file when the reader was created by
// Open.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
