// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framelog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"filippo.io/age"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/vectorlog/lib/codec"
	"github.com/bureau-foundation/vectorlog/lib/vectors"
)

// ErrLocked is returned by Create when another writer holds the file.
var ErrLocked = errors.New("vector log is locked by another writer")

// WriterOptions configures a new log.
type WriterOptions struct {
	// Delimiter is recorded in the header so readers can split keys.
	Delimiter string

	// Compression applies to every record body.
	Compression CompressionTag

	// Recipients, when non-empty, age-encrypt the whole stream.
	Recipients []age.Recipient

	// Session identifies the recording run. A zero value is replaced
	// with a random UUID.
	Session uuid.UUID

	// CreatedAt is stored in the header. A zero value is replaced with
	// time.Now.
	CreatedAt time.Time
}

// Writer appends records to a log. A Writer is not safe for
// concurrent use; the recorder drives it from one goroutine.
type Writer struct {
	file      *os.File
	encrypted io.WriteCloser
	buffered  *bufio.Writer
	encoder   *codec.Encoder
	header    Header

	// shapes maps every fingerprint written so far to its metadata.
	shapes map[vectors.Hash]*vectors.Metadata

	metadataRecords int
	frameRecords    int
}

// Create truncates or creates path and writes a new log header. The
// file stays exclusively flocked until Close.
func Create(path string, options WriterOptions) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening vector log: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("locking vector log: %w", err)
	}
	// Truncate only once the lock is held, so a second recorder
	// pointed at a live log fails without destroying it.
	if err := file.Truncate(0); err != nil {
		file.Close()
		return nil, fmt.Errorf("truncating vector log: %w", err)
	}

	writer, err := newWriter(file, options)
	if err != nil {
		file.Close()
		return nil, err
	}
	writer.file = file
	return writer, nil
}

// NewWriter writes a log to w without locking. Close flushes but does
// not close w.
func NewWriter(w io.Writer, options WriterOptions) (*Writer, error) {
	return newWriter(w, options)
}

func newWriter(destination io.Writer, options WriterOptions) (*Writer, error) {
	writer := &Writer{shapes: make(map[vectors.Hash]*vectors.Metadata)}

	if len(options.Recipients) > 0 {
		encrypted, err := age.Encrypt(destination, options.Recipients...)
		if err != nil {
			return nil, fmt.Errorf("starting age encryption: %w", err)
		}
		writer.encrypted = encrypted
		destination = encrypted
	}

	writer.buffered = bufio.NewWriter(destination)
	writer.encoder = codec.NewEncoder(writer.buffered)

	session := options.Session
	if session == uuid.Nil {
		session = uuid.New()
	}
	createdAt := options.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	writer.header = Header{
		Version:     FormatVersion,
		Session:     session,
		Delimiter:   options.Delimiter,
		Compression: options.Compression,
		CreatedAt:   createdAt.UTC(),
	}

	if _, err := writer.buffered.WriteString(Magic); err != nil {
		return nil, fmt.Errorf("writing magic: %w", err)
	}
	if err := writer.encoder.Encode(writer.header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return writer, nil
}

// Header returns the header written at the start of the log.
func (w *Writer) Header() Header { return w.header }

// HasShape reports whether metadata for shape has been written.
func (w *Writer) HasShape(shape vectors.Hash) bool {
	_, ok := w.shapes[shape]
	return ok
}

// WriteMetadata writes a metadata record for metadata unless the same
// shape was already written. It returns the shape fingerprint.
func (w *Writer) WriteMetadata(metadata *vectors.Metadata) (vectors.Hash, error) {
	shape := metadata.Fingerprint()
	if w.HasShape(shape) {
		return shape, nil
	}
	record, err := EncodeMetadata(metadata, w.header.Compression)
	if err != nil {
		return vectors.Hash{}, err
	}
	if err := w.encoder.Encode(record); err != nil {
		return vectors.Hash{}, fmt.Errorf("writing metadata record: %w", err)
	}
	w.shapes[shape] = metadata.Clone()
	w.metadataRecords++
	return shape, nil
}

// WriteFrame writes one frame. The frame's shape must have been
// written, and its collection must agree with that shape's metadata.
func (w *Writer) WriteFrame(frame FrameRecord) error {
	metadata, ok := w.shapes[frame.Shape]
	if !ok {
		return fmt.Errorf("frame %d: %w %s", frame.Sequence, ErrUnknownShape, frame.Shape.Short())
	}
	if metadata != nil {
		if err := metadata.Validate(frame.Collection); err != nil {
			return fmt.Errorf("frame %d: %w", frame.Sequence, err)
		}
	}
	record, err := EncodeFrame(frame, w.header.Compression)
	if err != nil {
		return err
	}
	return w.appendFrame(record)
}

// Append writes a record encoded elsewhere (by EncodeMetadata or
// EncodeFrame). Frame records are subject to the same shape ordering
// rule as WriteFrame.
func (w *Writer) Append(record Record) error {
	switch record.Type {
	case RecordMetadata:
		if w.HasShape(record.Shape) {
			return nil
		}
		decoded, err := record.DecodeMetadata()
		if err != nil {
			return err
		}
		if err := w.encoder.Encode(record); err != nil {
			return fmt.Errorf("writing metadata record: %w", err)
		}
		w.shapes[record.Shape] = decoded.Metadata
		w.metadataRecords++
		return nil
	case RecordFrame:
		if !w.HasShape(record.Shape) {
			return fmt.Errorf("%w %s", ErrUnknownShape, record.Shape.Short())
		}
		return w.appendFrame(record)
	default:
		return fmt.Errorf("unknown record type %d", record.Type)
	}
}

func (w *Writer) appendFrame(record Record) error {
	if err := w.encoder.Encode(record); err != nil {
		return fmt.Errorf("writing frame record: %w", err)
	}
	w.frameRecords++
	return nil
}

// Counts returns how many metadata and frame records were written.
func (w *Writer) Counts() (metadata, frames int) {
	return w.metadataRecords, w.frameRecords
}

// Sync flushes buffered records and fsyncs the file. For encrypted
// logs only whole age chunks reach the file before Close.
func (w *Writer) Sync() error {
	if err := w.buffered.Flush(); err != nil {
		return fmt.Errorf("flushing vector log: %w", err)
	}
	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("syncing vector log: %w", err)
		}
	}
	return nil
}

// Close flushes, finishes encryption and closes the file, releasing
// the lock.
func (w *Writer) Close() error {
	var errs []error
	if err := w.buffered.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flushing vector log: %w", err))
	}
	if w.encrypted != nil {
		if err := w.encrypted.Close(); err != nil {
			errs = append(errs, fmt.Errorf("finishing encryption: %w", err))
		}
	}
	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("syncing vector log: %w", err))
		}
		if err := w.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing vector log: %w", err))
		}
	}
	return errors.Join(errs...)
}
