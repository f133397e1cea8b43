// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/vectorlog/lib/clock"
	"github.com/bureau-foundation/vectorlog/lib/conversion"
	"github.com/bureau-foundation/vectorlog/lib/framelog"
	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
	"github.com/bureau-foundation/vectorlog/lib/vectors"
)

const (
	// DefaultBufferMaxBytes bounds the queued records when
	// Config.BufferMaxBytes is zero.
	DefaultBufferMaxBytes = 16 << 20

	// DefaultFlushInterval is used when Config.FlushInterval is zero.
	DefaultFlushInterval = time.Second
)

// Backoff for failed sink appends. Doubles on each consecutive
// failure, resets on success.
const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

var (
	// ErrNoSources is returned by New when Config.Sources is empty.
	ErrNoSources = errors.New("recorder: no sources configured")

	// ErrPrefixCollision is returned by New when two sources could
	// produce the same key: equal prefixes, or one prefix nested
	// under the other.
	ErrPrefixCollision = errors.New("recorder: source prefixes collide")

	// ErrDuplicateSource is returned by New for a repeated source name.
	ErrDuplicateSource = errors.New("recorder: duplicate source name")

	// ErrUnknownSource is returned by Record for an unconfigured name.
	ErrUnknownSource = errors.New("recorder: unknown source")

	// ErrKindMismatch is returned by Record when a message's kind
	// differs from its source's configured kind.
	ErrKindMismatch = errors.New("recorder: message kind does not match source")
)

// Source is one producer of messages.
type Source struct {
	// Name identifies the source in Record calls, logs and metrics.
	Name string

	// Prefix roots every key the source produces.
	Prefix string

	// Kind is the only message kind the source accepts.
	Kind wearable.Kind
}

// Config configures a Recorder.
type Config struct {
	Sources []Source

	// Delimiter joins key segments. Empty selects
	// conversion.DefaultDelimiter.
	Delimiter string

	// Compression is applied to every encoded record.
	Compression framelog.CompressionTag

	// BufferMaxBytes bounds the frames waiting for the sink.
	BufferMaxBytes int

	// FlushInterval is how often Run syncs the sink.
	FlushInterval time.Duration
}

// Sink receives encoded records in order. *framelog.Writer is the
// production implementation.
type Sink interface {
	Append(record framelog.Record) error
	Sync() error
}

// Stats is a snapshot of the recorder's counters.
type Stats struct {
	FramesRecorded  uint64
	FramesDropped   uint64
	ShapeChanges    uint64
	MetadataWritten uint64
	FramesWritten   uint64
	SinkErrors      uint64
	BufferedRecords int
}

// sourceState holds a source's latest converted message. metadata is
// rebuilt only when the message shape changes; collection on every
// message.
type sourceState struct {
	source     Source
	seen       bool
	shape      vectors.Hash
	metadata   *vectors.Metadata
	collection *vectors.Collection
}

// Recorder merges messages from its sources into frames. Record may
// be called from any goroutine; Run must be running for records to
// reach the sink.
type Recorder struct {
	config  Config
	options []conversion.Option
	sink    Sink
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics
	buffer  *Buffer

	// sources is read-only after New.
	sources map[string]*sourceState
	order   []*sourceState

	mu sync.Mutex
	// frameMetadata is the merged metadata of every seen source, in
	// configuration order.
	frameMetadata *vectors.Metadata
	frameShape    vectors.Hash
	queuedShape   vectors.Hash
	sequence      uint64

	framesRecorded  atomic.Uint64
	shapeChanges    atomic.Uint64
	metadataWritten atomic.Uint64
	framesWritten   atomic.Uint64
	sinkErrors      atomic.Uint64
}

// New validates config and creates a Recorder writing to sink.
// Metrics are registered with registerer when it is non-nil.
func New(config Config, sink Sink, clk clock.Clock, logger *slog.Logger, registerer prometheus.Registerer) (*Recorder, error) {
	if config.Delimiter == "" {
		config.Delimiter = conversion.DefaultDelimiter
	}
	if config.BufferMaxBytes <= 0 {
		config.BufferMaxBytes = DefaultBufferMaxBytes
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if err := validateSources(config.Sources, config.Delimiter); err != nil {
		return nil, err
	}

	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		config:        config,
		options:       []conversion.Option{conversion.WithDelimiter(config.Delimiter)},
		sink:          sink,
		clock:         clk,
		logger:        logger,
		metrics:       m,
		buffer:        NewBuffer(config.BufferMaxBytes),
		sources:       make(map[string]*sourceState, len(config.Sources)),
		frameMetadata: vectors.NewMetadata(),
	}
	for _, source := range config.Sources {
		state := &sourceState{
			source:     source,
			metadata:   vectors.NewMetadata(),
			collection: vectors.NewCollection(),
		}
		r.sources[source.Name] = state
		r.order = append(r.order, state)
	}
	return r, nil
}

func validateSources(sources []Source, delimiter string) error {
	if len(sources) == 0 {
		return ErrNoSources
	}
	var errs []error
	names := make(map[string]bool, len(sources))
	for index, source := range sources {
		if names[source.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateSource, source.Name))
		}
		names[source.Name] = true
		if _, err := wearable.ParseKind(string(source.Kind)); err != nil {
			errs = append(errs, fmt.Errorf("source %q: %w", source.Name, err))
		}
		for _, other := range sources[:index] {
			if prefixesCollide(source.Prefix, other.Prefix, delimiter) {
				errs = append(errs, fmt.Errorf("%w: %q (%q) and %q (%q)",
					ErrPrefixCollision, other.Name, other.Prefix, source.Name, source.Prefix))
			}
		}
	}
	return errors.Join(errs...)
}

// prefixesCollide reports whether keys under a and b can be equal. An
// empty prefix shares the key space with every other prefix.
func prefixesCollide(a, b, delimiter string) bool {
	if a == b || a == "" || b == "" {
		return true
	}
	return strings.HasPrefix(a, b+delimiter) || strings.HasPrefix(b, a+delimiter)
}

// Record converts message into the named source's slice of the frame
// and queues a frame holding the latest slice of every source seen so
// far. When the merged shape changes, a metadata record is queued
// first.
func (r *Recorder) Record(ctx context.Context, name string, message wearable.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, ok := r.sources[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	if message == nil {
		return fmt.Errorf("source %q: nil message", name)
	}
	if message.Kind() != state.source.Kind {
		return fmt.Errorf("%w: source %q expects %s, got %s",
			ErrKindMismatch, name, state.source.Kind, message.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := state.source.Prefix
	shape := conversion.ShapeOf(message, prefix, r.options...)
	state.collection.Reset()
	if !state.seen || shape != state.shape {
		state.metadata.Reset()
		conversion.Convert(message, prefix, state.metadata, state.collection, r.options...)
		if state.seen {
			r.logger.Info("source shape changed",
				"source", name,
				"previous", state.shape.Short(),
				"shape", shape.Short(),
			)
		}
		state.seen = true
		state.shape = shape
		r.rebuildFrameMetadataLocked()
		r.shapeChanges.Add(1)
		r.metrics.shapeChanges.WithLabelValues(name).Inc()
	} else {
		conversion.ConvertToVectorsCollection(message, prefix, state.collection, r.options...)
	}

	if r.frameShape != r.queuedShape {
		record, err := framelog.EncodeMetadata(r.frameMetadata, r.config.Compression)
		if err != nil {
			return fmt.Errorf("source %q: %w", name, err)
		}
		if err := r.pushLocked(record); err != nil {
			return err
		}
		r.queuedShape = r.frameShape
	}

	collection := vectors.NewCollection()
	for _, source := range r.order {
		if source.seen {
			collection.Merge(source.collection)
		}
	}
	frame := framelog.FrameRecord{
		Sequence:   r.sequence,
		Timestamp:  r.clock.Now(),
		Shape:      r.frameShape,
		Collection: collection,
	}
	r.sequence++

	record, err := framelog.EncodeFrame(frame, r.config.Compression)
	if err != nil {
		return fmt.Errorf("source %q: %w", name, err)
	}
	if err := r.pushLocked(record); err != nil {
		return err
	}
	r.framesRecorded.Add(1)
	r.metrics.framesRecorded.Inc()
	return nil
}

func (r *Recorder) rebuildFrameMetadataLocked() {
	r.frameMetadata = vectors.NewMetadata()
	for _, source := range r.order {
		if source.seen {
			r.frameMetadata.Merge(source.metadata)
		}
	}
	r.frameShape = r.frameMetadata.Fingerprint()
}

func (r *Recorder) pushLocked(record framelog.Record) error {
	evicted, err := r.buffer.Push(record)
	if err != nil {
		return err
	}
	if evicted > 0 {
		r.metrics.framesDropped.Add(float64(evicted))
		r.logger.Warn("buffer full, dropped oldest frames",
			"dropped", evicted,
			"buffer_bytes", r.buffer.SizeBytes(),
		)
	}
	r.metrics.bufferBytes.Set(float64(r.buffer.SizeBytes()))
	return nil
}

// Run drains queued records into the sink until ctx is cancelled,
// syncing it every FlushInterval. On cancellation it writes whatever
// is still queued, syncs, and returns any error from that final pass.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	backoff := initialBackoff
	dirty := false
	for {
		select {
		case <-r.buffer.Notify():
		case <-ticker.C:
			if dirty {
				if err := r.sink.Sync(); err != nil {
					r.recordSinkError("sync failed", err)
				} else {
					dirty = false
				}
			}
			continue
		case <-ctx.Done():
			return r.drain()
		}

		for {
			written, err := r.writePending()
			dirty = dirty || written > 0
			if err == nil {
				backoff = initialBackoff
				break
			}
			r.recordSinkError("append failed, will retry", err,
				"backoff", backoff,
				"buffered", r.buffer.Len(),
			)
			select {
			case <-r.clock.After(backoff):
			case <-ctx.Done():
				return r.drain()
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}
}

// writePending appends queued records in order until the buffer is
// empty or the sink fails. A failed record stays queued.
func (r *Recorder) writePending() (int, error) {
	written := 0
	for {
		record, id, ok := r.buffer.Peek()
		if !ok {
			return written, nil
		}
		if err := r.sink.Append(record); err != nil {
			return written, err
		}
		r.buffer.Pop(id)
		written++
		switch record.Type {
		case framelog.RecordMetadata:
			r.metadataWritten.Add(1)
		case framelog.RecordFrame:
			r.framesWritten.Add(1)
		}
		r.metrics.recordsWritten.WithLabelValues(record.Type.String()).Inc()
		r.metrics.bufferBytes.Set(float64(r.buffer.SizeBytes()))
	}
}

func (r *Recorder) drain() error {
	var errs []error
	if _, err := r.writePending(); err != nil {
		r.recordSinkError("drain: append failed, abandoning remaining", err,
			"remaining", r.buffer.Len(),
		)
		errs = append(errs, fmt.Errorf("draining recorder: %w", err))
	}
	if err := r.sink.Sync(); err != nil {
		r.recordSinkError("drain: sync failed", err)
		errs = append(errs, fmt.Errorf("syncing sink: %w", err))
	}
	return errors.Join(errs...)
}

func (r *Recorder) recordSinkError(message string, err error, attrs ...any) {
	r.sinkErrors.Add(1)
	r.metrics.sinkErrors.Inc()
	r.logger.Warn(message, append([]any{"error", err}, attrs...)...)
}

// Stats returns a snapshot of the recorder's counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		FramesRecorded:  r.framesRecorded.Load(),
		FramesDropped:   r.buffer.Dropped(),
		ShapeChanges:    r.shapeChanges.Load(),
		MetadataWritten: r.metadataWritten.Load(),
		FramesWritten:   r.framesWritten.Load(),
		SinkErrors:      r.sinkErrors.Load(),
		BufferedRecords: r.buffer.Len(),
	}
}

// FrameMetadata returns a copy of the merged metadata of the most
// recent frame.
func (r *Recorder) FrameMetadata() *vectors.Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameMetadata.Clone()
}
