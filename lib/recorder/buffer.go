// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"fmt"
	"sync"

	"github.com/bureau-foundation/vectorlog/lib/framelog"
)

// Buffer is a size-bounded FIFO of encoded log records. When a Push
// would exceed the byte limit, the oldest frame records are dropped
// until the new record fits.
//
// Metadata records are pinned: they are never evicted, because every
// later frame of their shape depends on them. The record most recently
// returned by Peek is held the same way until it is popped. A buffer
// holding only held records may exceed its limit.
//
// The notify channel (capacity 1) wakes the drain loop when a record
// is pushed.
//
// Thread-safe: all methods may be called concurrently.
type Buffer struct {
	mu        sync.Mutex
	entries   []bufferEntry
	totalSize int
	maxSize   int
	dropped   uint64
	notify    chan struct{}

	// nextID numbers entries in push order. inFlight is the entry
	// handed out by Peek, zero when none is.
	nextID   uint64
	inFlight uint64
}

type bufferEntry struct {
	id     uint64
	record framelog.Record
	size   int
	pinned bool
}

// NewBuffer creates a Buffer holding at most maxSize bytes of frame
// records. Panics if maxSize is not positive.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		panic(fmt.Sprintf("buffer: maxSize must be positive, got %d", maxSize))
	}
	return &Buffer{
		maxSize: maxSize,
		notify:  make(chan struct{}, 1),
	}
}

// Push appends a record and returns how many frames were evicted to
// make room. A frame larger than the whole buffer is an error.
func (b *Buffer) Push(record framelog.Record) (int, error) {
	size := record.EncodedSize()
	pinned := record.Type == framelog.RecordMetadata
	if !pinned && size > b.maxSize {
		return 0, fmt.Errorf("buffer: frame size %d exceeds max buffer size %d", size, b.maxSize)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	evicted := 0
	for b.totalSize+size > b.maxSize {
		index := b.oldestUnpinnedLocked()
		if index < 0 {
			break
		}
		b.totalSize -= b.entries[index].size
		b.entries = append(b.entries[:index], b.entries[index+1:]...)
		b.dropped++
		evicted++
	}

	b.nextID++
	b.entries = append(b.entries, bufferEntry{id: b.nextID, record: record, size: size, pinned: pinned})
	b.totalSize += size

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return evicted, nil
}

func (b *Buffer) oldestUnpinnedLocked() int {
	for index, entry := range b.entries {
		if !entry.pinned && entry.id != b.inFlight {
			return index
		}
	}
	return -1
}

// Peek returns the oldest record and its id without removing it. The
// record is not evicted until Pop is called with that id, so a Push
// racing with the write cannot drop it.
func (b *Buffer) Peek() (framelog.Record, uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return framelog.Record{}, 0, false
	}
	head := b.entries[0]
	b.inFlight = head.id
	return head.record, head.id, true
}

// Pop removes the record Peek returned as id. It reports false if no
// such record is queued.
func (b *Buffer) Pop(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight == id {
		b.inFlight = 0
	}
	for index, entry := range b.entries {
		if entry.id != id {
			continue
		}
		b.totalSize -= entry.size
		b.entries = append(b.entries[:index], b.entries[index+1:]...)
		return true
	}
	return false
}

// Len returns the number of queued records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// SizeBytes returns the accounted size of all queued records.
func (b *Buffer) SizeBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalSize
}

// Dropped returns the number of frames evicted since creation.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Notify returns a channel signalled after each Push.
func (b *Buffer) Notify() <-chan struct{} {
	return b.notify
}
