// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/vectorlog/lib/clock"
	"github.com/bureau-foundation/vectorlog/lib/framelog"
	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
	"github.com/bureau-foundation/vectorlog/lib/testutil"
	"github.com/bureau-foundation/vectorlog/lib/vectors"
)

// fakeSink records appended records and fails the first failures
// appends.
type fakeSink struct {
	mu       sync.Mutex
	records  []framelog.Record
	syncs    int
	failures int
}

func (s *fakeSink) Append(record framelog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("disk full")
	}
	s.records = append(s.records, record)
	return nil
}

func (s *fakeSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
	return nil
}

func (s *fakeSink) snapshot() []framelog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testSources() []Source {
	return []Source{
		{Name: "robot", Prefix: "robot", Kind: wearable.KindRobotState},
		{Name: "suit", Prefix: "wear", Kind: wearable.KindSensorReading},
	}
}

func robotState(joints ...string) *wearable.RobotState {
	state := &wearable.RobotState{
		BaseName:        "pelvis",
		BasePosition:    wearable.VectorXYZ{X: 1, Y: 2, Z: 3},
		BaseOrientation: wearable.IdentityQuaternion,
	}
	for index, joint := range joints {
		state.JointNames = append(state.JointNames, joint)
		state.JointPositions = append(state.JointPositions, float64(index)/10)
		state.JointVelocities = append(state.JointVelocities, 0)
	}
	return state
}

func sensorReading() *wearable.SensorReading {
	return &wearable.SensorReading{
		Producer: "suit",
		Sensors: []wearable.Sensor{{
			Name:         "imu0",
			Kind:         "accelerometer",
			Status:       wearable.SensorOK,
			Acceleration: &wearable.VectorXYZ{X: 0, Y: 0, Z: 9.81},
		}},
	}
}

func newTestRecorder(t *testing.T, sink Sink, clk clock.Clock) *Recorder {
	t.Helper()
	recorder, err := New(Config{
		Sources:       testSources(),
		Compression:   framelog.CompressionLZ4,
		FlushInterval: time.Second,
	}, sink, clk, testLogger(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return recorder
}

// runUntilDrained starts Run, cancels it and waits for the final drain.
func runUntilDrained(t *testing.T, recorder *Recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- recorder.Run(ctx) }()
	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Run"); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

// decodeLog replays records the way a reader would, checking every
// frame against the metadata written before it.
func decodeLog(t *testing.T, records []framelog.Record) (metadata []*vectors.Metadata, frames []*framelog.FrameRecord) {
	t.Helper()
	known := map[vectors.Hash]*vectors.Metadata{}
	for index, record := range records {
		switch record.Type {
		case framelog.RecordMetadata:
			decoded, err := record.DecodeMetadata()
			if err != nil {
				t.Fatalf("record %d: %v", index, err)
			}
			known[decoded.Shape] = decoded.Metadata
			metadata = append(metadata, decoded.Metadata)
		case framelog.RecordFrame:
			shapeMetadata, ok := known[record.Shape]
			if !ok {
				t.Fatalf("record %d: frame before its metadata", index)
			}
			decoded, err := record.DecodeFrame()
			if err != nil {
				t.Fatalf("record %d: %v", index, err)
			}
			if err := shapeMetadata.Validate(decoded.Collection); err != nil {
				t.Fatalf("record %d: %v", index, err)
			}
			frames = append(frames, decoded)
		}
	}
	return metadata, frames
}

func TestNewValidatesSources(t *testing.T) {
	tests := []struct {
		name    string
		sources []Source
		want    error
	}{
		{"none", nil, ErrNoSources},
		{"equal prefixes", []Source{
			{Name: "a", Prefix: "robot", Kind: wearable.KindRobotState},
			{Name: "b", Prefix: "robot", Kind: wearable.KindTargetSet},
		}, ErrPrefixCollision},
		{"nested prefixes", []Source{
			{Name: "a", Prefix: "robot", Kind: wearable.KindRobotState},
			{Name: "b", Prefix: "robot::targets", Kind: wearable.KindTargetSet},
		}, ErrPrefixCollision},
		{"empty prefix beside another", []Source{
			{Name: "a", Prefix: "", Kind: wearable.KindRobotState},
			{Name: "b", Prefix: "wear", Kind: wearable.KindSensorReading},
		}, ErrPrefixCollision},
		{"duplicate name", []Source{
			{Name: "a", Prefix: "robot", Kind: wearable.KindRobotState},
			{Name: "a", Prefix: "wear", Kind: wearable.KindSensorReading},
		}, ErrDuplicateSource},
		{"unknown kind", []Source{
			{Name: "a", Prefix: "robot", Kind: "joystick"},
		}, wearable.ErrUnknownKind},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(Config{Sources: test.sources}, &fakeSink{}, clock.Fake(epoch), testLogger(), nil)
			if !errors.Is(err, test.want) {
				t.Errorf("got %v, want %v", err, test.want)
			}
		})
	}

	// A prefix that merely starts with another's text does not nest.
	_, err := New(Config{Sources: []Source{
		{Name: "a", Prefix: "robot", Kind: wearable.KindRobotState},
		{Name: "b", Prefix: "robotarm", Kind: wearable.KindRobotState},
	}}, &fakeSink{}, clock.Fake(epoch), testLogger(), nil)
	if err != nil {
		t.Errorf("robot and robotarm: %v", err)
	}
}

func TestRecordRejectsBadMessages(t *testing.T) {
	recorder := newTestRecorder(t, &fakeSink{}, clock.Fake(epoch))
	ctx := context.Background()

	if err := recorder.Record(ctx, "lidar", robotState()); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("unknown source: got %v", err)
	}
	if err := recorder.Record(ctx, "robot", sensorReading()); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("kind mismatch: got %v", err)
	}
	if err := recorder.Record(ctx, "robot", nil); err == nil {
		t.Error("nil message accepted")
	}
	if stats := recorder.Stats(); stats.FramesRecorded != 0 || stats.BufferedRecords != 0 {
		t.Errorf("rejected messages reached the buffer: %+v", stats)
	}
}

func TestRecordMergesSourcesIntoFrames(t *testing.T) {
	sink := &fakeSink{}
	clk := clock.Fake(epoch)
	recorder := newTestRecorder(t, sink, clk)
	ctx := context.Background()

	if err := recorder.Record(ctx, "robot", robotState("hip", "knee")); err != nil {
		t.Fatalf("Record robot: %v", err)
	}
	clk.Advance(10 * time.Millisecond)
	if err := recorder.Record(ctx, "suit", sensorReading()); err != nil {
		t.Fatalf("Record suit: %v", err)
	}
	clk.Advance(10 * time.Millisecond)
	if err := recorder.Record(ctx, "robot", robotState("hip", "knee")); err != nil {
		t.Fatalf("Record robot again: %v", err)
	}
	runUntilDrained(t, recorder)

	metadata, frames := decodeLog(t, sink.snapshot())
	// The suit's first message widens the frame; the third message
	// keeps the shape.
	if len(metadata) != 2 {
		t.Fatalf("metadata records = %d, want 2", len(metadata))
	}
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}
	for index, frame := range frames {
		if frame.Sequence != uint64(index) {
			t.Errorf("frame %d has sequence %d", index, frame.Sequence)
		}
	}
	if want := epoch.Add(20 * time.Millisecond); !frames[2].Timestamp.Equal(want) {
		t.Errorf("last frame timestamp = %v, want %v", frames[2].Timestamp, want)
	}

	last := frames[2].Collection
	if _, ok := last.Get("wear::sensor::imu0::acceleration"); !ok {
		t.Errorf("last frame lacks held suit values: %v", last.Keys())
	}
	joints, ok := last.Get("robot::jointPositions")
	if !ok || !slices.Equal(joints, []float64{0, 0.1}) {
		t.Errorf("robot::jointPositions = %v, %v", joints, ok)
	}
	names, _ := metadata[1].Get("robot::jointPositions")
	if !slices.Equal(names, []string{"hip", "knee"}) {
		t.Errorf("joint names = %v", names)
	}

	// Keys of every source come in configuration order.
	keys := last.Keys()
	firstSuit := slices.IndexFunc(keys, func(key string) bool { return strings.HasPrefix(key, "wear::") })
	lastRobot := -1
	for index, key := range keys {
		if strings.HasPrefix(key, "robot::") {
			lastRobot = index
		}
	}
	if firstSuit < 0 || lastRobot > firstSuit {
		t.Errorf("robot keys are not first: %v", keys)
	}

	stats := recorder.Stats()
	if stats.FramesRecorded != 3 || stats.FramesWritten != 3 || stats.MetadataWritten != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ShapeChanges != 2 {
		t.Errorf("ShapeChanges = %d, want 2", stats.ShapeChanges)
	}
}

func TestRecordShapeChangeWritesNewMetadata(t *testing.T) {
	sink := &fakeSink{}
	recorder := newTestRecorder(t, sink, clock.Fake(epoch))
	ctx := context.Background()

	for _, joints := range [][]string{{"hip"}, {"hip"}, {"hip", "knee"}, {"hip", "knee"}} {
		if err := recorder.Record(ctx, "robot", robotState(joints...)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	runUntilDrained(t, recorder)

	records := sink.snapshot()
	var types []framelog.RecordType
	for _, record := range records {
		types = append(types, record.Type)
	}
	want := []framelog.RecordType{
		framelog.RecordMetadata, framelog.RecordFrame, framelog.RecordFrame,
		framelog.RecordMetadata, framelog.RecordFrame, framelog.RecordFrame,
	}
	if !slices.Equal(types, want) {
		t.Fatalf("record types = %v, want %v", types, want)
	}
	metadata, _ := decodeLog(t, records)
	names, _ := metadata[1].Get("robot::jointPositions")
	if !slices.Equal(names, []string{"hip", "knee"}) {
		t.Errorf("joint names after change = %v", names)
	}
	if got := recorder.FrameMetadata().Fingerprint(); got != metadata[1].Fingerprint() {
		t.Errorf("FrameMetadata fingerprint %s, want %s", got.Short(), metadata[1].Fingerprint().Short())
	}
}

func TestRunRetriesFailedAppend(t *testing.T) {
	sink := &fakeSink{failures: 1}
	clk := clock.Fake(epoch)
	recorder := newTestRecorder(t, sink, clk)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- recorder.Run(ctx) }()

	if err := recorder.Record(ctx, "robot", robotState("hip")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// The flush ticker plus the backoff timer.
	clk.WaitForTimers(2)
	clk.Advance(initialBackoff)

	testutil.RequireEventually(t, func() bool { return len(sink.snapshot()) == 2 },
		5*time.Second, "metadata and frame written after retry")

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Run"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats := recorder.Stats(); stats.SinkErrors != 1 {
		t.Errorf("SinkErrors = %d, want 1", stats.SinkErrors)
	}
}

func TestRunSyncsOnInterval(t *testing.T) {
	sink := &fakeSink{}
	clk := clock.Fake(epoch)
	recorder := newTestRecorder(t, sink, clk)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- recorder.Run(ctx) }()

	if err := recorder.Record(ctx, "robot", robotState("hip")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	testutil.RequireEventually(t, func() bool { return len(sink.snapshot()) == 2 },
		5*time.Second, "records reaching the sink")

	clk.WaitForTimers(1)
	clk.Advance(time.Second)
	testutil.RequireEventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.syncs > 0
	}, 5*time.Second, "sink synced on the flush tick")

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Run"); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestMetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := New(Config{Sources: testSources()}, &fakeSink{}, clock.Fake(epoch), testLogger(), registry); err != nil {
		t.Fatalf("New: %v", err)
	}
	// A second recorder on the same registry collides.
	if _, err := New(Config{Sources: testSources()}, &fakeSink{}, clock.Fake(epoch), testLogger(), registry); err == nil {
		t.Error("second registration succeeded")
	}
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "vectorlog_recorder_buffer_bytes" {
			found = true
		}
	}
	if !found {
		t.Error("vectorlog_recorder_buffer_bytes not gathered")
	}
}
