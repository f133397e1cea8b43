// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filippo.io/age"

	"github.com/bureau-foundation/vectorlog/lib/clock"
	"github.com/bureau-foundation/vectorlog/lib/codec"
	"github.com/bureau-foundation/vectorlog/lib/config"
	"github.com/bureau-foundation/vectorlog/lib/framelog"
	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
)

const robotStateJSON = `{
	// comments are allowed
	"joint_names": ["hip", "knee"],
	"joint_positions": [0.5, -0.25],
	"joint_velocities": [0, 0],
	"base_position": {"x": 1, "y": 2, "z": 3},
	"base_orientation": {"w": 1, "x": 0, "y": 0, "z": 0},
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConvertText(t *testing.T) {
	var stdout bytes.Buffer
	err := runConvert(strings.NewReader(robotStateJSON), &stdout, "-", convertParams{
		kind:      "robot-state",
		prefix:    "robot",
		delimiter: "::",
	})
	if err != nil {
		t.Fatalf("runConvert: %v", err)
	}
	output := stdout.String()
	for _, fragment := range []string{
		"robot::jointPositions",
		"hip=0.5 knee=-0.25",
		"robot::basePosition",
		"x=1 y=2 z=3",
	} {
		if !strings.Contains(output, fragment) {
			t.Errorf("output lacks %q:\n%s", fragment, output)
		}
	}
}

func TestConvertJSONFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	content := "joint_names: [hip]\njoint_positions: [0.5]\njoint_velocities: [0.1]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var stdout bytes.Buffer
	err := runConvert(nil, &stdout, path, convertParams{
		kind:      "robot-state",
		prefix:    "robot",
		delimiter: "/",
		json:      true,
	})
	if err != nil {
		t.Fatalf("runConvert: %v", err)
	}

	var result struct {
		Kind     string `json:"kind"`
		Shape    string `json:"shape"`
		Metadata []struct {
			Key   string   `json:"key"`
			Names []string `json:"names"`
		} `json:"metadata"`
		Collection []struct {
			Key    string    `json:"key"`
			Values []float64 `json:"values"`
		} `json:"collection"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, stdout.String())
	}
	if result.Kind != "robot-state" || len(result.Shape) != 64 {
		t.Errorf("kind %q shape %q", result.Kind, result.Shape)
	}
	if len(result.Metadata) != len(result.Collection) {
		t.Fatalf("%d metadata entries, %d collection entries", len(result.Metadata), len(result.Collection))
	}
	if result.Collection[0].Key != "robot/jointPositions" {
		t.Errorf("first key = %q, want robot/jointPositions", result.Collection[0].Key)
	}
	for index, entry := range result.Collection {
		if len(entry.Values) != len(result.Metadata[index].Names) {
			t.Errorf("%s: %d values, %d names", entry.Key, len(entry.Values), len(result.Metadata[index].Names))
		}
	}
}

func TestConvertRejectsUnknownKind(t *testing.T) {
	err := runConvert(strings.NewReader("{}"), io.Discard, "-", convertParams{kind: "joystick"})
	if !errors.Is(err, wearable.ErrUnknownKind) {
		t.Errorf("got %v, want ErrUnknownKind", err)
	}
}

// writeStream writes messages as a CBOR sequence.
func writeStream(t *testing.T, path string, messages ...wearable.Message) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer file.Close()
	encoder := codec.NewEncoder(file)
	for _, message := range messages {
		if err := encoder.Encode(message); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
}

func sessionConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	robotPath := filepath.Join(dir, "robot.cbor")
	suitPath := filepath.Join(dir, "suit.cbor")

	var states []wearable.Message
	for step := range 10 {
		states = append(states, &wearable.RobotState{
			JointNames:      []string{"hip", "knee"},
			JointPositions:  []float64{float64(step), -float64(step)},
			JointVelocities: []float64{1, -1},
			BaseOrientation: wearable.IdentityQuaternion,
		})
	}
	writeStream(t, robotPath, states...)
	writeStream(t, suitPath, &wearable.SensorReading{
		Producer: "suit",
		Sensors: []wearable.Sensor{{
			Name:         "imu0",
			Status:       wearable.SensorOK,
			Acceleration: &wearable.VectorXYZ{Z: 9.81},
		}},
	})

	cfg := config.Default()
	cfg.Output.Path = filepath.Join(dir, "session.vlog")
	cfg.Sources = []config.SourceConfig{
		{Name: "robot", Prefix: "robot", Kind: "robot-state", Input: robotPath},
		{Name: "suit", Prefix: "wear", Kind: "sensor-reading", Input: suitPath},
	}
	return cfg
}

func TestRecordThenInspect(t *testing.T) {
	cfg := sessionConfig(t)

	summary, err := runRecord(context.Background(), cfg, clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)), discardLogger())
	if err != nil {
		t.Fatalf("runRecord: %v", err)
	}
	if summary.Messages["robot"] != 10 || summary.Messages["suit"] != 1 {
		t.Errorf("messages = %v", summary.Messages)
	}
	if summary.Stats.FramesWritten != 11 {
		t.Errorf("FramesWritten = %d, want 11", summary.Stats.FramesWritten)
	}

	var stdout bytes.Buffer
	inspected, err := runInspect(&stdout, cfg.Output.Path, inspectParams{values: true})
	if err != nil {
		t.Fatalf("runInspect: %v\n%s", err, stdout.String())
	}
	if inspected.Frames != 11 || inspected.Gaps != 0 {
		t.Errorf("inspect summary = %+v", inspected)
	}
	if uint64(inspected.MetadataRecords) != summary.Stats.MetadataWritten {
		t.Errorf("inspect found %d metadata records, recorder wrote %d",
			inspected.MetadataRecords, summary.Stats.MetadataWritten)
	}
	if !strings.Contains(stdout.String(), "session "+summary.Session) {
		t.Errorf("header line missing session %s:\n%s", summary.Session, stdout.String())
	}
	if !strings.Contains(stdout.String(), "robot::jointPositions") {
		t.Errorf("values missing from output:\n%s", stdout.String())
	}
}

func TestRecordEncryptedThenInspect(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity: %v", err)
	}
	cfg := sessionConfig(t)
	cfg.Output.Recipients = []string{identity.Recipient().String()}
	cfg.Output.Compression = "zstd"

	if _, err := runRecord(context.Background(), cfg, clock.Fake(time.Now()), discardLogger()); err != nil {
		t.Fatalf("runRecord: %v", err)
	}

	if _, err := runInspect(io.Discard, cfg.Output.Path, inspectParams{}); !errors.Is(err, framelog.ErrEncrypted) {
		t.Errorf("inspect without identity: got %v, want ErrEncrypted", err)
	}

	identityPath := filepath.Join(t.TempDir(), "key.txt")
	if err := os.WriteFile(identityPath, []byte(identity.String()+"\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	var stdout bytes.Buffer
	summary, err := runInspect(&stdout, cfg.Output.Path, inspectParams{identityPath: identityPath, json: true})
	if err != nil {
		t.Fatalf("runInspect: %v", err)
	}
	if summary.Frames != 11 {
		t.Errorf("frames = %d, want 11", summary.Frames)
	}
	// The header plus one JSON object per record.
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if want := 1 + summary.Frames + summary.MetadataRecords; len(lines) != want {
		t.Errorf("got %d JSON lines, want %d", len(lines), want)
	}
	for index, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Errorf("line %d is not JSON: %s", index, line)
		}
	}
}

func TestRecordRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	if _, err := runRecord(context.Background(), cfg, clock.Fake(time.Now()), discardLogger()); !errors.Is(err, config.ErrNoSources) {
		t.Errorf("got %v, want ErrNoSources", err)
	}
}

func TestInspectCorruptLog(t *testing.T) {
	cfg := sessionConfig(t)
	cfg.Output.Compression = "none"
	if _, err := runRecord(context.Background(), cfg, clock.Fake(time.Now()), discardLogger()); err != nil {
		t.Fatalf("runRecord: %v", err)
	}
	data, err := os.ReadFile(cfg.Output.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(cfg.Output.Path, data[:len(data)-3], 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var stdout bytes.Buffer
	summary, err := runInspect(&stdout, cfg.Output.Path, inspectParams{})
	if !errors.Is(err, framelog.ErrCorrupt) {
		t.Fatalf("got %v, want ErrCorrupt", err)
	}
	if summary.Frames == 0 || !strings.Contains(stdout.String(), "metadata records") {
		t.Errorf("records before the corruption were not reported:\n%s", stdout.String())
	}
}

func TestKeygenThenEncryptedRecord(t *testing.T) {
	identityPath := filepath.Join(t.TempDir(), "key.txt")
	var stdout bytes.Buffer
	if err := runKeygen(&stdout, identityPath, time.Now()); err != nil {
		t.Fatalf("runKeygen: %v", err)
	}
	publicKey := strings.TrimSpace(stdout.String())
	if !strings.HasPrefix(publicKey, "age1") {
		t.Fatalf("printed %q, want an age1 public key", publicKey)
	}

	cfg := sessionConfig(t)
	cfg.Output.Recipients = []string{publicKey}
	if _, err := runRecord(context.Background(), cfg, clock.Fake(time.Now()), discardLogger()); err != nil {
		t.Fatalf("runRecord: %v", err)
	}
	summary, err := runInspect(io.Discard, cfg.Output.Path, inspectParams{identityPath: identityPath})
	if err != nil {
		t.Fatalf("runInspect: %v", err)
	}
	if summary.Frames != 11 {
		t.Errorf("frames = %d, want 11", summary.Frames)
	}
}
