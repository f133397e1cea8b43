// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wearable defines the telemetry messages that vectorlog
// flattens: whole-body state ([RobotState]), tracked targets
// ([TargetSet]) and wearable sensor readings ([SensorReading]).
//
// The three variants form a closed sum type, [Message]. Code that
// needs to branch on the variant type-switches on the concrete
// pointer type; [Kind] names the variant in configuration and on the
// command line.
//
// Types carry json and yaml struct tags. The json tags double as CBOR
// field names (see lib/codec), so a message fixture written in JSONC
// or YAML decodes to the same value as its CBOR encoding.
package wearable
