// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Vectorlog converts structured robot and wearable telemetry into
// flat, labelled vector collections and records them to vector logs.
//
// Usage:
//
//	vectorlog convert --kind robot-state --prefix robot state.json
//	vectorlog record --config session.yaml
//	vectorlog inspect session.vlog
//	vectorlog version
//
// Set VECTORLOG_DEBUG to any value for debug logging.
package main
