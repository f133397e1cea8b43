// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireEventually] wrap the timeout safety
// valve around waits on goroutines under test, so that individual
// tests never hang and never call time.After themselves. They are the
// only place where tests use the wall clock; everything else runs on
// a fake clock.
//
// Helpers call t.Fatalf on failure rather than returning errors.
package testutil
