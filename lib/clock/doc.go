// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the recorder's
// flush loop and for frame timestamps.
//
// Production code holds a Clock and never calls time.Now, time.After
// or time.NewTicker directly. Real() is the standard library; Fake()
// is a deterministic clock that moves only when Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go recorder.Run(ctx)
//	c.WaitForTimers(1)         // the flush loop has armed its ticker
//	c.Advance(time.Second)     // fire it
package clock
