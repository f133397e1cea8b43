// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock only moves when Advance is called. Tests drive the
// recorder's flush ticker and retry backoff with it. Safe for
// concurrent use.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	// armed is broadcast whenever timers changes.
	armed *sync.Cond
}

// fakeTimer backs both After and NewTicker. period is zero for a
// one-shot timer.
type fakeTimer struct {
	due     time.Time
	period  time.Duration
	fire    chan time.Time
	stopped bool
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.armed = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- c.now
		return fire
	}
	c.addLocked(&fakeTimer{due: c.now.Add(d), fire: fire})
	return fire
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker interval must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{due: c.now.Add(d), period: d, fire: make(chan time.Time, 1)}
	c.addLocked(timer)
	return &Ticker{C: timer.fire, stopFunc: func() { c.stop(timer) }}
}

func (c *FakeClock) addLocked(timer *fakeTimer) {
	c.timers = append(c.timers, timer)
	c.armed.Broadcast()
}

func (c *FakeClock) stop(timer *fakeTimer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer.stopped = true
	c.timers = slices.DeleteFunc(c.timers, func(t *fakeTimer) bool { return t == timer })
	c.armed.Broadcast()
}

// Advance moves the clock by d. Every timer due by the new time fires
// once, earliest first; a ticker that missed several periods fires
// once and is rescheduled past the new time. A full channel drops the
// tick, as time.Ticker does.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	type firing struct {
		due  time.Time
		fire chan time.Time
	}
	var due []firing
	pending := c.timers[:0]
	for _, timer := range c.timers {
		if timer.stopped {
			continue
		}
		if timer.due.After(now) {
			pending = append(pending, timer)
			continue
		}
		due = append(due, firing{timer.due, timer.fire})
		if timer.period > 0 {
			for !timer.due.After(now) {
				timer.due = timer.due.Add(timer.period)
			}
			pending = append(pending, timer)
		}
	}
	clear(c.timers[len(pending):])
	c.timers = pending
	c.armed.Broadcast()
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b firing) int { return a.due.Compare(b.due) })
	for _, f := range due {
		select {
		case f.fire <- now:
		default:
		}
	}
}

// WaitForTimers blocks until n or more timers are armed. Call it
// before Advance so the goroutine under test has reached its select.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.timers) < n {
		c.armed.Wait()
	}
}
