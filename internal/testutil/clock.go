// Package testutil provides deterministic clocks and identifiers for tests.
package testutil

import (
	"sync"
	"time"
)

// WallClock is a thread-safe deterministic wall clock for tests.
//
// Every call to Now advances the clock by a fixed step, so a sequence of
// timestamped actions gets strictly increasing, reproducible timestamps.
// The same scenario run twice produces byte-identical action traces.
type WallClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	ticks int64
}

// NewWallClock creates a clock starting at epoch that advances by step on
// every Now call. A zero step defaults to one millisecond.
func NewWallClock(epoch time.Time, step time.Duration) *WallClock {
	if step <= 0 {
		step = time.Millisecond
	}
	return &WallClock{epoch: epoch, step: step}
}

// Now returns the next tick of the clock.
func (c *WallClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.epoch.Add(time.Duration(c.ticks) * c.step)
}

// Peek returns the time the most recent Now call produced, without advancing.
func (c *WallClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch.Add(time.Duration(c.ticks) * c.step)
}

// Reset rewinds the clock to its epoch so a scenario can run again with
// identical timestamps.
func (c *WallClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
