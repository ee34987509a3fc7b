package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall-clock time a new Clock starts from.
var Epoch = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

// Clock is a deterministic wall clock for tests. Each call to Now
// advances it by one second, so timestamps are distinct and ordered.
//
// Unlike time.Now, a Clock can be reset so the same scenario produces
// identical timestamps on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu    sync.Mutex
	ticks int64
}

// NewClock creates a clock whose first Now returns Epoch + 1s.
func NewClock() *Clock {
	return &Clock{}
}

// Now advances the clock and returns the new time.
// Its signature matches the now hooks of the store and server.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return Epoch.Add(time.Duration(c.ticks) * time.Second)
}

// Ticks returns how many times Now has been called.
func (c *Clock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// At returns the time the n-th call to Now returns.
func (c *Clock) At(n int64) time.Time {
	return Epoch.Add(time.Duration(n) * time.Second)
}

// Reset rewinds the clock. After Reset, Now returns Epoch + 1s again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
