package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source shared by engine and handler tests.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock set to start, or to ReferenceTime when start is
// zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the clock time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for injection. A nil clock falls back to time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// AdvanceMinutes is Advance in whole minutes, the unit wait times are scored
// in.
func (c *Clock) AdvanceMinutes(n int) time.Time {
	return c.Advance(time.Duration(n) * time.Minute)
}

// Ago returns the instant d before the clock time. Fixtures use it for
// last game timestamps.
func (c *Clock) Ago(d time.Duration) time.Time {
	return c.Now().Add(-d)
}
