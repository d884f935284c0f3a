// Package clock abstracts time retrieval so age-derived rules are deterministic in tests.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time. The location of the returned value is the
// location used for calendar-date comparisons.
type Clock interface {
	Now() time.Time
}

// Real returns the wall clock in the process-local zone.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Stub returns a settable time. Safe for concurrent use.
type Stub struct {
	mu  sync.Mutex
	now time.Time
}

// NewStub creates a Stub set to t.
func NewStub(t time.Time) *Stub {
	return &Stub{now: t}
}

// Fixed returns a Stub set to 2025-03-12 10:30:00 UTC, a Wednesday.
func Fixed() *Stub {
	return NewStub(time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC))
}

func (c *Stub) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Stub) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Stub) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
