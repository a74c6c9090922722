// Package timeutil provides a testable abstraction over time operations.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the mock clock forward by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FormatElapsed renders a duration as a human-readable processing-time string,
// e.g. "1h 12m 3.50s". Hours and minutes are always present so values sort
// visually in logs and report tables.
func FormatElapsed(d time.Duration) string {
	secs := d.Seconds()
	hours := int(secs / 3600)
	secs -= float64(hours) * 3600
	minutes := int(secs / 60)
	secs -= float64(minutes) * 60
	return fmt.Sprintf("%dh %dm %.2fs", hours, minutes, secs)
}
