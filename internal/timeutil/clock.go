// Package timeutil provides a testable abstraction over time operations.
package timeutil

import (
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

// Since returns the duration since t.
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

// Set sets the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock forward by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Stage is one timed step of a run.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Stopwatch records the duration of consecutive named stages.
type Stopwatch struct {
	clock  Clock
	stages []Stage
}

// NewStopwatch returns a Stopwatch reading the given clock.
func NewStopwatch(clock Clock) *Stopwatch {
	if clock == nil {
		clock = RealClock{}
	}
	return &Stopwatch{clock: clock}
}

// Time runs fn and records its duration under name, even when fn fails.
func (s *Stopwatch) Time(name string, fn func() error) (time.Duration, error) {
	start := s.clock.Now()
	err := fn()
	d := s.clock.Since(start)
	s.stages = append(s.stages, Stage{Name: name, Duration: d})
	return d, err
}

// Stages returns the recorded stages in order.
func (s *Stopwatch) Stages() []Stage {
	return append([]Stage(nil), s.stages...)
}

// Total returns the sum of all recorded stages.
func (s *Stopwatch) Total() time.Duration {
	var total time.Duration
	for _, st := range s.stages {
		total += st.Duration
	}
	return total
}
