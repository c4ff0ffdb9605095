package testfixtures

import (
	"sync"
	"time"

	"github.com/example/monitor-scheduler/internal/interval"
)

// Clock is a settable interval.Clock. Civil-date helpers read it in the
// fixture calendar (Bogotá), the same zone the validator and reports use.
type Clock struct {
	mu       sync.Mutex
	current  time.Time
	calendar interval.Calendar
}

var _ interval.Clock = (*Clock)(nil)

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start, calendar: Calendar()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc adapts the clock to the func() time.Time the services take.
// A nil clock falls back to the wall clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// SetLocal moves the clock to hour:minute on a January 2024 day in Bogotá,
// matching Local.
func (c *Clock) SetLocal(day, hour, minute int) time.Time {
	t := Local(day, hour, minute)
	c.Set(t)
	return t
}

// Advance moves the clock forward, e.g. from check-in to check-out.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Today is the Bogotá civil date the clock currently reads.
func (c *Clock) Today() interval.Date {
	return c.calendar.DateOf(c.Now())
}
