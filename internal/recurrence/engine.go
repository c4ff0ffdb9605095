// Package recurrence expands a template shift into one schedule per matching
// weekday across a date range.
package recurrence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
)

// DefaultMaxRangeDays bounds the inclusive width of an expansion window.
const DefaultMaxRangeDays = 366

// OvernightPolicy decides what happens to shifts whose end time of day is
// earlier than their start time of day.
type OvernightPolicy int

const (
	// OvernightReject refuses to expand a shift that crosses midnight.
	OvernightReject OvernightPolicy = iota
	// OvernightRollover places each generated end on the following date.
	OvernightRollover
)

// ParseOvernightPolicy maps configuration values to a policy.
func ParseOvernightPolicy(value string) (OvernightPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "reject":
		return OvernightReject, nil
	case "rollover", "roll":
		return OvernightRollover, nil
	default:
		return OvernightReject, fmt.Errorf("recurrence: unknown overnight policy %q", value)
	}
}

// String returns the configuration spelling of the policy.
func (p OvernightPolicy) String() string {
	if p == OvernightRollover {
		return "rollover"
	}
	return "reject"
}

var (
	// ErrInvalidWindow indicates the range end precedes the range start.
	ErrInvalidWindow = errors.New("recurrence: range end is before range start")
	// ErrWindowTooLarge indicates the range exceeds the configured width.
	ErrWindowTooLarge = errors.New("recurrence: range is too large")
	// ErrInvalidDuration indicates the template shift has no length.
	ErrInvalidDuration = errors.New("recurrence: schedule duration must be positive")
	// ErrOvernightShift indicates the template crosses midnight and the policy rejects it.
	ErrOvernightShift = errors.New("recurrence: shift crosses midnight")
)

// Engine expands template schedules into dated instances.
type Engine struct {
	calendar     interval.Calendar
	overnight    OvernightPolicy
	maxRangeDays int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithOvernightPolicy selects how midnight-crossing templates are handled.
func WithOvernightPolicy(p OvernightPolicy) Option {
	return func(e *Engine) { e.overnight = p }
}

// WithMaxRangeDays overrides the maximum expansion window.
func WithMaxRangeDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.maxRangeDays = days
		}
	}
}

// NewEngine constructs an Engine that reads weekdays and times of day in cal.
func NewEngine(cal interval.Calendar, opts ...Option) *Engine {
	e := &Engine{
		calendar:     cal,
		overnight:    OvernightReject,
		maxRangeDays: DefaultMaxRangeDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type clockTime struct {
	hour, minute, second, nsec int
}

func (c clockTime) before(other clockTime) bool {
	if c.hour != other.hour {
		return c.hour < other.hour
	}
	if c.minute != other.minute {
		return c.minute < other.minute
	}
	if c.second != other.second {
		return c.second < other.second
	}
	return c.nsec < other.nsec
}

// Expand returns one candidate per date in [rangeStart, rangeEnd] that falls on
// the base schedule's local weekday, keeping the base start and end times of
// day. Candidates carry no ID and are neither deduplicated nor validated.
func (e *Engine) Expand(base domain.Schedule, rangeStart, rangeEnd interval.Date) ([]domain.Schedule, error) {
	if rangeEnd.Before(rangeStart) {
		return nil, ErrInvalidWindow
	}
	if rangeStart.DaysUntil(rangeEnd)+1 > e.maxRangeDays {
		return nil, ErrWindowTooLarge
	}

	if base.Start.IsZero() || base.End.IsZero() {
		return nil, ErrInvalidDuration
	}

	loc := e.calendar.Location()
	localStart := base.Start.In(loc)
	localEnd := base.End.In(loc)

	from := clockTime{localStart.Hour(), localStart.Minute(), localStart.Second(), localStart.Nanosecond()}
	to := clockTime{localEnd.Hour(), localEnd.Minute(), localEnd.Second(), localEnd.Nanosecond()}

	endOffset := 0
	switch {
	case to == from:
		return nil, ErrInvalidDuration
	case to.before(from):
		if e.overnight != OvernightRollover {
			return nil, ErrOvernightShift
		}
		endOffset = 1
	}

	weekday := localStart.Weekday()
	first := rangeStart.AddDays((int(weekday) - int(rangeStart.Weekday()) + 7) % 7)

	var out []domain.Schedule
	for day := first; !day.After(rangeEnd); day = day.AddDays(7) {
		endDay := day.AddDays(endOffset)
		out = append(out, domain.Schedule{
			UserID:    base.UserID,
			RoomID:    base.RoomID,
			Start:     day.At(loc, from.hour, from.minute, from.second, from.nsec),
			End:       endDay.At(loc, to.hour, to.minute, to.second, to.nsec),
			Status:    domain.StatusActive,
			Recurring: true,
			Notes:     base.Notes,
			UserName:  base.UserName,
			RoomName:  base.RoomName,
		})
	}

	return out, nil
}
