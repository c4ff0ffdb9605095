// Package scheduler guards the schedule write path against invalid windows
// and double-booking of monitors and rooms.
package scheduler

import (
	"fmt"
	"time"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
)

// DefaultMaxDuration is the longest shift accepted at creation time.
const DefaultMaxDuration = 12 * time.Hour

// ErrorKind identifies which validation rule rejected a candidate.
type ErrorKind string

const (
	KindInvalidRange     ErrorKind = "invalid_range"
	KindDurationExceeded ErrorKind = "duration_exceeded"
	KindPastDate         ErrorKind = "past_date"
	KindUserConflict     ErrorKind = "user_conflict"
	KindRoomConflict     ErrorKind = "room_conflict"
)

// ConflictError is returned when a candidate schedule breaks a write rule.
// Conflicting is set for user and room conflicts.
type ConflictError struct {
	Kind        ErrorKind
	Candidate   domain.Schedule
	Conflicting *domain.Schedule
	MaxDuration time.Duration
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindInvalidRange:
		return "scheduler: end must be after start"
	case KindDurationExceeded:
		return fmt.Sprintf("scheduler: shift exceeds %s", e.MaxDuration)
	case KindPastDate:
		return "scheduler: start is in the past"
	case KindUserConflict, KindRoomConflict:
		if e.Conflicting == nil {
			return fmt.Sprintf("scheduler: %s", e.Kind)
		}
		return fmt.Sprintf("scheduler: %s with schedule %s (%s - %s)", e.Kind, e.Conflicting.ID,
			e.Conflicting.Start.Format(time.RFC3339), e.Conflicting.End.Format(time.RFC3339))
	default:
		return "scheduler: schedule rejected"
	}
}

// IsConflict reports whether the error is a double-booking rejection.
func (e *ConflictError) IsConflict() bool {
	return e != nil && (e.Kind == KindUserConflict || e.Kind == KindRoomConflict)
}

// UpdatePolicy selects which creation-only rules also apply to updates.
// Range and double-booking checks always run.
type UpdatePolicy struct {
	EnforceMaxDuration bool
	EnforceNotPast     bool
}

// Validator checks candidate schedules against the write rules.
type Validator struct {
	clock       interval.Clock
	calendar    interval.Calendar
	maxDuration time.Duration
}

// Option customizes a Validator.
type Option func(*Validator)

// WithClock overrides the time source used by the past-date rule.
func WithClock(clock interval.Clock) Option {
	return func(v *Validator) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// WithCalendar overrides the civil calendar used for local comparisons.
func WithCalendar(cal interval.Calendar) Option {
	return func(v *Validator) {
		v.calendar = cal
	}
}

// WithMaxDuration overrides the maximum shift length.
func WithMaxDuration(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.maxDuration = d
		}
	}
}

// NewValidator constructs a Validator. Without options it evaluates rules
// against the system clock in Bogotá with a 12 hour ceiling.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		clock:       interval.SystemClock{},
		calendar:    interval.Bogota(),
		maxDuration: DefaultMaxDuration,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// MaxDuration returns the configured shift ceiling.
func (v *Validator) MaxDuration() time.Duration {
	return v.maxDuration
}

// Validate runs every creation rule in order and returns the first failure
// as a *ConflictError, or nil when the candidate is accepted.
func (v *Validator) Validate(candidate domain.Schedule, existing []domain.Schedule) error {
	return v.validate(candidate, existing, true, true)
}

// ValidateUpdate checks an edited schedule. The schedule's own ID is
// excluded from the double-booking checks.
func (v *Validator) ValidateUpdate(candidate domain.Schedule, existing []domain.Schedule, policy UpdatePolicy) error {
	return v.validate(candidate, existing, policy.EnforceMaxDuration, policy.EnforceNotPast)
}

func (v *Validator) validate(candidate domain.Schedule, existing []domain.Schedule, checkDuration, checkPast bool) error {
	if !candidate.Interval().Valid() {
		return &ConflictError{Kind: KindInvalidRange, Candidate: candidate}
	}

	if checkDuration && candidate.End.Sub(candidate.Start) > v.maxDuration {
		return &ConflictError{Kind: KindDurationExceeded, Candidate: candidate, MaxDuration: v.maxDuration}
	}

	if checkPast {
		now := v.calendar.Local(v.clock.Now())
		if v.calendar.Local(candidate.Start).Before(now) {
			return &ConflictError{Kind: KindPastDate, Candidate: candidate}
		}
	}

	for _, conflict := range DetectConflicts(existing, candidate) {
		with := conflict.With
		kind := KindRoomConflict
		if conflict.Type == ConflictTypeUser {
			kind = KindUserConflict
		}
		return &ConflictError{Kind: kind, Candidate: candidate, Conflicting: &with}
	}

	return nil
}
