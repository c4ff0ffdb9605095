// Package domain holds the canonical schedule and attendance records shared by
// the validation, expansion, reconciliation and reporting packages.
package domain

import (
	"time"

	"github.com/example/monitor-scheduler/internal/interval"
)

// ScheduleStatus describes the lifecycle state of a schedule.
type ScheduleStatus string

const (
	// StatusActive marks a schedule that still blocks its user and room.
	StatusActive ScheduleStatus = "active"
	// StatusCompleted marks a schedule whose shift has been worked.
	StatusCompleted ScheduleStatus = "completed"
	// StatusCancelled marks a schedule that no longer applies.
	StatusCancelled ScheduleStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Schedule assigns one monitor to one room for one time window.
type Schedule struct {
	ID        string
	UserID    string
	RoomID    string
	Start     time.Time
	End       time.Time
	Status    ScheduleStatus
	Recurring bool
	Notes     string

	// UserName and RoomName are display labels resolved at ingestion time.
	// They never take part in matching.
	UserName string
	RoomName string
}

// Interval returns the schedule's time window.
func (s Schedule) Interval() interval.Interval {
	return interval.New(s.Start, s.End)
}

// IsActive reports whether the schedule blocks its user and room.
// An empty status is treated as active.
func (s Schedule) IsActive() bool {
	return s.Status == StatusActive || s.Status == ""
}

// RoomEntry records a monitor physically present in a room. A nil EndedAt
// means the monitor has not checked out yet.
type RoomEntry struct {
	ID        string
	UserID    string
	RoomID    string
	StartedAt time.Time
	EndedAt   *time.Time

	UserName string
	RoomName string
}

// IsOpen reports whether the entry has not been closed.
func (e RoomEntry) IsOpen() bool {
	return e.EndedAt == nil
}

// Interval returns the closed entry's window. ok is false for open entries.
func (e RoomEntry) Interval() (iv interval.Interval, ok bool) {
	if e.EndedAt == nil {
		return interval.Interval{}, false
	}
	return interval.New(e.StartedAt, *e.EndedAt), true
}

// CloneSchedules returns a copy of the slice.
func CloneSchedules(in []Schedule) []Schedule {
	if in == nil {
		return nil
	}
	out := make([]Schedule, len(in))
	copy(out, in)
	return out
}

// CloneEntry returns a deep copy of the entry.
func CloneEntry(e RoomEntry) RoomEntry {
	if e.EndedAt != nil {
		ended := *e.EndedAt
		e.EndedAt = &ended
	}
	return e
}
