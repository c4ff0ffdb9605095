package application

import (
	"time"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/ingest"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/report"
)

// ScheduleInput captures caller provided schedule fields.
type ScheduleInput struct {
	UserID string
	RoomID string
	Start  time.Time
	End    time.Time
	Notes  string
}

// ScheduleFilter narrows schedule listings. Dates are Bogotá civil dates,
// both inclusive, matched against the schedule start.
type ScheduleFilter struct {
	UserID   string
	RoomID   string
	From     *interval.Date
	To       *interval.Date
	Statuses []domain.ScheduleStatus
}

// ConflictWarning flags two listed schedules that double-book a monitor or room.
type ConflictWarning struct {
	ScheduleID    string
	ConflictsWith string
	Type          string
	UserID        string
	RoomID        string
}

// GenerateRecurringParams describes one daily recurrence request.
type GenerateRecurringParams struct {
	Template ScheduleInput
	From     interval.Date
	To       interval.Date
}

// Rejection explains why one generated instance was not created.
type Rejection struct {
	Date interval.Date
	Kind string
	Err  error
}

// GenerateRecurringResult reports the created instances and the per-date
// rejections. Created instances are kept even when later dates fail.
type GenerateRecurringResult struct {
	Created  []domain.Schedule
	Rejected []Rejection
}

// CheckInParams opens an entry. At defaults to the service clock.
type CheckInParams struct {
	UserID string
	RoomID string
	At     *time.Time
}

// CheckOutParams closes an entry. At defaults to the service clock.
type CheckOutParams struct {
	EntryID string
	At      *time.Time
}

// EntryFilter narrows entry listings by the civil date of StartedAt.
type EntryFilter struct {
	UserID   string
	RoomID   string
	From     *interval.Date
	To       *interval.Date
	OpenOnly bool
}

// ImportResult reports an entry import. Skipped holds both records the
// normalizer rejected and records the store refused.
type ImportResult struct {
	Imported []domain.RoomEntry
	Skipped  []ingest.Skip
}

// ReportParams selects the report window. Approximate skips reconciliation
// and sums raw entry durations instead.
type ReportParams struct {
	Filters     report.Filters
	Approximate bool
}

// ReconciliationSummary is the payload of reconciliation.completed events.
type ReconciliationSummary struct {
	From          string  `json:"from,omitempty"`
	To            string  `json:"to,omitempty"`
	RoomID        string  `json:"room_id,omitempty"`
	UserID        string  `json:"user_id,omitempty"`
	AssignedHours float64 `json:"assigned_hours"`
	WorkedHours   float64 `json:"worked_hours"`
	LateArrivals  int     `json:"late_arrivals"`
	Approximate   bool    `json:"approximate"`
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name     string
	Location string
	Capacity int
}

// Room is a monitored room.
type Room struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	IsAdmin     bool
}

// User is a monitor or administrator account.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
