package report

import (
	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/reconcile"
)

// Filters narrows a report to a civil date range, a room and a user.
// Nil dates and empty ids leave that dimension open.
type Filters struct {
	From   *interval.Date
	To     *interval.Date
	RoomID string
	UserID string
}

// MatchMode picks the reconciliation pairing that fits the filters.
func (f Filters) MatchMode() reconcile.MatchMode {
	return reconcile.ModeFor(f.UserID)
}

func (f Filters) includesDay(d interval.Date) bool {
	if f.From != nil && d.Before(*f.From) {
		return false
	}
	if f.To != nil && d.After(*f.To) {
		return false
	}
	return true
}

func (f Filters) includes(userID, roomID string) bool {
	if f.RoomID != "" && roomID != f.RoomID {
		return false
	}
	if f.UserID != "" && userID != f.UserID {
		return false
	}
	return true
}

// Filter keeps the schedules whose start and the entries whose arrival fall
// inside the filters, reading dates in cal. Records with a zero start are
// kept so the reconciliation engine can report them as skipped.
func Filter(cal interval.Calendar, schedules []domain.Schedule, entries []domain.RoomEntry, f Filters) ([]domain.Schedule, []domain.RoomEntry) {
	outSchedules := make([]domain.Schedule, 0, len(schedules))
	for _, sched := range schedules {
		if !f.includes(sched.UserID, sched.RoomID) {
			continue
		}
		if !sched.Start.IsZero() && !f.includesDay(cal.DateOf(sched.Start)) {
			continue
		}
		outSchedules = append(outSchedules, sched)
	}

	outEntries := make([]domain.RoomEntry, 0, len(entries))
	for _, entry := range entries {
		if !f.includes(entry.UserID, entry.RoomID) {
			continue
		}
		if !entry.StartedAt.IsZero() && !f.includesDay(cal.DateOf(entry.StartedAt)) {
			continue
		}
		outEntries = append(outEntries, entry)
	}

	return outSchedules, outEntries
}
