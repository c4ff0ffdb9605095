// Package reconcile matches planned shifts against recorded room entries.
//
// The engine computes the hours each entry overlaps each schedule and
// classifies every arrival against the nearest scheduled start. It is a pure
// function of its inputs: nothing is cached between calls.
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
)

const (
	// DefaultLateThreshold is the tolerance after a scheduled start before an arrival counts as late.
	DefaultLateThreshold = 5 * time.Minute
	// DefaultEarlyThreshold is the margin before a scheduled start after which an arrival counts as early.
	DefaultEarlyThreshold = 5 * time.Minute
	// DefaultMatchWindow is how far an arrival may be from a scheduled start and still match it.
	DefaultMatchWindow = 2 * time.Hour
)

// MatchMode selects which schedule/entry pairs are compared for overlap.
type MatchMode int

const (
	// MatchByUser pairs entries with schedules of the same user.
	MatchByUser MatchMode = iota
	// MatchByRoom pairs entries with every schedule in the same room.
	MatchByRoom
)

// ModeFor returns MatchByUser when a user filter is active and MatchByRoom otherwise.
func ModeFor(userFilter string) MatchMode {
	if userFilter != "" {
		return MatchByUser
	}
	return MatchByRoom
}

// Timeliness classifies an arrival relative to its matched schedule.
type Timeliness string

const (
	OnTime         Timeliness = "on_time"
	Late           Timeliness = "late"
	Early          Timeliness = "early"
	NoRegistration Timeliness = "no_registration"
)

// OverlapRecord is the intersection of one schedule and one closed entry.
type OverlapRecord struct {
	EntryID        string
	ScheduleID     string
	UserID         string
	RoomID         string
	Day            interval.Date
	OverlapHours   float64
	EntryPeriod    string
	SchedulePeriod string
}

// Arrival classifies one entry against the schedule it was matched to.
// ScheduleID is empty and Delta is zero for NoRegistration.
type Arrival struct {
	EntryID    string
	UserID     string
	RoomID     string
	ScheduleID string
	Status     Timeliness
	Delta      time.Duration
}

// Skip records an input that could not be reconciled.
type Skip struct {
	Kind   string
	ID     string
	Reason string
}

// Result is the outcome of one reconciliation.
type Result struct {
	Overlaps     []OverlapRecord
	Arrivals     []Arrival
	LateArrivals int
	Skipped      []Skip
}

// WorkedHours sums the overlap hours in record order.
func (r *Result) WorkedHours() float64 {
	if r == nil {
		return 0
	}
	total := 0.0
	for _, rec := range r.Overlaps {
		total += rec.OverlapHours
	}
	return total
}

// Options tunes the thresholds used by the engine.
type Options struct {
	LateThreshold  time.Duration
	EarlyThreshold time.Duration
	MatchWindow    time.Duration
}

func (o Options) withDefaults() Options {
	if o.LateThreshold <= 0 {
		o.LateThreshold = DefaultLateThreshold
	}
	if o.EarlyThreshold <= 0 {
		o.EarlyThreshold = DefaultEarlyThreshold
	}
	if o.MatchWindow <= 0 {
		o.MatchWindow = DefaultMatchWindow
	}
	return o
}

// Engine reconciles schedules against entries.
type Engine struct {
	calendar interval.Calendar
	opts     Options
	logger   *slog.Logger
}

// NewEngine constructs an Engine. Zero option fields take their defaults.
func NewEngine(cal interval.Calendar, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{calendar: cal, opts: opts.withDefaults(), logger: logger}
}

// Reconcile computes overlaps and arrival classifications. Malformed records
// are skipped individually and reported in Result.Skipped. Cancelled
// schedules are ignored: they neither collect hours nor classify arrivals.
func (e *Engine) Reconcile(ctx context.Context, schedules []domain.Schedule, entries []domain.RoomEntry, mode MatchMode) Result {
	var result Result

	validSchedules := make([]domain.Schedule, 0, len(schedules))
	for _, sched := range schedules {
		if sched.Status == domain.StatusCancelled {
			continue
		}
		if reason := malformedSchedule(sched); reason != "" {
			result.Skipped = append(result.Skipped, Skip{Kind: "schedule", ID: sched.ID, Reason: reason})
			continue
		}
		validSchedules = append(validSchedules, sched)
	}

	validEntries := make([]domain.RoomEntry, 0, len(entries))
	for _, entry := range entries {
		if reason := malformedEntry(entry); reason != "" {
			result.Skipped = append(result.Skipped, Skip{Kind: "entry", ID: entry.ID, Reason: reason})
			continue
		}
		validEntries = append(validEntries, entry)
	}

	sortSchedules(validSchedules)
	sortEntries(validEntries)

	pairKey := func(userID, roomID string) string {
		if mode == MatchByRoom {
			return roomID
		}
		return userID
	}

	overlapIndex := make(map[string][]domain.Schedule)
	userIndex := make(map[string][]domain.Schedule)
	for _, sched := range validSchedules {
		key := pairKey(sched.UserID, sched.RoomID)
		overlapIndex[key] = append(overlapIndex[key], sched)
		userIndex[sched.UserID] = append(userIndex[sched.UserID], sched)
	}

	for _, entry := range validEntries {
		if window, ok := entry.Interval(); ok {
			for _, sched := range overlapIndex[pairKey(entry.UserID, entry.RoomID)] {
				// Candidates are sorted by start, nothing after this can overlap.
				if !sched.Start.Before(window.End) {
					break
				}
				hours := window.IntersectHours(sched.Interval())
				if hours <= 0 {
					continue
				}
				result.Overlaps = append(result.Overlaps, OverlapRecord{
					EntryID:        entry.ID,
					ScheduleID:     sched.ID,
					UserID:         entry.UserID,
					RoomID:         entry.RoomID,
					Day:            e.calendar.DateOf(entry.StartedAt),
					OverlapHours:   hours,
					EntryPeriod:    e.formatPeriod(entry.StartedAt, window.End),
					SchedulePeriod: e.formatPeriod(sched.Start, sched.End),
				})
			}
		}

		arrival := e.classify(entry, userIndex[entry.UserID])
		if arrival.Status == Late {
			result.LateArrivals++
		}
		result.Arrivals = append(result.Arrivals, arrival)
	}

	if len(result.Skipped) > 0 {
		e.logger.DebugContext(ctx, "reconciliation skipped malformed records", "skipped", len(result.Skipped))
	}

	return result
}

// classify matches entry to the same-user schedule whose start is nearest
// to the arrival, within the match window.
func (e *Engine) classify(entry domain.RoomEntry, candidates []domain.Schedule) Arrival {
	arrival := Arrival{
		EntryID: entry.ID,
		UserID:  entry.UserID,
		RoomID:  entry.RoomID,
		Status:  NoRegistration,
	}

	var best *domain.Schedule
	var bestAbs time.Duration
	for i := range candidates {
		delta := entry.StartedAt.Sub(candidates[i].Start)
		abs := delta
		if abs < 0 {
			abs = -abs
		}
		if abs > e.opts.MatchWindow {
			continue
		}
		// Strict comparison keeps the earliest schedule on ties.
		if best == nil || abs < bestAbs {
			best = &candidates[i]
			bestAbs = abs
		}
	}
	if best == nil {
		return arrival
	}

	delta := entry.StartedAt.Sub(best.Start)
	arrival.ScheduleID = best.ID
	arrival.Delta = delta
	switch {
	case delta > e.opts.LateThreshold:
		arrival.Status = Late
	case -delta > e.opts.EarlyThreshold:
		arrival.Status = Early
	default:
		arrival.Status = OnTime
	}
	return arrival
}

func (e *Engine) formatPeriod(start, end time.Time) string {
	from := e.calendar.Local(start)
	to := e.calendar.Local(end)
	if e.calendar.SameDay(start, end) {
		return from.Format("2006-01-02 15:04") + " - " + to.Format("15:04")
	}
	return from.Format("2006-01-02 15:04") + " - " + to.Format("2006-01-02 15:04")
}

func malformedSchedule(s domain.Schedule) string {
	switch {
	case s.Start.IsZero() || s.End.IsZero():
		return "missing timestamp"
	case !s.End.After(s.Start):
		return "end is not after start"
	}
	return ""
}

func malformedEntry(e domain.RoomEntry) string {
	switch {
	case e.StartedAt.IsZero():
		return "missing start"
	case e.EndedAt != nil && e.EndedAt.IsZero():
		return "missing end"
	case e.EndedAt != nil && !e.EndedAt.After(e.StartedAt):
		return "end is not after start"
	}
	return ""
}

func sortSchedules(schedules []domain.Schedule) {
	sort.SliceStable(schedules, func(i, j int) bool {
		if schedules[i].Start.Equal(schedules[j].Start) {
			return schedules[i].ID < schedules[j].ID
		}
		return schedules[i].Start.Before(schedules[j].Start)
	})
}

func sortEntries(entries []domain.RoomEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].StartedAt.Equal(entries[j].StartedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].StartedAt.Before(entries[j].StartedAt)
	})
}
