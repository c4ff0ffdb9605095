// Package report rolls reconciled attendance up into the figures shown on
// the monitoring dashboard: assigned, worked and remaining hours, compliance,
// and the per-day, per-room, per-user and per-schedule series.
//
// Aggregate is a pure function. Nothing is cached between calls, so reports
// for different filter windows can never observe each other's results.
package report

import (
	"sort"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/reconcile"
)

// Input carries the already-filtered records of one report window.
type Input struct {
	// Reconciliation is the engine output for Schedules and Entries. When nil
	// the report falls back to raw entry durations and is marked Approximate.
	Reconciliation *reconcile.Result
	Schedules      []domain.Schedule
	Entries        []domain.RoomEntry
	// RoomNames resolves room ids to display names. Missing ids fall back to
	// the denormalized name on the record, then to the id itself.
	RoomNames map[string]string
	Filters   Filters
	Calendar  interval.Calendar
}

// DayCount is a count bucketed by civil date.
type DayCount struct {
	Day   interval.Date
	Count int
}

// DayHours is an hour total bucketed by civil date.
type DayHours struct {
	Day   interval.Date
	Hours float64
}

// RoomBucket is one slice of the per-room distribution.
type RoomBucket struct {
	RoomID      string
	RoomName    string
	Hours       float64
	Percentage  float64
	Entries     int
	OpenEntries int
}

// Summary backs the cards at the top of the dashboard.
type Summary struct {
	Schedules     int
	Entries       int
	OpenEntries   int
	ClosedEntries int
	Rooms         int
	Users         int
	SkippedRecord int
}

// Report is the rollup of one filter window.
type Report struct {
	Filters Filters

	LateArrivals         int
	AssignedHours        float64
	WorkedHours          float64
	RemainingHours       float64
	CompliancePercentage float64

	// Approximate is true when WorkedHours and the hour series come from raw
	// entry durations rather than schedule overlap. Entries worked outside
	// any schedule then count as worked.
	Approximate bool

	ComplianceHoursByUser     map[string]float64
	ComplianceHoursBySchedule map[string]float64

	EntriesPerDay []DayCount
	ExitsPerDay   []DayCount
	HoursPerDay   []DayHours
	HoursPerRoom  []RoomBucket

	Summary Summary
}

// RemainingHours is max(0, assigned - worked).
func RemainingHours(assigned, worked float64) float64 {
	if remaining := assigned - worked; remaining > 0 {
		return remaining
	}
	return 0
}

// CompliancePercentage is worked/assigned*100, or 0 without assigned hours.
func CompliancePercentage(assigned, worked float64) float64 {
	if assigned <= 0 {
		return 0
	}
	return worked / assigned * 100
}

type roomTally struct {
	hours   float64
	entries int
	open    int
	name    string
}

// Aggregate computes the report for in. Sums run in input order so identical
// inputs always produce identical floats.
func Aggregate(in Input) Report {
	cal := in.Calendar
	rep := Report{
		Filters:                   in.Filters,
		ComplianceHoursByUser:     make(map[string]float64),
		ComplianceHoursBySchedule: make(map[string]float64),
		EntriesPerDay:             []DayCount{},
		ExitsPerDay:               []DayCount{},
		HoursPerDay:               []DayHours{},
		HoursPerRoom:              []RoomBucket{},
	}

	users := make(map[string]struct{})
	for _, sched := range in.Schedules {
		rep.Summary.Schedules++
		users[sched.UserID] = struct{}{}
		if sched.Status == domain.StatusCancelled {
			continue
		}
		if iv := sched.Interval(); iv.Valid() {
			rep.AssignedHours += iv.DurationHours()
		}
	}

	entriesPerDay := make(map[interval.Date]int)
	exitsPerDay := make(map[interval.Date]int)
	hoursPerDay := make(map[interval.Date]float64)
	rooms := make(map[string]*roomTally)
	var roomOrder []string

	tally := func(roomID, fallbackName string) *roomTally {
		t, ok := rooms[roomID]
		if !ok {
			t = &roomTally{name: resolveRoomName(in.RoomNames, roomID, fallbackName)}
			rooms[roomID] = t
			roomOrder = append(roomOrder, roomID)
		}
		return t
	}

	for _, entry := range in.Entries {
		if entry.StartedAt.IsZero() {
			continue
		}
		rep.Summary.Entries++
		users[entry.UserID] = struct{}{}
		day := cal.DateOf(entry.StartedAt)
		entriesPerDay[day]++

		t := tally(entry.RoomID, entry.RoomName)
		t.entries++
		if entry.IsOpen() {
			rep.Summary.OpenEntries++
			t.open++
			continue
		}
		rep.Summary.ClosedEntries++
		exitsPerDay[day]++
	}

	if in.Reconciliation != nil {
		res := in.Reconciliation
		rep.LateArrivals = res.LateArrivals
		rep.Summary.SkippedRecord = len(res.Skipped)
		names := entryRoomNames(in.Entries)
		for _, rec := range res.Overlaps {
			rep.WorkedHours += rec.OverlapHours
			rep.ComplianceHoursByUser[rec.UserID] += rec.OverlapHours
			rep.ComplianceHoursBySchedule[rec.ScheduleID] += rec.OverlapHours
			hoursPerDay[rec.Day] += rec.OverlapHours
			tally(rec.RoomID, names[rec.RoomID]).hours += rec.OverlapHours
		}
	} else {
		rep.Approximate = true
		for _, entry := range in.Entries {
			iv, ok := entry.Interval()
			if !ok || !iv.Valid() {
				continue
			}
			hours := iv.DurationHours()
			rep.WorkedHours += hours
			rep.ComplianceHoursByUser[entry.UserID] += hours
			hoursPerDay[cal.DateOf(entry.StartedAt)] += hours
			tally(entry.RoomID, entry.RoomName).hours += hours
		}
	}

	rep.RemainingHours = RemainingHours(rep.AssignedHours, rep.WorkedHours)
	rep.CompliancePercentage = CompliancePercentage(rep.AssignedHours, rep.WorkedHours)

	rep.EntriesPerDay = dayCounts(entriesPerDay)
	rep.ExitsPerDay = dayCounts(exitsPerDay)
	rep.HoursPerDay = dayHours(hoursPerDay)
	rep.HoursPerRoom = roomBuckets(in, rooms, roomOrder)
	rep.Summary.Rooms = len(rooms)
	rep.Summary.Users = len(users)

	return rep
}

func roomBuckets(in Input, rooms map[string]*roomTally, order []string) []RoomBucket {
	if in.Filters.RoomID != "" {
		id := in.Filters.RoomID
		bucket := RoomBucket{RoomID: id, RoomName: resolveRoomName(in.RoomNames, id, ""), Percentage: 100}
		if t, ok := rooms[id]; ok {
			bucket.RoomName = t.name
			bucket.Hours = t.hours
			bucket.Entries = t.entries
			bucket.OpenEntries = t.open
		}
		return []RoomBucket{bucket}
	}

	total := 0.0
	for _, id := range order {
		total += rooms[id].hours
	}

	buckets := make([]RoomBucket, 0, len(order))
	for _, id := range order {
		t := rooms[id]
		bucket := RoomBucket{
			RoomID:      id,
			RoomName:    t.name,
			Hours:       t.hours,
			Entries:     t.entries,
			OpenEntries: t.open,
		}
		if total > 0 {
			bucket.Percentage = t.hours / total * 100
		}
		buckets = append(buckets, bucket)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Hours != buckets[j].Hours {
			return buckets[i].Hours > buckets[j].Hours
		}
		if buckets[i].RoomName != buckets[j].RoomName {
			return buckets[i].RoomName < buckets[j].RoomName
		}
		return buckets[i].RoomID < buckets[j].RoomID
	})
	return buckets
}

func resolveRoomName(names map[string]string, id, fallback string) string {
	if name := names[id]; name != "" {
		return name
	}
	if fallback != "" {
		return fallback
	}
	return id
}

func entryRoomNames(entries []domain.RoomEntry) map[string]string {
	names := make(map[string]string)
	for _, entry := range entries {
		if entry.RoomName != "" {
			if _, ok := names[entry.RoomID]; !ok {
				names[entry.RoomID] = entry.RoomName
			}
		}
	}
	return names
}

func dayCounts(buckets map[interval.Date]int) []DayCount {
	out := make([]DayCount, 0, len(buckets))
	for day, count := range buckets {
		out = append(out, DayCount{Day: day, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

func dayHours(buckets map[interval.Date]float64) []DayHours {
	out := make([]DayHours, 0, len(buckets))
	for day, hours := range buckets {
		out = append(out, DayHours{Day: day, Hours: hours})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}
