// Package interval models time ranges and their projection onto a civil
// calendar bound to a single IANA zone.
package interval

import "time"

// Interval is a time range between two instants. Overlap math treats it as
// half-open: [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// New constructs an Interval from two instants.
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Valid reports whether both bounds are set and Start is strictly before End.
func (i Interval) Valid() bool {
	if i.Start.IsZero() || i.End.IsZero() {
		return false
	}
	return i.Start.Before(i.End)
}

// Duration returns End - Start. Inverted intervals yield a negative duration.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// DurationHours returns the interval length in fractional hours.
func (i Interval) DurationHours() float64 {
	return i.Duration().Hours()
}

// Overlaps reports whether the two intervals share any instant.
// Touching intervals (one ends exactly when the other starts) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Intersect returns the common part of both intervals and whether it is non-empty.
func (i Interval) Intersect(other Interval) (Interval, bool) {
	start := i.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := i.End
	if other.End.Before(end) {
		end = other.End
	}
	if !start.Before(end) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// IntersectHours computes max(0, min(aEnd, bEnd) - max(aStart, bStart)) in hours.
func (i Interval) IntersectHours(other Interval) float64 {
	common, ok := i.Intersect(other)
	if !ok {
		return 0
	}
	return common.DurationHours()
}

// Contains reports whether t lies within [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}
