package interval

import (
	"fmt"
	"time"
)

// BogotaZone is the IANA identifier business rules are evaluated in.
const BogotaZone = "America/Bogota"

// Colombia has not observed daylight saving time since 1993, so a fixed
// offset is an exact substitute when the tz database is unavailable.
var cot = time.FixedZone("COT", -5*60*60)

// Date is a calendar date without a time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses an ISO 8601 calendar date (2006-01-02).
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return Date{}, fmt.Errorf("interval: invalid date %q: %w", value, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf returns the date of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats the date as 2006-01-02.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// At returns the instant at the given wall clock time on d in loc.
// Out-of-range components are normalized the way time.Date does.
func (d Date) At(loc *time.Location, hour, minute, second, nsec int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, second, nsec, loc)
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of the week d falls on.
func (d Date) Weekday() time.Weekday {
	return d.midnightUTC().Weekday()
}

// AddDays returns the date n days after d (before, when n is negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnightUTC().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.midnightUTC().Before(other.midnightUTC())
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.midnightUTC().After(other.midnightUTC())
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.midnightUTC().Sub(d.midnightUTC()).Hours() / 24)
}

// Calendar projects instants onto civil dates of a single zone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a Calendar bound to loc. A nil loc selects Bogotá.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = BogotaLocation()
	}
	return Calendar{loc: loc}
}

// LoadCalendar resolves an IANA zone name. Bogotá falls back to its fixed
// offset when the tz database is missing from the host.
func LoadCalendar(name string) (Calendar, error) {
	if name == "" || name == BogotaZone {
		return NewCalendar(BogotaLocation()), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("interval: unknown time zone %q: %w", name, err)
	}
	return NewCalendar(loc), nil
}

// Bogota returns the calendar every business rule is evaluated in.
func Bogota() Calendar {
	return NewCalendar(BogotaLocation())
}

// BogotaLocation returns America/Bogota, or its fixed-offset equivalent.
func BogotaLocation() *time.Location {
	if loc, err := time.LoadLocation(BogotaZone); err == nil {
		return loc
	}
	return cot
}

// Location exposes the zone the calendar is bound to.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return cot
	}
	return c.loc
}

// Local converts t to the calendar's zone.
func (c Calendar) Local(t time.Time) time.Time {
	return t.In(c.Location())
}

// DateOf returns the civil date t falls on in the calendar's zone.
func (c Calendar) DateOf(t time.Time) Date {
	return DateOf(c.Local(t))
}

// StartOfDay returns local midnight of d.
func (c Calendar) StartOfDay(d Date) time.Time {
	return d.At(c.Location(), 0, 0, 0, 0)
}

// EndOfDay returns local midnight of the day after d, the exclusive upper bound of d.
func (c Calendar) EndOfDay(d Date) time.Time {
	return c.StartOfDay(d.AddDays(1))
}

// SameDay reports whether a and b fall on the same civil date.
func (c Calendar) SameDay(a, b time.Time) bool {
	return c.DateOf(a) == c.DateOf(b)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the host wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}
