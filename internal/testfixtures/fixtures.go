package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/persistence"
)

var (
	userCounter     uint64
	roomCounter     uint64
	scheduleCounter uint64
	entryCounter    uint64
)

// referenceTime is Monday 2024-01-08 08:00 in Bogotá.
var referenceTime = time.Date(2024, time.January, 8, 13, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Calendar returns the civil calendar fixtures are expressed in.
func Calendar() interval.Calendar {
	return interval.Bogota()
}

// Local returns hour:minute on the given January 2024 day in Bogotá.
func Local(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, interval.BogotaLocation())
}

// Day returns the January 2024 civil date.
func Day(day int) interval.Date {
	return interval.Date{Year: 2024, Month: time.January, Day: day}
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic monitor account that can be
// materialised for application or persistence tests.
type UserFixture struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("monitor-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.com", id),
		DisplayName: fmt.Sprintf("Monitor %03d", idx),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

// WithUserDisplayName overrides the generated display name.
func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) { f.DisplayName = name }
}

// WithUserAdmin marks the user as an administrator.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) { f.IsAdmin = isAdmin }
}

// WithUserTimestamps sets both timestamps.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application converts the fixture into an application.User.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence converts the fixture into a persistence.User.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input converts the fixture into an application.UserInput.
func (f UserFixture) Input() application.UserInput {
	return application.UserInput{Email: f.Email, DisplayName: f.DisplayName, IsAdmin: f.IsAdmin}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic monitored room.
type RoomFixture struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Sala %03d", idx),
		Location:  "Bloque B",
		Capacity:  25,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) { f.ID = id }
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) { f.Name = name }
}

// WithRoomCapacity overrides the room capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) { f.Capacity = capacity }
}

// Application converts the fixture into an application.Room.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence converts the fixture into a persistence.Room.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input converts the fixture into an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{Name: f.Name, Location: f.Location, Capacity: f.Capacity}
}

// --------------------------- Schedule fixtures ---------------------------

// ScheduleFixture represents a deterministic shift. The default is a two
// hour morning shift on the reference Monday.
type ScheduleFixture struct {
	ID        string
	UserID    string
	RoomID    string
	Start     time.Time
	End       time.Time
	Status    domain.ScheduleStatus
	Recurring bool
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScheduleOption configures the generated schedule fixture.
type ScheduleOption func(*ScheduleFixture)

// NewScheduleFixture returns a deterministic schedule fixture with optional overrides.
func NewScheduleFixture(opts ...ScheduleOption) ScheduleFixture {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	fixture := ScheduleFixture{
		ID:        fmt.Sprintf("schedule-%03d", idx),
		UserID:    "monitor-001",
		RoomID:    "room-001",
		Start:     referenceTime,
		End:       referenceTime.Add(2 * time.Hour),
		Status:    domain.StatusActive,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithScheduleID overrides the generated schedule ID.
func WithScheduleID(id string) ScheduleOption {
	return func(f *ScheduleFixture) { f.ID = id }
}

// WithScheduleUser assigns the shift to a monitor.
func WithScheduleUser(id string) ScheduleOption {
	return func(f *ScheduleFixture) { f.UserID = id }
}

// WithScheduleRoom assigns the shift to a room.
func WithScheduleRoom(id string) ScheduleOption {
	return func(f *ScheduleFixture) { f.RoomID = id }
}

// WithScheduleStartEnd overrides the shift window.
func WithScheduleStartEnd(start, end time.Time) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.Start = start
		f.End = end
	}
}

// WithScheduleStatus overrides the lifecycle status.
func WithScheduleStatus(status domain.ScheduleStatus) ScheduleOption {
	return func(f *ScheduleFixture) { f.Status = status }
}

// WithScheduleNotes sets the free-text notes.
func WithScheduleNotes(notes string) ScheduleOption {
	return func(f *ScheduleFixture) { f.Notes = notes }
}

// WithScheduleRecurring marks the schedule as generated from a template.
func WithScheduleRecurring() ScheduleOption {
	return func(f *ScheduleFixture) { f.Recurring = true }
}

// Domain converts the fixture into a domain.Schedule.
func (f ScheduleFixture) Domain() domain.Schedule {
	return domain.Schedule{
		ID:        f.ID,
		UserID:    f.UserID,
		RoomID:    f.RoomID,
		Start:     f.Start,
		End:       f.End,
		Status:    f.Status,
		Recurring: f.Recurring,
		Notes:     f.Notes,
	}
}

// Input converts the fixture into an application.ScheduleInput.
func (f ScheduleFixture) Input() application.ScheduleInput {
	return application.ScheduleInput{
		UserID: f.UserID,
		RoomID: f.RoomID,
		Start:  f.Start,
		End:    f.End,
		Notes:  f.Notes,
	}
}

// Persistence converts the fixture into a persistence.Schedule.
func (f ScheduleFixture) Persistence() persistence.Schedule {
	var notes *string
	if f.Notes != "" {
		n := f.Notes
		notes = &n
	}
	return persistence.Schedule{
		ID:        f.ID,
		UserID:    f.UserID,
		RoomID:    f.RoomID,
		Start:     f.Start,
		End:       f.End,
		Status:    string(f.Status),
		Recurring: f.Recurring,
		Notes:     notes,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ----------------------------- Entry fixtures ----------------------------

// EntryFixture represents a deterministic room entry. The default is a
// closed entry covering the default schedule fixture's window.
type EntryFixture struct {
	ID        string
	UserID    string
	RoomID    string
	StartedAt time.Time
	EndedAt   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryOption configures the generated entry fixture.
type EntryOption func(*EntryFixture)

// NewEntryFixture returns a deterministic entry fixture with optional overrides.
func NewEntryFixture(opts ...EntryOption) EntryFixture {
	idx := atomic.AddUint64(&entryCounter, 1)
	ended := referenceTime.Add(2 * time.Hour)
	fixture := EntryFixture{
		ID:        fmt.Sprintf("entry-%03d", idx),
		UserID:    "monitor-001",
		RoomID:    "room-001",
		StartedAt: referenceTime,
		EndedAt:   &ended,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEntryID overrides the generated entry ID.
func WithEntryID(id string) EntryOption {
	return func(f *EntryFixture) { f.ID = id }
}

// WithEntryUser sets the monitor who checked in.
func WithEntryUser(id string) EntryOption {
	return func(f *EntryFixture) { f.UserID = id }
}

// WithEntryRoom sets the room entered.
func WithEntryRoom(id string) EntryOption {
	return func(f *EntryFixture) { f.RoomID = id }
}

// WithEntryWindow sets a closed window.
func WithEntryWindow(start, end time.Time) EntryOption {
	return func(f *EntryFixture) {
		f.StartedAt = start
		f.EndedAt = &end
	}
}

// WithEntryOpen sets the arrival and leaves the entry open.
func WithEntryOpen(start time.Time) EntryOption {
	return func(f *EntryFixture) {
		f.StartedAt = start
		f.EndedAt = nil
	}
}

// Domain converts the fixture into a domain.RoomEntry.
func (f EntryFixture) Domain() domain.RoomEntry {
	return domain.RoomEntry{
		ID:        f.ID,
		UserID:    f.UserID,
		RoomID:    f.RoomID,
		StartedAt: f.StartedAt,
		EndedAt:   copyTimePtr(f.EndedAt),
	}
}

// Persistence converts the fixture into a persistence.RoomEntry.
func (f EntryFixture) Persistence() persistence.RoomEntry {
	return persistence.RoomEntry{
		ID:        f.ID,
		UserID:    f.UserID,
		RoomID:    f.RoomID,
		StartedAt: f.StartedAt,
		EndedAt:   copyTimePtr(f.EndedAt),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	t := *src
	return &t
}
