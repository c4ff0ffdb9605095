package persistence

import (
	"context"
	"time"
)

// UserRepository stores monitor accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// RoomRepository stores the room catalog.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// ScheduleFilter narrows schedule queries. From and To select schedules whose
// interval intersects [From, To).
type ScheduleFilter struct {
	UserID   string
	RoomID   string
	From     *time.Time
	To       *time.Time
	Statuses []string
}

// ScheduleRepository stores schedules. Create and Update re-check overlap
// against active schedules inside the write and return ErrConflict.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule Schedule) error
	UpdateSchedule(ctx context.Context, schedule Schedule) error
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// EntryFilter narrows room entry queries. From and To bound StartedAt to
// [From, To).
type EntryFilter struct {
	UserID   string
	RoomID   string
	From     *time.Time
	To       *time.Time
	OpenOnly bool
}

// EntryRepository stores room entries. CreateEntry returns ErrEntryOpen when
// the user already has an open entry.
type EntryRepository interface {
	CreateEntry(ctx context.Context, entry RoomEntry) error
	UpdateEntry(ctx context.Context, entry RoomEntry) error
	GetEntry(ctx context.Context, id string) (RoomEntry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]RoomEntry, error)
	FindOpenEntry(ctx context.Context, userID string) (RoomEntry, error)
}

// Store bundles every repository behind one handle.
type Store interface {
	UserRepository
	RoomRepository
	ScheduleRepository
	EntryRepository
	Close() error
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ValidWindow reports whether the entry is open or ends after it starts.
func (e RoomEntry) ValidWindow() bool {
	return e.EndedAt == nil || e.EndedAt.After(e.StartedAt)
}
