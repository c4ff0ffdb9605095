package application

import (
	"context"
	"errors"
	"time"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/persistence"
)

// ScheduleQuery selects schedules whose window intersects [From, To).
type ScheduleQuery struct {
	UserID     string
	RoomID     string
	From       *time.Time
	To         *time.Time
	ActiveOnly bool
	Statuses   []domain.ScheduleStatus
}

// ScheduleRepository captures the persistence interactions needed by the schedule service.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule domain.Schedule) (domain.Schedule, error)
	GetSchedule(ctx context.Context, id string) (domain.Schedule, error)
	UpdateSchedule(ctx context.Context, schedule domain.Schedule) (domain.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	ListSchedules(ctx context.Context, query ScheduleQuery) ([]domain.Schedule, error)
}

// EntryQuery selects entries whose StartedAt falls in [From, To).
type EntryQuery struct {
	UserID   string
	RoomID   string
	From     *time.Time
	To       *time.Time
	OpenOnly bool
}

// EntryRepository captures the persistence interactions needed by the entry service.
type EntryRepository interface {
	CreateEntry(ctx context.Context, entry domain.RoomEntry) (domain.RoomEntry, error)
	UpdateEntry(ctx context.Context, entry domain.RoomEntry) (domain.RoomEntry, error)
	GetEntry(ctx context.Context, id string) (domain.RoomEntry, error)
	ListEntries(ctx context.Context, query EntryQuery) ([]domain.RoomEntry, error)
	FindOpenEntry(ctx context.Context, userID string) (domain.RoomEntry, error)
}

// RoomRepository captures the persistence operations needed by the room service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// mapRepoError translates persistence errors into application errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConflict):
		return ErrScheduleConflict
	case errors.Is(err, persistence.ErrEntryOpen):
		return ErrEntryOpen
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fieldError("reference", "el monitor o la sala no existen")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("record", "el registro no cumple las restricciones")
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
