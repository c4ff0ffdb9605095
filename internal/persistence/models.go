package persistence

import "time"

// User is a monitor or administrator account.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
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

// Schedule is a stored shift assignment.
type Schedule struct {
	ID        string
	UserID    string
	RoomID    string
	Start     time.Time
	End       time.Time
	Status    string
	Recurring bool
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomEntry is a stored check-in. EndedAt is nil while the entry is open.
type RoomEntry struct {
	ID        string
	UserID    string
	RoomID    string
	StartedAt time.Time
	EndedAt   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusActive is the stored value of an active schedule.
const StatusActive = "active"
