package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record with the same key already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a record breaks a column constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced user or room does not exist.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrConflict is returned when an active schedule would overlap another
	// active schedule of the same user or room.
	ErrConflict = errors.New("persistence: schedule overlaps an active schedule")
	// ErrEntryOpen is returned when a user already has an open room entry.
	ErrEntryOpen = errors.New("persistence: user already has an open entry")
)
