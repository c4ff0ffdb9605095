package scheduler

import (
	"sort"

	"github.com/example/monitor-scheduler/internal/domain"
)

// ConflictType describes the type of conflict detected between schedules.
type ConflictType string

const (
	// ConflictTypeUser indicates a monitor is double-booked.
	ConflictTypeUser ConflictType = "user"
	// ConflictTypeRoom indicates a room is double-booked.
	ConflictTypeRoom ConflictType = "room"
)

// Conflict details an overlapping schedule relation that callers can present to users.
type Conflict struct {
	Type ConflictType
	With domain.Schedule
}

// DetectConflicts lists every active schedule in existing that double-books
// the candidate's user or room. The candidate itself (same non-empty ID) is
// ignored, as are cancelled and completed schedules. User conflicts are
// listed before room conflicts, each ordered by start time.
func DetectConflicts(existing []domain.Schedule, candidate domain.Schedule) []Conflict {
	if len(existing) == 0 {
		return nil
	}

	window := candidate.Interval()
	var users, rooms []Conflict
	for _, other := range existing {
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		if !other.IsActive() {
			continue
		}
		if !window.Overlaps(other.Interval()) {
			continue
		}
		if other.UserID != "" && other.UserID == candidate.UserID {
			users = append(users, Conflict{Type: ConflictTypeUser, With: other})
		}
		if other.RoomID != "" && other.RoomID == candidate.RoomID {
			rooms = append(rooms, Conflict{Type: ConflictTypeRoom, With: other})
		}
	}

	sortConflicts(users)
	sortConflicts(rooms)

	if len(users)+len(rooms) == 0 {
		return nil
	}
	return append(users, rooms...)
}

func sortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i].With, conflicts[j].With
		if a.Start.Equal(b.Start) {
			return a.ID < b.ID
		}
		return a.Start.Before(b.Start)
	})
}
