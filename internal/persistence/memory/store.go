// Package memory provides a map-backed persistence.Store used by tests and
// by the "memory:" DSN.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/example/monitor-scheduler/internal/persistence"
)

// Store keeps every record in process memory.
type Store struct {
	mu        sync.RWMutex
	users     map[string]persistence.User
	rooms     map[string]persistence.Room
	schedules map[string]persistence.Schedule
	entries   map[string]persistence.RoomEntry
}

var _ persistence.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:     make(map[string]persistence.User),
		rooms:     make(map[string]persistence.Room),
		schedules: make(map[string]persistence.Schedule),
		entries:   make(map[string]persistence.RoomEntry),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user. Emails are unique case-insensitively.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, persistence.ErrDuplicate)
	}
	lower := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == lower {
			return fmt.Errorf("memory: email %s: %w", user.Email, persistence.ErrDuplicate)
		}
	}

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// ListUsers returns all users ordered by display name.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].DisplayName == users[j].DisplayName {
			return users[i].ID < users[j].ID
		}
		return users[i].DisplayName < users[j].DisplayName
	})
	return users, nil
}

// --- RoomRepository implementation ---

// CreateRoom stores a new room.
func (s *Store) CreateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("memory: room %s: %w", room.ID, persistence.ErrDuplicate)
	}

	s.rooms[room.ID] = room
	return nil
}

// GetRoom retrieves a room by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

// ListRooms returns all rooms ordered by name.
func (s *Store) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

// --- ScheduleRepository implementation ---

// CreateSchedule stores a schedule after re-checking overlap under the write lock.
func (s *Store) CreateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if schedule.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.schedules[schedule.ID]; ok {
		return fmt.Errorf("memory: schedule %s: %w", schedule.ID, persistence.ErrDuplicate)
	}
	if err := s.checkScheduleLocked(schedule); err != nil {
		return err
	}

	s.schedules[schedule.ID] = cloneSchedule(schedule)
	return nil
}

// UpdateSchedule replaces a schedule, keeping its creation timestamp.
func (s *Store) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.schedules[schedule.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := s.checkScheduleLocked(schedule); err != nil {
		return err
	}

	schedule.CreatedAt = existing.CreatedAt
	s.schedules[schedule.ID] = cloneSchedule(schedule)
	return nil
}

// GetSchedule retrieves a schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return persistence.Schedule{}, persistence.ErrNotFound
	}
	return cloneSchedule(schedule), nil
}

// ListSchedules returns matching schedules ordered by start then ID.
func (s *Store) ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedules := make([]persistence.Schedule, 0)
	for _, schedule := range s.schedules {
		if !matchesScheduleFilter(schedule, filter) {
			continue
		}
		schedules = append(schedules, cloneSchedule(schedule))
	}
	sort.Slice(schedules, func(i, j int) bool {
		if schedules[i].Start.Equal(schedules[j].Start) {
			return schedules[i].ID < schedules[j].ID
		}
		return schedules[i].Start.Before(schedules[j].Start)
	})
	return schedules, nil
}

// DeleteSchedule removes a schedule by ID.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.schedules, id)
	return nil
}

func (s *Store) checkScheduleLocked(schedule persistence.Schedule) error {
	if !schedule.End.After(schedule.Start) {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.users[schedule.UserID]; !ok {
		return fmt.Errorf("memory: user %s: %w", schedule.UserID, persistence.ErrForeignKeyViolation)
	}
	if _, ok := s.rooms[schedule.RoomID]; !ok {
		return fmt.Errorf("memory: room %s: %w", schedule.RoomID, persistence.ErrForeignKeyViolation)
	}
	if schedule.Status != persistence.StatusActive {
		return nil
	}
	for id, other := range s.schedules {
		if id == schedule.ID || other.Status != persistence.StatusActive {
			continue
		}
		if other.UserID != schedule.UserID && other.RoomID != schedule.RoomID {
			continue
		}
		if persistence.Overlaps(schedule.Start, schedule.End, other.Start, other.End) {
			return fmt.Errorf("memory: schedule %s: %w", id, persistence.ErrConflict)
		}
	}
	return nil
}

func matchesScheduleFilter(schedule persistence.Schedule, filter persistence.ScheduleFilter) bool {
	if filter.UserID != "" && schedule.UserID != filter.UserID {
		return false
	}
	if filter.RoomID != "" && schedule.RoomID != filter.RoomID {
		return false
	}
	if filter.From != nil && !schedule.End.After(*filter.From) {
		return false
	}
	if filter.To != nil && !schedule.Start.Before(*filter.To) {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if schedule.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// --- EntryRepository implementation ---

// CreateEntry stores a new entry. A user may hold a single open entry.
func (s *Store) CreateEntry(ctx context.Context, entry persistence.RoomEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" || entry.StartedAt.IsZero() || !entry.ValidWindow() {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.entries[entry.ID]; ok {
		return fmt.Errorf("memory: entry %s: %w", entry.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.users[entry.UserID]; !ok {
		return fmt.Errorf("memory: user %s: %w", entry.UserID, persistence.ErrForeignKeyViolation)
	}
	if _, ok := s.rooms[entry.RoomID]; !ok {
		return fmt.Errorf("memory: room %s: %w", entry.RoomID, persistence.ErrForeignKeyViolation)
	}
	if entry.EndedAt == nil {
		for _, other := range s.entries {
			if other.UserID == entry.UserID && other.EndedAt == nil {
				return persistence.ErrEntryOpen
			}
		}
	}

	s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

// UpdateEntry replaces an entry, keeping its creation timestamp.
func (s *Store) UpdateEntry(ctx context.Context, entry persistence.RoomEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[entry.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if !entry.ValidWindow() {
		return persistence.ErrConstraintViolation
	}

	entry.CreatedAt = existing.CreatedAt
	s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

// GetEntry retrieves an entry by ID.
func (s *Store) GetEntry(ctx context.Context, id string) (persistence.RoomEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return persistence.RoomEntry{}, persistence.ErrNotFound
	}
	return cloneEntry(entry), nil
}

// ListEntries returns matching entries ordered by arrival then ID.
func (s *Store) ListEntries(ctx context.Context, filter persistence.EntryFilter) ([]persistence.RoomEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]persistence.RoomEntry, 0)
	for _, entry := range s.entries {
		if filter.UserID != "" && entry.UserID != filter.UserID {
			continue
		}
		if filter.RoomID != "" && entry.RoomID != filter.RoomID {
			continue
		}
		if filter.From != nil && entry.StartedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !entry.StartedAt.Before(*filter.To) {
			continue
		}
		if filter.OpenOnly && entry.EndedAt != nil {
			continue
		}
		entries = append(entries, cloneEntry(entry))
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].StartedAt.Equal(entries[j].StartedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].StartedAt.Before(entries[j].StartedAt)
	})
	return entries, nil
}

// FindOpenEntry returns the user's open entry.
func (s *Store) FindOpenEntry(ctx context.Context, userID string) (persistence.RoomEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries {
		if entry.UserID == userID && entry.EndedAt == nil {
			return cloneEntry(entry), nil
		}
	}
	return persistence.RoomEntry{}, persistence.ErrNotFound
}

func cloneSchedule(schedule persistence.Schedule) persistence.Schedule {
	if schedule.Notes != nil {
		notes := *schedule.Notes
		schedule.Notes = &notes
	}
	return schedule
}

func cloneEntry(entry persistence.RoomEntry) persistence.RoomEntry {
	if entry.EndedAt != nil {
		ended := *entry.EndedAt
		entry.EndedAt = &ended
	}
	return entry
}
