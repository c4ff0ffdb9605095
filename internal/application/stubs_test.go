package application

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/notify"
	"github.com/example/monitor-scheduler/internal/persistence"
)

var bogota = interval.Bogota()

// at builds a Bogotá wall-clock instant in January 2024.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, bogota.Location())
}

func date(day int) *interval.Date {
	d := interval.Date{Year: 2024, Month: time.January, Day: day}
	return &d
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

// scheduleRepoStub keeps schedules in a map and, like the real stores,
// refuses overlapping active schedules with persistence.ErrConflict.
type scheduleRepoStub struct {
	mu        sync.Mutex
	schedules map[string]domain.Schedule

	listErr   error
	createErr error
	// conflictOn makes CreateSchedule report a store conflict for the given
	// start times, simulating a concurrent writer.
	conflictOn map[time.Time]bool
	listCalls  int
}

func newScheduleRepoStub(seed ...domain.Schedule) *scheduleRepoStub {
	r := &scheduleRepoStub{schedules: make(map[string]domain.Schedule)}
	for _, s := range seed {
		r.schedules[s.ID] = s
	}
	return r
}

func (r *scheduleRepoStub) CreateSchedule(ctx context.Context, schedule domain.Schedule) (domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return domain.Schedule{}, r.createErr
	}
	if r.conflictOn[schedule.Start] {
		return domain.Schedule{}, persistence.ErrConflict
	}
	if _, ok := r.schedules[schedule.ID]; ok {
		return domain.Schedule{}, persistence.ErrDuplicate
	}
	if err := r.overlapLocked(schedule); err != nil {
		return domain.Schedule{}, err
	}
	r.schedules[schedule.ID] = schedule
	return schedule, nil
}

func (r *scheduleRepoStub) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return domain.Schedule{}, persistence.ErrNotFound
	}
	return s, nil
}

func (r *scheduleRepoStub) UpdateSchedule(ctx context.Context, schedule domain.Schedule) (domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[schedule.ID]; !ok {
		return domain.Schedule{}, persistence.ErrNotFound
	}
	if err := r.overlapLocked(schedule); err != nil {
		return domain.Schedule{}, err
	}
	r.schedules[schedule.ID] = schedule
	return schedule, nil
}

func (r *scheduleRepoStub) DeleteSchedule(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.schedules, id)
	return nil
}

func (r *scheduleRepoStub) ListSchedules(ctx context.Context, q ScheduleQuery) ([]domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Schedule
	for _, s := range r.schedules {
		if q.UserID != "" && s.UserID != q.UserID {
			continue
		}
		if q.RoomID != "" && s.RoomID != q.RoomID {
			continue
		}
		if q.From != nil && !s.End.After(*q.From) {
			continue
		}
		if q.To != nil && !s.Start.Before(*q.To) {
			continue
		}
		if q.ActiveOnly && !s.IsActive() {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, s.Status) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (r *scheduleRepoStub) overlapLocked(candidate domain.Schedule) error {
	if !candidate.IsActive() {
		return nil
	}
	for _, other := range r.schedules {
		if other.ID == candidate.ID || !other.IsActive() {
			continue
		}
		if other.UserID != candidate.UserID && other.RoomID != candidate.RoomID {
			continue
		}
		if candidate.Interval().Overlaps(other.Interval()) {
			return persistence.ErrConflict
		}
	}
	return nil
}

func containsStatus(statuses []domain.ScheduleStatus, status domain.ScheduleStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type entryRepoStub struct {
	mu      sync.Mutex
	entries map[string]domain.RoomEntry
	listErr error
	// lookups records the user ids passed to FindOpenEntry.
	lookups []string
}

func newEntryRepoStub(seed ...domain.RoomEntry) *entryRepoStub {
	r := &entryRepoStub{entries: make(map[string]domain.RoomEntry)}
	for _, e := range seed {
		r.entries[e.ID] = domain.CloneEntry(e)
	}
	return r
}

func (r *entryRepoStub) CreateEntry(ctx context.Context, entry domain.RoomEntry) (domain.RoomEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.ID]; ok {
		return domain.RoomEntry{}, persistence.ErrDuplicate
	}
	if entry.IsOpen() {
		for _, other := range r.entries {
			if other.UserID == entry.UserID && other.IsOpen() {
				return domain.RoomEntry{}, persistence.ErrEntryOpen
			}
		}
	}
	r.entries[entry.ID] = domain.CloneEntry(entry)
	return entry, nil
}

func (r *entryRepoStub) UpdateEntry(ctx context.Context, entry domain.RoomEntry) (domain.RoomEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.ID]; !ok {
		return domain.RoomEntry{}, persistence.ErrNotFound
	}
	r.entries[entry.ID] = domain.CloneEntry(entry)
	return entry, nil
}

func (r *entryRepoStub) GetEntry(ctx context.Context, id string) (domain.RoomEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.RoomEntry{}, persistence.ErrNotFound
	}
	return domain.CloneEntry(e), nil
}

func (r *entryRepoStub) ListEntries(ctx context.Context, q EntryQuery) ([]domain.RoomEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.RoomEntry
	for _, e := range r.entries {
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		if q.RoomID != "" && e.RoomID != q.RoomID {
			continue
		}
		if q.From != nil && e.StartedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && !e.StartedAt.Before(*q.To) {
			continue
		}
		if q.OpenOnly && !e.IsOpen() {
			continue
		}
		out = append(out, domain.CloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r *entryRepoStub) FindOpenEntry(ctx context.Context, userID string) (domain.RoomEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, userID)
	for _, e := range r.entries {
		if e.UserID == userID && e.IsOpen() {
			return domain.CloneEntry(e), nil
		}
	}
	return domain.RoomEntry{}, persistence.ErrNotFound
}

type roomRepoStub struct {
	createErr error
	created   Room
	list      []Room
	listErr   error
}

func (r *roomRepoStub) CreateRoom(ctx context.Context, room Room) (Room, error) {
	if r.createErr != nil {
		return Room{}, r.createErr
	}
	r.created = room
	return room, nil
}

func (r *roomRepoStub) GetRoom(ctx context.Context, id string) (Room, error) {
	for _, room := range r.list {
		if room.ID == id {
			return room, nil
		}
	}
	return Room{}, persistence.ErrNotFound
}

func (r *roomRepoStub) ListRooms(ctx context.Context) ([]Room, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Room, len(r.list))
	copy(out, r.list)
	return out, nil
}

type userRepoStub struct {
	createErr error
	created   User
	list      []User
}

func (r *userRepoStub) CreateUser(ctx context.Context, user User) (User, error) {
	if r.createErr != nil {
		return User{}, r.createErr
	}
	r.created = user
	return user, nil
}

func (r *userRepoStub) GetUser(ctx context.Context, id string) (User, error) {
	for _, user := range r.list {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, persistence.ErrNotFound
}

func (r *userRepoStub) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, len(r.list))
	copy(out, r.list)
	return out, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, topic notify.Topic, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, notify.Event{Topic: topic, Payload: payload})
}

func (p *recordingPublisher) topics() []notify.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.Topic, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Topic
	}
	return out
}

var errBoom = errors.New("boom")
