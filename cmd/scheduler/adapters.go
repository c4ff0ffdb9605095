package main

import (
	"context"
	"strings"
	"time"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/persistence"
)

// The persistence layer stores plain rows and reports only errors on write.
// These adapters re-read after writes so the services see stored values.

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

type scheduleRepositoryAdapter struct {
	repo persistence.ScheduleRepository
}

func newScheduleRepositoryAdapter(repo persistence.ScheduleRepository) *scheduleRepositoryAdapter {
	return &scheduleRepositoryAdapter{repo: repo}
}

func (a *scheduleRepositoryAdapter) CreateSchedule(ctx context.Context, schedule domain.Schedule) (domain.Schedule, error) {
	if err := a.repo.CreateSchedule(ctx, toPersistenceSchedule(schedule)); err != nil {
		return domain.Schedule{}, err
	}
	return a.GetSchedule(ctx, schedule.ID)
}

func (a *scheduleRepositoryAdapter) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	stored, err := a.repo.GetSchedule(ctx, id)
	if err != nil {
		return domain.Schedule{}, err
	}
	return toDomainSchedule(stored), nil
}

func (a *scheduleRepositoryAdapter) UpdateSchedule(ctx context.Context, schedule domain.Schedule) (domain.Schedule, error) {
	if err := a.repo.UpdateSchedule(ctx, toPersistenceSchedule(schedule)); err != nil {
		return domain.Schedule{}, err
	}
	return a.GetSchedule(ctx, schedule.ID)
}

func (a *scheduleRepositoryAdapter) DeleteSchedule(ctx context.Context, id string) error {
	return a.repo.DeleteSchedule(ctx, id)
}

func (a *scheduleRepositoryAdapter) ListSchedules(ctx context.Context, query application.ScheduleQuery) ([]domain.Schedule, error) {
	filter := persistence.ScheduleFilter{
		UserID: query.UserID,
		RoomID: query.RoomID,
		From:   cloneTime(query.From),
		To:     cloneTime(query.To),
	}
	if query.ActiveOnly {
		filter.Statuses = []string{persistence.StatusActive}
	} else {
		for _, status := range query.Statuses {
			filter.Statuses = append(filter.Statuses, string(status))
		}
	}

	models, err := a.repo.ListSchedules(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	schedules := make([]domain.Schedule, 0, len(models))
	for _, model := range models {
		schedules = append(schedules, toDomainSchedule(model))
	}
	return schedules, nil
}

type entryRepositoryAdapter struct {
	repo persistence.EntryRepository
}

func newEntryRepositoryAdapter(repo persistence.EntryRepository) *entryRepositoryAdapter {
	return &entryRepositoryAdapter{repo: repo}
}

func (a *entryRepositoryAdapter) CreateEntry(ctx context.Context, entry domain.RoomEntry) (domain.RoomEntry, error) {
	if err := a.repo.CreateEntry(ctx, toPersistenceEntry(entry)); err != nil {
		return domain.RoomEntry{}, err
	}
	return a.GetEntry(ctx, entry.ID)
}

func (a *entryRepositoryAdapter) UpdateEntry(ctx context.Context, entry domain.RoomEntry) (domain.RoomEntry, error) {
	if err := a.repo.UpdateEntry(ctx, toPersistenceEntry(entry)); err != nil {
		return domain.RoomEntry{}, err
	}
	return a.GetEntry(ctx, entry.ID)
}

func (a *entryRepositoryAdapter) GetEntry(ctx context.Context, id string) (domain.RoomEntry, error) {
	stored, err := a.repo.GetEntry(ctx, id)
	if err != nil {
		return domain.RoomEntry{}, err
	}
	return toDomainEntry(stored), nil
}

func (a *entryRepositoryAdapter) FindOpenEntry(ctx context.Context, userID string) (domain.RoomEntry, error) {
	stored, err := a.repo.FindOpenEntry(ctx, userID)
	if err != nil {
		return domain.RoomEntry{}, err
	}
	return toDomainEntry(stored), nil
}

func (a *entryRepositoryAdapter) ListEntries(ctx context.Context, query application.EntryQuery) ([]domain.RoomEntry, error) {
	models, err := a.repo.ListEntries(ctx, persistence.EntryFilter{
		UserID:   query.UserID,
		RoomID:   query.RoomID,
		From:     cloneTime(query.From),
		To:       cloneTime(query.To),
		OpenOnly: query.OpenOnly,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	entries := make([]domain.RoomEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, toDomainEntry(model))
	}
	return entries, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User) persistence.User {
	return persistence.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsAdmin:     user.IsAdmin,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:        model.ID,
		Name:      model.Name,
		Location:  model.Location,
		Capacity:  model.Capacity,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:        room.ID,
		Name:      room.Name,
		Location:  room.Location,
		Capacity:  room.Capacity,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func toDomainSchedule(model persistence.Schedule) domain.Schedule {
	notes := ""
	if model.Notes != nil {
		notes = *model.Notes
	}
	return domain.Schedule{
		ID:        model.ID,
		UserID:    model.UserID,
		RoomID:    model.RoomID,
		Start:     model.Start,
		End:       model.End,
		Status:    domain.ScheduleStatus(model.Status),
		Recurring: model.Recurring,
		Notes:     notes,
	}
}

func toPersistenceSchedule(schedule domain.Schedule) persistence.Schedule {
	var notes *string
	if strings.TrimSpace(schedule.Notes) != "" {
		n := schedule.Notes
		notes = &n
	}
	status := string(schedule.Status)
	if status == "" {
		status = persistence.StatusActive
	}
	return persistence.Schedule{
		ID:        schedule.ID,
		UserID:    schedule.UserID,
		RoomID:    schedule.RoomID,
		Start:     schedule.Start,
		End:       schedule.End,
		Status:    status,
		Recurring: schedule.Recurring,
		Notes:     notes,
	}
}

func toDomainEntry(model persistence.RoomEntry) domain.RoomEntry {
	return domain.RoomEntry{
		ID:        model.ID,
		UserID:    model.UserID,
		RoomID:    model.RoomID,
		StartedAt: model.StartedAt,
		EndedAt:   cloneTime(model.EndedAt),
	}
}

func toPersistenceEntry(entry domain.RoomEntry) persistence.RoomEntry {
	return persistence.RoomEntry{
		ID:        entry.ID,
		UserID:    entry.UserID,
		RoomID:    entry.RoomID,
		StartedAt: entry.StartedAt,
		EndedAt:   cloneTime(entry.EndedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
