package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/persistence"
	"github.com/example/monitor-scheduler/internal/persistence/memory"
	"github.com/example/monitor-scheduler/internal/testfixtures"
)

func seededStore(t *testing.T) persistence.Store {
	t.Helper()
	harness := testfixtures.NewMemoryHarness(t)
	harness.Seed(t,
		[]testfixtures.UserFixture{testfixtures.NewUserFixture(testfixtures.WithUserID("u1"))},
		[]testfixtures.RoomFixture{
			testfixtures.NewRoomFixture(testfixtures.WithRoomID("r1")),
			testfixtures.NewRoomFixture(testfixtures.WithRoomID("r2")),
		},
	)
	return harness.Store
}

func TestScheduleRepositoryAdapter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := seededStore(t)
	repo := newScheduleRepositoryAdapter(store)

	start := time.Date(2024, 1, 8, 13, 0, 0, 0, time.UTC)
	created, err := repo.CreateSchedule(ctx, domain.Schedule{
		ID: "s1", UserID: "u1", RoomID: "r1",
		Start: start, End: start.Add(2 * time.Hour),
		Notes: "apertura",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.Equal(t, "apertura", created.Notes)

	_, err = repo.CreateSchedule(ctx, domain.Schedule{
		ID: "s2", UserID: "u1", RoomID: "r2",
		Start: start.Add(3 * time.Hour), End: start.Add(4 * time.Hour),
		Status: domain.StatusCancelled,
	})
	require.NoError(t, err)

	active, err := repo.ListSchedules(ctx, application.ScheduleQuery{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s1", active[0].ID)

	cancelled, err := repo.ListSchedules(ctx, application.ScheduleQuery{
		Statuses: []domain.ScheduleStatus{domain.StatusCancelled},
	})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "s2", cancelled[0].ID)

	created.Notes = ""
	updated, err := repo.UpdateSchedule(ctx, created)
	require.NoError(t, err)
	assert.Empty(t, updated.Notes)

	require.NoError(t, repo.DeleteSchedule(ctx, "s1"))
	_, err = repo.GetSchedule(ctx, "s1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestEntryRepositoryAdapter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := seededStore(t)
	repo := newEntryRepositoryAdapter(store)

	started := time.Date(2024, 1, 8, 13, 2, 0, 0, time.UTC)
	entry, err := repo.CreateEntry(ctx, domain.RoomEntry{ID: "e1", UserID: "u1", RoomID: "r1", StartedAt: started})
	require.NoError(t, err)
	assert.True(t, entry.IsOpen())

	open, err := repo.FindOpenEntry(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "e1", open.ID)

	ended := started.Add(90 * time.Minute)
	entry.EndedAt = &ended
	closed, err := repo.UpdateEntry(ctx, entry)
	require.NoError(t, err)
	require.NotNil(t, closed.EndedAt)
	assert.True(t, closed.EndedAt.Equal(ended))

	// Stored rows must not alias the caller's pointer.
	ended = ended.Add(time.Hour)
	again, err := repo.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, again.EndedAt.Equal(started.Add(90*time.Minute)))

	openOnly, err := repo.ListEntries(ctx, application.EntryQuery{OpenOnly: true})
	require.NoError(t, err)
	assert.Empty(t, openOnly)

	_, err = repo.FindOpenEntry(ctx, "u1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestCatalogAdapters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.New()
	users := newUserRepositoryAdapter(store)
	rooms := newRoomRepositoryAdapter(store)

	empty, err := users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	user, err := users.CreateUser(ctx, application.User{ID: "u9", Email: "nueve@example.com", DisplayName: "Nueve"})
	require.NoError(t, err)
	assert.Equal(t, "Nueve", user.DisplayName)

	_, err = users.CreateUser(ctx, application.User{ID: "u9", Email: "otro@example.com", DisplayName: "Otro"})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	room, err := rooms.CreateRoom(ctx, application.Room{ID: "r9", Name: "Laboratorio", Location: "Bloque B", Capacity: 30})
	require.NoError(t, err)
	assert.Equal(t, "Bloque B", room.Location)

	list, err := rooms.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r9", list[0].ID)
}
