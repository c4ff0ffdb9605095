package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
)

func TestNormalizer_EntriesAcceptsKeyVariants(t *testing.T) {
	t.Parallel()

	payload := []byte(`[
		{"id": "a", "userId": "ana", "roomId": "lab-1", "startedAt": "2024-01-08T13:00:00Z", "endedAt": "2024-01-08T15:30:00Z"},
		{"id": "b", "user_id": "luis", "room_id": "lab-2", "entry_time": "2024-01-08 08:00:00", "exit_time": "2024-01-08 09:00:00"},
		{"id": 7, "user_id": 3, "room_id": 4, "created_at": 1704722400},
		{"id": "d", "user_id": "eva", "room_id": "lab-1", "started_at": "not a date"},
		{"id": "e", "user_id": "eva", "started_at": "2024-01-08T08:00:00Z"},
		{"id": "f", "user_id": "eva", "room_id": "lab-1", "started_at": "2024-01-08T10:00:00Z", "ended_at": "2024-01-08T09:00:00Z"},
		"garbage"
	]`)

	n := NewNormalizer(interval.Bogota())
	entries, skipped, err := n.Entries(payload)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, 2*time.Hour+30*time.Minute, entries[0].EndedAt.Sub(entries[0].StartedAt))

	// Zone-less timestamps are read as Bogotá local time.
	assert.Equal(t, time.Date(2024, 1, 8, 13, 0, 0, 0, time.UTC), entries[1].StartedAt.UTC())

	assert.Equal(t, "7", entries[2].ID)
	assert.Equal(t, "3", entries[2].UserID)
	assert.True(t, entries[2].IsOpen())
	assert.Equal(t, time.Unix(1704722400, 0), entries[2].StartedAt)

	require.Len(t, skipped, 4)
	assert.Equal(t, []int{3, 4, 5, 6}, []int{skipped[0].Index, skipped[1].Index, skipped[2].Index, skipped[3].Index})
	assert.Equal(t, "d", skipped[0].ID)
	for _, s := range skipped {
		assert.True(t, errors.Is(s, ErrMalformedRecord))
	}
}

func TestNormalizer_WrappedPayload(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"data": [{"id": "s1", "user_id": "ana", "room_id": "lab-1", "start_time": "2024-01-08 08:00", "end_time": "2024-01-08 12:00", "status": "Cancelled", "recurring": true}]}`)

	schedules, skipped, err := NewNormalizer(interval.Bogota()).Schedules(payload)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, schedules, 1)
	assert.Equal(t, domain.StatusCancelled, schedules[0].Status)
	assert.True(t, schedules[0].Recurring)
	assert.Equal(t, 4.0, schedules[0].Interval().DurationHours())
}

func TestNormalizer_ScheduleRejections(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(interval.Bogota())
	cases := map[string]map[string]any{
		"missing end":    {"user_id": "ana", "room_id": "lab-1", "start": "2024-01-08T08:00:00Z"},
		"inverted":       {"user_id": "ana", "room_id": "lab-1", "start": "2024-01-08T08:00:00Z", "end": "2024-01-08T07:00:00Z"},
		"unknown status": {"user_id": "ana", "room_id": "lab-1", "start": "2024-01-08T08:00:00Z", "end": "2024-01-08T09:00:00Z", "status": "paused"},
		"bad type":       {"user_id": "ana", "room_id": "lab-1", "start": true, "end": "2024-01-08T09:00:00Z"},
	}
	for name, raw := range cases {
		_, err := n.Schedule(raw)
		assert.ErrorIs(t, err, ErrMalformedRecord, name)
	}

	sched, err := n.Schedule(map[string]any{"user_id": "ana", "room_id": "lab-1", "start": "2024-01-08T08:00:00Z", "end": "2024-01-08T09:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, sched.Status)
}

func TestNormalizer_InvalidPayload(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(interval.Bogota())
	_, _, err := n.Entries([]byte(`{"id": "a"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, _, err = n.Entries([]byte(`{`))
	assert.Error(t, err)
}

func TestNormalizer_ParseTime(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(interval.Bogota())
	got, err := n.ParseTime("2024-01-08T08:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, 13, got.UTC().Hour())

	_, err = n.ParseTime("  ")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
