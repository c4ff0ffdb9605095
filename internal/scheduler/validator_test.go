package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
)

func fixedClock(t time.Time) interval.Clock {
	return interval.ClockFunc(func() time.Time { return t })
}

func newTestValidator() *Validator {
	return NewValidator(WithClock(fixedClock(bogota(1, 8))))
}

func requireKind(t *testing.T, err error, kind ErrorKind) *ConflictError {
	t.Helper()
	var cErr *ConflictError
	require.True(t, errors.As(err, &cErr), "expected *ConflictError, got %v", err)
	require.Equal(t, kind, cErr.Kind)
	return cErr
}

func TestValidator_RuleOrder(t *testing.T) {
	t.Parallel()

	v := newTestValidator()

	t.Run("inverted range", func(t *testing.T) {
		t.Parallel()
		requireKind(t, v.Validate(shift("", "ana", "lab-1", 4, 12, 9), nil), KindInvalidRange)
	})

	t.Run("empty range", func(t *testing.T) {
		t.Parallel()
		requireKind(t, v.Validate(shift("", "ana", "lab-1", 4, 9, 9), nil), KindInvalidRange)
	})

	t.Run("duration above twelve hours", func(t *testing.T) {
		t.Parallel()
		candidate := shift("", "ana", "lab-1", 4, 6, 18)
		candidate.End = candidate.End.Add(time.Minute)
		cErr := requireKind(t, v.Validate(candidate, nil), KindDurationExceeded)
		assert.Equal(t, DefaultMaxDuration, cErr.MaxDuration)
	})

	t.Run("exactly twelve hours is accepted", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, v.Validate(shift("", "ana", "lab-1", 4, 6, 18), nil))
	})

	t.Run("past start is rejected before conflicts are checked", func(t *testing.T) {
		t.Parallel()
		existing := []domain.Schedule{shift("s1", "ana", "lab-1", 1, 6, 9)}
		requireKind(t, v.Validate(shift("", "ana", "lab-1", 1, 7, 9), existing), KindPastDate)
	})

	t.Run("start equal to now is accepted", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, v.Validate(shift("", "ana", "lab-1", 1, 8, 9), nil))
	})

	t.Run("user conflict wins over room conflict", func(t *testing.T) {
		t.Parallel()
		existing := []domain.Schedule{
			shift("room", "luis", "lab-1", 4, 9, 12),
			shift("user", "ana", "lab-2", 4, 9, 12),
		}
		cErr := requireKind(t, v.Validate(shift("", "ana", "lab-1", 4, 10, 11), existing), KindUserConflict)
		require.NotNil(t, cErr.Conflicting)
		assert.Equal(t, "user", cErr.Conflicting.ID)
		assert.True(t, cErr.IsConflict())
	})

	t.Run("room conflict", func(t *testing.T) {
		t.Parallel()
		existing := []domain.Schedule{shift("s1", "luis", "lab-1", 4, 9, 12)}
		cErr := requireKind(t, v.Validate(shift("", "ana", "lab-1", 4, 10, 11), existing), KindRoomConflict)
		assert.Contains(t, cErr.Error(), "s1")
	})
}

func TestValidator_CancelledScheduleDoesNotBlock(t *testing.T) {
	t.Parallel()

	v := newTestValidator()
	existing := shift("s1", "ana", "lab-1", 4, 9, 12)
	candidate := shift("", "ana", "lab-2", 4, 10, 11)

	requireKind(t, v.Validate(candidate, []domain.Schedule{existing}), KindUserConflict)

	existing.Status = domain.StatusCancelled
	assert.NoError(t, v.Validate(candidate, []domain.Schedule{existing}))
}

func TestValidator_PastDateComparedInBogota(t *testing.T) {
	t.Parallel()

	// 04:30 UTC on the 2nd is 23:30 on the 1st in Bogotá.
	now := time.Date(2030, time.March, 2, 4, 30, 0, 0, time.UTC)
	v := NewValidator(WithClock(fixedClock(now)))

	earlier := domain.Schedule{UserID: "ana", RoomID: "lab-1", Start: bogota(1, 22), End: bogota(1, 23)}
	requireKind(t, v.Validate(earlier, nil), KindPastDate)

	later := domain.Schedule{UserID: "ana", RoomID: "lab-1", Start: bogota(2, 0), End: bogota(2, 1)}
	assert.NoError(t, v.Validate(later, nil))
}

func TestValidator_UpdatePolicy(t *testing.T) {
	t.Parallel()

	v := newTestValidator()
	edited := shift("s1", "ana", "lab-1", 1, 0, 14)
	existing := []domain.Schedule{shift("s1", "ana", "lab-1", 1, 6, 7)}

	assert.NoError(t, v.ValidateUpdate(edited, existing, UpdatePolicy{}))
	requireKind(t, v.ValidateUpdate(edited, existing, UpdatePolicy{EnforceMaxDuration: true}), KindDurationExceeded)
	requireKind(t, v.ValidateUpdate(shift("s1", "ana", "lab-1", 1, 6, 7), existing, UpdatePolicy{EnforceNotPast: true}), KindPastDate)

	inverted := shift("s1", "ana", "lab-1", 4, 10, 9)
	requireKind(t, v.ValidateUpdate(inverted, existing, UpdatePolicy{}), KindInvalidRange)

	other := append(existing, shift("s2", "ana", "lab-2", 4, 9, 12))
	requireKind(t, v.ValidateUpdate(shift("s1", "ana", "lab-1", 4, 10, 11), other, UpdatePolicy{}), KindUserConflict)
}

func TestValidator_NoAcceptedDoubleBooking(t *testing.T) {
	t.Parallel()

	v := newTestValidator()
	var accepted []domain.Schedule

	// Try every start hour and length over two days for two users and two rooms.
	users := []string{"ana", "luis"}
	rooms := []string{"lab-1", "lab-2"}
	for day := 4; day <= 5; day++ {
		for from := 6; from < 20; from++ {
			for length := 1; length <= 4; length++ {
				for i := range users {
					candidate := shift("", users[i], rooms[(from+i)%2], day, from, from+length)
					if err := v.Validate(candidate, accepted); err != nil {
						continue
					}
					candidate.ID = candidate.UserID + candidate.Start.String()
					accepted = append(accepted, candidate)
				}
			}
		}
	}

	require.NotEmpty(t, accepted)
	for i := range accepted {
		for j := i + 1; j < len(accepted); j++ {
			a, b := accepted[i], accepted[j]
			if !a.Interval().Overlaps(b.Interval()) {
				continue
			}
			assert.NotEqual(t, a.UserID, b.UserID, "user double-booked: %v / %v", a, b)
			assert.NotEqual(t, a.RoomID, b.RoomID, "room double-booked: %v / %v", a, b)
		}
	}
}

func TestWithMaxDuration(t *testing.T) {
	t.Parallel()

	v := NewValidator(WithClock(fixedClock(bogota(1, 8))), WithMaxDuration(4*time.Hour))
	assert.Equal(t, 4*time.Hour, v.MaxDuration())
	requireKind(t, v.Validate(shift("", "ana", "lab-1", 4, 9, 14), nil), KindDurationExceeded)
}
