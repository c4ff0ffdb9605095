package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/domain"
)

type capturingUserRepo struct {
	created application.User
}

func (c *capturingUserRepo) CreateUser(ctx context.Context, user application.User) (application.User, error) {
	c.created = user
	return user, nil
}

func (c *capturingUserRepo) GetUser(ctx context.Context, id string) (application.User, error) {
	return application.User{}, application.ErrNotFound
}

func (c *capturingUserRepo) ListUsers(ctx context.Context) ([]application.User, error) {
	return nil, nil
}

// acceptingScheduleRepo accepts any write and holds nothing.
type acceptingScheduleRepo struct{}

func (acceptingScheduleRepo) CreateSchedule(ctx context.Context, s domain.Schedule) (domain.Schedule, error) {
	return s, nil
}

func (acceptingScheduleRepo) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	return domain.Schedule{}, application.ErrNotFound
}

func (acceptingScheduleRepo) UpdateSchedule(ctx context.Context, s domain.Schedule) (domain.Schedule, error) {
	return s, nil
}

func (acceptingScheduleRepo) DeleteSchedule(ctx context.Context, id string) error {
	return nil
}

func (acceptingScheduleRepo) ListSchedules(ctx context.Context, q application.ScheduleQuery) ([]domain.Schedule, error) {
	return nil, nil
}

func TestServiceFactoryNewUserService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingUserRepo{}

	svc := factory.NewUserService(UserServiceDeps{Users: repo})
	user, err := svc.CreateUser(context.Background(), NewUserFixture().Input())
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	if user.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", user.ID)
	}
	if repo.created.ID != user.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.ID)
	}
	if !user.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), user.CreatedAt)
	}
}

func TestServiceFactoryScheduleServiceUsesFactoryClock(t *testing.T) {
	factory := NewServiceFactory()
	svc := factory.NewScheduleService(ScheduleServiceDeps{Schedules: acceptingScheduleRepo{}})

	// One hour before the reference time is in the past for the factory clock.
	past := NewScheduleFixture(WithScheduleStartEnd(Local(8, 7, 0), Local(8, 9, 0)))
	_, err := svc.CreateSchedule(context.Background(), past.Input())
	if application.ErrorKind(err) != "past_date" {
		t.Fatalf("expected past_date, got %v", err)
	}

	factory.Clock.Set(Local(8, 6, 0))
	if _, err := svc.CreateSchedule(context.Background(), past.Input()); err != nil {
		t.Fatalf("expected shift to be accepted after moving the clock back, got %v", err)
	}
}

func TestFixturesConvertConsistently(t *testing.T) {
	schedule := NewScheduleFixture(WithScheduleNotes("apertura"))
	if got := schedule.Persistence(); got.Notes == nil || *got.Notes != "apertura" || got.Status != "active" {
		t.Fatalf("unexpected persistence schedule %+v", got)
	}
	if got := schedule.Domain(); !got.IsActive() || got.Notes != "apertura" {
		t.Fatalf("unexpected domain schedule %+v", got)
	}

	open := NewEntryFixture(WithEntryOpen(Local(8, 8, 0)))
	if !open.Domain().IsOpen() || open.Persistence().EndedAt != nil {
		t.Fatalf("expected open entry, got %+v", open)
	}

	closed := NewEntryFixture()
	entry := closed.Domain()
	*entry.EndedAt = entry.EndedAt.Add(time.Hour)
	if closed.EndedAt.Equal(*entry.EndedAt) {
		t.Fatalf("expected conversion to copy the exit time")
	}
}
