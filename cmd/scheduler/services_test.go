package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/report"
	"github.com/example/monitor-scheduler/internal/testfixtures"
)

// TestServicesOverStores runs a cancelled-and-rebooked shift through the
// services and adapters on every store implementation.
func TestServicesOverStores(t *testing.T) {
	for name, open := range testfixtures.StoreConstructors() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			harness := open(t)
			ana := testfixtures.NewUserFixture(testfixtures.WithUserID("ana"))
			lab := testfixtures.NewRoomFixture(testfixtures.WithRoomID("lab-1"))
			harness.Seed(t, []testfixtures.UserFixture{ana}, []testfixtures.RoomFixture{lab})

			clock := testfixtures.NewClock(time.Time{})
			clock.SetLocal(8, 7, 0)
			ids := testfixtures.NewIDGenerator("rec")
			factory := testfixtures.NewServiceFactory(
				testfixtures.WithClock(clock),
				testfixtures.WithIDGenerator(ids),
			)

			schedules := newScheduleRepositoryAdapter(harness)
			entries := newEntryRepositoryAdapter(harness)
			scheduleService := factory.NewScheduleService(testfixtures.ScheduleServiceDeps{Schedules: schedules})
			entryService := factory.NewEntryService(testfixtures.EntryServiceDeps{Entries: entries})
			reportService := factory.NewReportService(testfixtures.ReportServiceDeps{
				Schedules: schedules,
				Entries:   entries,
				Rooms:     newRoomRepositoryAdapter(harness),
			})

			shift := testfixtures.NewScheduleFixture(
				testfixtures.WithScheduleUser("ana"),
				testfixtures.WithScheduleRoom("lab-1"),
				testfixtures.WithScheduleStartEnd(testfixtures.Local(8, 9, 0), testfixtures.Local(8, 17, 0)),
			)

			original, err := scheduleService.CreateSchedule(ctx, shift.Input())
			require.NoError(t, err)
			assert.Equal(t, "rec-1", original.ID)

			_, err = scheduleService.CreateSchedule(ctx, shift.Input())
			assert.Equal(t, "user_conflict", application.ErrorKind(err))

			_, err = scheduleService.SetStatus(ctx, original.ID, domain.StatusCancelled)
			require.NoError(t, err)

			rebooked, err := scheduleService.CreateSchedule(ctx, shift.Input())
			require.NoError(t, err)
			assert.Equal(t, ids.Last(), rebooked.ID)

			clock.SetLocal(8, 9, 0)
			entry, err := entryService.CheckIn(ctx, application.CheckInParams{UserID: "ana", RoomID: "lab-1"})
			require.NoError(t, err)
			assert.True(t, entry.StartedAt.Equal(clock.Now()))

			_, err = entryService.CheckIn(ctx, application.CheckInParams{UserID: " ana ", RoomID: "lab-1"})
			assert.True(t, errors.Is(err, application.ErrEntryOpen), "got %v", err)

			clock.Advance(8 * time.Hour)
			_, err = entryService.CheckOut(ctx, application.CheckOutParams{EntryID: entry.ID})
			require.NoError(t, err)

			day := clock.Today()
			for _, filters := range []report.Filters{
				{From: &day, To: &day},
				{From: &day, To: &day, UserID: "ana"},
			} {
				rep, err := reportService.BuildReport(ctx, application.ReportParams{Filters: filters})
				require.NoError(t, err)
				assert.Equal(t, 8.0, rep.AssignedHours)
				assert.InDelta(t, 8.0, rep.WorkedHours, 1e-9)
				assert.InDelta(t, 100.0, rep.CompliancePercentage, 1e-9)
				assert.Equal(t, map[string]float64{rebooked.ID: 8}, rep.ComplianceHoursBySchedule)
				assert.Zero(t, rep.LateArrivals)
			}
		})
	}
}
