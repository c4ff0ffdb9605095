package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/notify"
	"github.com/example/monitor-scheduler/internal/reconcile"
	"github.com/example/monitor-scheduler/internal/report"
)

// ReportService builds attendance reports. Every call reconciles from the
// current records; nothing is cached between calls.
type ReportService struct {
	schedules ScheduleRepository
	entries   EntryRepository
	rooms     RoomRepository
	engine    *reconcile.Engine
	calendar  interval.Calendar
	publisher notify.Publisher
	logger    *slog.Logger
}

// NewReportService constructs a report service. A nil engine uses the
// default thresholds.
func NewReportService(schedules ScheduleRepository, entries EntryRepository, rooms RoomRepository, engine *reconcile.Engine, cal interval.Calendar, publisher notify.Publisher, logger *slog.Logger) *ReportService {
	logger = defaultLogger(logger)
	if engine == nil {
		engine = reconcile.NewEngine(cal, reconcile.Options{}, logger)
	}
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &ReportService{
		schedules: schedules,
		entries:   entries,
		rooms:     rooms,
		engine:    engine,
		calendar:  cal,
		publisher: publisher,
		logger:    logger,
	}
}

// BuildReport fetches the window's schedules, entries and rooms concurrently,
// narrows them with the report filters, reconciles and aggregates.
func (s *ReportService) BuildReport(ctx context.Context, params ReportParams) (rep report.Report, err error) {
	if s == nil || s.schedules == nil || s.entries == nil {
		return report.Report{}, fmt.Errorf("report repositories not configured")
	}

	filters := params.Filters
	logger := serviceLogger(ctx, s.logger, "ReportService", "BuildReport",
		"room_id", filters.RoomID,
		"user_id", filters.UserID,
		"approximate", params.Approximate,
	)
	started := time.Now()
	defer func() {
		logOutcome(ctx, logger, err, "failed to build report", "report built",
			"worked_hours", rep.WorkedHours,
			"late_arrivals", rep.LateArrivals,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}()

	if filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		return report.Report{}, fieldError("to", "la fecha final es anterior a la inicial")
	}

	var from, to *time.Time
	if filters.From != nil {
		t := s.calendar.StartOfDay(*filters.From)
		from = &t
	}
	if filters.To != nil {
		t := s.calendar.EndOfDay(*filters.To)
		to = &t
	}

	var (
		schedules []domain.Schedule
		entries   []domain.RoomEntry
		roomNames map[string]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.schedules.ListSchedules(gctx, ScheduleQuery{
			UserID: filters.UserID,
			RoomID: filters.RoomID,
			From:   from,
			To:     to,
		})
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("list schedules: %w", mapRepoError(err))
		}
		schedules = list
		return nil
	})
	g.Go(func() error {
		list, err := s.entries.ListEntries(gctx, EntryQuery{
			UserID: filters.UserID,
			RoomID: filters.RoomID,
			From:   from,
			To:     to,
		})
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("list entries: %w", mapRepoError(err))
		}
		entries = list
		return nil
	})
	if s.rooms != nil {
		g.Go(func() error {
			rooms, err := s.rooms.ListRooms(gctx)
			if err != nil {
				return fmt.Errorf("list rooms: %w", mapRepoError(err))
			}
			roomNames = roomNameIndex(rooms)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report.Report{}, err
	}

	schedules, entries = report.Filter(s.calendar, schedules, entries, filters)

	input := report.Input{
		Schedules: schedules,
		Entries:   entries,
		RoomNames: roomNames,
		Filters:   filters,
		Calendar:  s.calendar,
	}
	if !params.Approximate {
		result := s.engine.Reconcile(ctx, schedules, entries, filters.MatchMode())
		input.Reconciliation = &result
	}

	rep = report.Aggregate(input)
	s.publisher.Publish(ctx, notify.TopicReconciliationCompleted, summarize(rep))
	return rep, nil
}

func summarize(rep report.Report) ReconciliationSummary {
	summary := ReconciliationSummary{
		RoomID:        rep.Filters.RoomID,
		UserID:        rep.Filters.UserID,
		AssignedHours: rep.AssignedHours,
		WorkedHours:   rep.WorkedHours,
		LateArrivals:  rep.LateArrivals,
		Approximate:   rep.Approximate,
	}
	if rep.Filters.From != nil {
		summary.From = rep.Filters.From.String()
	}
	if rep.Filters.To != nil {
		summary.To = rep.Filters.To.String()
	}
	return summary
}
