// Package jobs runs periodic background work on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/report"
)

// DefaultRunTimeout bounds a single report run.
const DefaultRunTimeout = 2 * time.Minute

// ReportBuilder is the part of the report service the job needs.
type ReportBuilder interface {
	BuildReport(ctx context.Context, params application.ReportParams) (report.Report, error)
}

// ReportJob builds the previous day's attendance report on a cron schedule
// and logs its summary. Building the report publishes
// reconciliation.completed on the event bus.
type ReportJob struct {
	reports  ReportBuilder
	calendar interval.Calendar
	now      func() time.Time
	timeout  time.Duration
	logger   *slog.Logger

	cron *cron.Cron
}

// Option configures a ReportJob.
type Option func(*ReportJob)

// WithClock overrides the time source used to pick the reported day.
func WithClock(now func() time.Time) Option {
	return func(j *ReportJob) {
		if now != nil {
			j.now = now
		}
	}
}

// WithTimeout overrides DefaultRunTimeout.
func WithTimeout(d time.Duration) Option {
	return func(j *ReportJob) {
		if d > 0 {
			j.timeout = d
		}
	}
}

// NewReportJob wires the job. Schedules are evaluated in the calendar's zone.
func NewReportJob(reports ReportBuilder, cal interval.Calendar, logger *slog.Logger, opts ...Option) *ReportJob {
	if logger == nil {
		logger = slog.Default()
	}
	j := &ReportJob{
		reports:  reports,
		calendar: cal,
		now:      time.Now,
		timeout:  DefaultRunTimeout,
		logger:   logger.With("component", "report_job"),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.cron = cron.New(
		cron.WithLocation(cal.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return j
}

// Start registers spec (five field cron syntax) and starts the scheduler.
func (j *ReportJob) Start(spec string) error {
	if j == nil || j.reports == nil {
		return errors.New("jobs: report service not configured")
	}
	if _, err := j.cron.AddFunc(spec, func() { _ = j.Run(context.Background()) }); err != nil {
		return fmt.Errorf("jobs: schedule %q: %w", spec, err)
	}
	j.cron.Start()
	j.logger.Info("report job scheduled", "spec", spec, "zone", j.calendar.Location().String())
	return nil
}

// Stop halts the scheduler and waits for a running report, or for ctx.
func (j *ReportJob) Stop(ctx context.Context) {
	if j == nil {
		return
	}
	done := j.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		j.logger.Warn("report job still running at shutdown")
	}
}

// Run builds the report for the local day before now.
func (j *ReportJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	day := j.calendar.DateOf(j.now()).AddDays(-1)
	logger := j.logger.With("day", day.String())

	rep, err := j.reports.BuildReport(ctx, application.ReportParams{
		Filters: report.Filters{From: &day, To: &day},
	})
	if err != nil {
		logger.Error("daily report failed", "error", err)
		return err
	}

	logger.Info("daily report built",
		"schedules", rep.Summary.Schedules,
		"entries", rep.Summary.Entries,
		"late_arrivals", rep.LateArrivals,
		"assigned_hours", rep.AssignedHours,
		"worked_hours", rep.WorkedHours,
		"compliance_percentage", rep.CompliancePercentage,
	)
	return nil
}
