package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/config"
	httptransport "github.com/example/monitor-scheduler/internal/http"
	"github.com/example/monitor-scheduler/internal/jobs"
	"github.com/example/monitor-scheduler/internal/logging"
	"github.com/example/monitor-scheduler/internal/notify"
	"github.com/example/monitor-scheduler/internal/persistence"
	"github.com/example/monitor-scheduler/internal/persistence/memory"
	"github.com/example/monitor-scheduler/internal/persistence/sqlite"
	"github.com/example/monitor-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/monitor-scheduler/internal/reconcile"
	"github.com/example/monitor-scheduler/internal/recurrence"
	"github.com/example/monitor-scheduler/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	if cfg.ReportCron != "" {
		if err := app.reportJob.Start(cfg.ReportCron); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Closing the bus first ends websocket streams so Shutdown is not held open.
		app.bus.Close()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("monitor API listening",
		"addr", server.Addr,
		"zone", cfg.Calendar.Location().String(),
		"memory_store", cfg.UsesMemoryStore(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// app holds the wired process so it can be torn down in order.
type app struct {
	handler   http.Handler
	store     persistence.Store
	bus       *notify.Bus
	reportJob *jobs.ReportJob
	logger    *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	cal := cfg.Calendar
	idGenerator := uuid.NewString
	now := time.Now

	bus := notify.NewBus(notify.WithLogger(logger))

	userRepo := newUserRepositoryAdapter(store)
	roomRepo := newRoomRepositoryAdapter(store)
	scheduleRepo := newScheduleRepositoryAdapter(store)
	entryRepo := newEntryRepositoryAdapter(store)

	validator := scheduler.NewValidator(
		scheduler.WithCalendar(cal),
		scheduler.WithMaxDuration(cfg.MaxShift),
	)
	expander := recurrence.NewEngine(cal, recurrence.WithOvernightPolicy(cfg.OvernightPolicy))
	engine := reconcile.NewEngine(cal, cfg.ReconcileOptions(), logger)

	scheduleService := application.NewScheduleService(application.ScheduleServiceDeps{
		Schedules:    scheduleRepo,
		Validator:    validator,
		Expander:     expander,
		Calendar:     cal,
		Publisher:    bus,
		UpdatePolicy: cfg.UpdatePolicy,
		IDGenerator:  idGenerator,
		Now:          now,
		Logger:       logger,
	})
	entryService := application.NewEntryService(entryRepo, cal, bus, idGenerator, now, logger)
	reportService := application.NewReportService(scheduleRepo, entryRepo, roomRepo, engine, cal, bus, logger)
	roomService := application.NewRoomServiceWithLogger(roomRepo, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(userRepo, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Users:     httptransport.NewUserHandler(userService, cal, logger),
		Rooms:     httptransport.NewRoomHandler(roomService, cal, logger),
		Schedules: httptransport.NewScheduleHandler(scheduleService, cal, logger),
		Entries:   httptransport.NewEntryHandler(entryService, cal, logger),
		Reports:   httptransport.NewReportHandler(reportService, cal, logger),
		Events:    httptransport.NewEventsHandler(bus, cal, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
		},
	})

	return &app{
		handler:   router,
		store:     store,
		bus:       bus,
		reportJob: jobs.NewReportJob(reportService, cal, logger),
		logger:    logger,
	}, nil
}

// Close stops the report job, the bus and the store, in that order.
func (a *app) Close(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	a.reportJob.Stop(stopCtx)
	a.bus.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	if cfg.UsesMemoryStore() {
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nil
	}
	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage %q: %w", cfg.SQLiteDSN, err)
	}
	return store, nil
}
