package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/notify"
	"github.com/example/monitor-scheduler/internal/reconcile"
	"github.com/example/monitor-scheduler/internal/scheduler"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, clocks and the Bogotá calendar.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Calendar    interval.Calendar
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Calendar:    Calendar(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) defaults(idGen func() string, now func() time.Time) (func() string, func() time.Time) {
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return idGen, now
}

// ScheduleServiceDeps captures dependencies for constructing a schedule service.
type ScheduleServiceDeps struct {
	Schedules    application.ScheduleRepository
	Publisher    notify.Publisher
	UpdatePolicy scheduler.UpdatePolicy
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewScheduleService builds a schedule service using the supplied dependencies
// combined with the factory defaults. The validator's past-date rule reads
// the factory clock.
func (f *ServiceFactory) NewScheduleService(deps ScheduleServiceDeps) *application.ScheduleService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewScheduleService(application.ScheduleServiceDeps{
		Schedules:    deps.Schedules,
		Calendar:     f.Calendar,
		Publisher:    deps.Publisher,
		UpdatePolicy: deps.UpdatePolicy,
		IDGenerator:  idGen,
		Now:          now,
		Logger:       deps.Logger,
	})
}

// EntryServiceDeps captures dependencies for constructing an entry service.
type EntryServiceDeps struct {
	Entries     application.EntryRepository
	Publisher   notify.Publisher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEntryService builds an entry service using the supplied dependencies.
func (f *ServiceFactory) NewEntryService(deps EntryServiceDeps) *application.EntryService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewEntryService(deps.Entries, f.Calendar, deps.Publisher, idGen, now, deps.Logger)
}

// ReportServiceDeps captures dependencies for constructing a report service.
type ReportServiceDeps struct {
	Schedules application.ScheduleRepository
	Entries   application.EntryRepository
	Rooms     application.RoomRepository
	Options   reconcile.Options
	Publisher notify.Publisher
	Logger    *slog.Logger
}

// NewReportService builds a report service using the supplied dependencies.
func (f *ServiceFactory) NewReportService(deps ReportServiceDeps) *application.ReportService {
	engine := reconcile.NewEngine(f.Calendar, deps.Options, deps.Logger)
	return application.NewReportService(deps.Schedules, deps.Entries, deps.Rooms, engine, f.Calendar, deps.Publisher, deps.Logger)
}

// RoomServiceDeps captures dependencies for constructing a room service.
type RoomServiceDeps struct {
	Rooms       application.RoomRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewRoomService builds a room service using the supplied dependencies.
func (f *ServiceFactory) NewRoomService(deps RoomServiceDeps) *application.RoomService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewRoomServiceWithLogger(deps.Rooms, idGen, now, deps.Logger)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users       application.UserRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewUserService builds a user service using the supplied dependencies.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewUserServiceWithLogger(deps.Users, idGen, now, deps.Logger)
}
