package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/notify"
	"github.com/example/monitor-scheduler/internal/recurrence"
	"github.com/example/monitor-scheduler/internal/scheduler"
)

// ScheduleServiceDeps captures the collaborators of a ScheduleService.
type ScheduleServiceDeps struct {
	Schedules    ScheduleRepository
	Validator    *scheduler.Validator
	Expander     *recurrence.Engine
	Calendar     interval.Calendar
	Publisher    notify.Publisher
	UpdatePolicy scheduler.UpdatePolicy
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// ScheduleService orchestrates validation and persistence for schedule operations.
type ScheduleService struct {
	schedules   ScheduleRepository
	validator   *scheduler.Validator
	expander    *recurrence.Engine
	calendar    interval.Calendar
	publisher   notify.Publisher
	policy      scheduler.UpdatePolicy
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	warnings    *warningCache
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(deps ScheduleServiceDeps) *ScheduleService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Validator == nil {
		deps.Validator = scheduler.NewValidator(
			scheduler.WithCalendar(deps.Calendar),
			scheduler.WithClock(interval.ClockFunc(deps.Now)),
		)
	}
	if deps.Expander == nil {
		deps.Expander = recurrence.NewEngine(deps.Calendar)
	}
	if deps.Publisher == nil {
		deps.Publisher = notify.Discard{}
	}
	return &ScheduleService{
		schedules:   deps.Schedules,
		validator:   deps.Validator,
		expander:    deps.Expander,
		calendar:    deps.Calendar,
		publisher:   deps.Publisher,
		policy:      deps.UpdatePolicy,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
		warnings:    newWarningCache(30*time.Second, 128, deps.Now),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// CreateSchedule validates the candidate against a fresh snapshot of the
// schedules it could collide with, then stores it. The store repeats the
// overlap check inside its write.
func (s *ScheduleService) CreateSchedule(ctx context.Context, input ScheduleInput) (schedule domain.Schedule, err error) {
	if s == nil || s.schedules == nil {
		return domain.Schedule{}, fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "CreateSchedule", "user_id", input.UserID, "room_id", input.RoomID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create schedule", "schedule created", "schedule_id", schedule.ID)
	}()

	if vErr := validateScheduleInput(input); vErr.HasErrors() {
		return domain.Schedule{}, vErr
	}

	candidate := domain.Schedule{
		ID:     s.idGenerator(),
		UserID: strings.TrimSpace(input.UserID),
		RoomID: strings.TrimSpace(input.RoomID),
		Start:  input.Start,
		End:    input.End,
		Status: domain.StatusActive,
		Notes:  strings.TrimSpace(input.Notes),
	}

	existing, err := s.snapshot(ctx, candidate.Start, candidate.End)
	if err != nil {
		return domain.Schedule{}, err
	}
	if err := s.validator.Validate(candidate, existing); err != nil {
		return domain.Schedule{}, err
	}

	persisted, err := s.schedules.CreateSchedule(ctx, candidate)
	if err != nil {
		return domain.Schedule{}, mapRepoError(err)
	}

	s.warnings.Invalidate()
	s.publisher.Publish(ctx, notify.TopicScheduleCreated, persisted)
	return persisted, nil
}

// UpdateSchedule replaces the window, user, room and notes of a schedule.
// The duration ceiling and past-date rules apply only when the configured
// UpdatePolicy enables them.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, id string, input ScheduleInput) (schedule domain.Schedule, err error) {
	if s == nil || s.schedules == nil {
		return domain.Schedule{}, fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateSchedule", "schedule_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update schedule", "schedule updated")
	}()

	if vErr := validateScheduleInput(input); vErr.HasErrors() {
		return domain.Schedule{}, vErr
	}

	current, err := s.schedules.GetSchedule(ctx, id)
	if err != nil {
		return domain.Schedule{}, mapRepoError(err)
	}

	candidate := current
	candidate.UserID = strings.TrimSpace(input.UserID)
	candidate.RoomID = strings.TrimSpace(input.RoomID)
	candidate.Start = input.Start
	candidate.End = input.End
	candidate.Notes = strings.TrimSpace(input.Notes)

	if err := s.validateUpdate(ctx, candidate); err != nil {
		return domain.Schedule{}, err
	}

	persisted, err := s.schedules.UpdateSchedule(ctx, candidate)
	if err != nil {
		return domain.Schedule{}, mapRepoError(err)
	}

	s.warnings.Invalidate()
	s.publisher.Publish(ctx, notify.TopicScheduleUpdated, persisted)
	return persisted, nil
}

// SetStatus marks a schedule completed or cancelled, or reactivates it.
// Reactivation re-runs the double-booking checks.
func (s *ScheduleService) SetStatus(ctx context.Context, id string, status domain.ScheduleStatus) (schedule domain.Schedule, err error) {
	if s == nil || s.schedules == nil {
		return domain.Schedule{}, fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "SetStatus", "schedule_id", id, "status", string(status))
	defer func() {
		logOutcome(ctx, logger, err, "failed to change schedule status", "schedule status changed")
	}()

	if !status.Valid() {
		return domain.Schedule{}, fieldError("status", "estado desconocido")
	}

	current, err := s.schedules.GetSchedule(ctx, id)
	if err != nil {
		return domain.Schedule{}, mapRepoError(err)
	}
	if current.Status == status {
		return current, nil
	}

	candidate := current
	candidate.Status = status
	if status == domain.StatusActive {
		if err := s.validateUpdate(ctx, candidate); err != nil {
			return domain.Schedule{}, err
		}
	}

	persisted, err := s.schedules.UpdateSchedule(ctx, candidate)
	if err != nil {
		return domain.Schedule{}, mapRepoError(err)
	}

	s.warnings.Invalidate()
	s.publisher.Publish(ctx, notify.TopicScheduleUpdated, persisted)
	return persisted, nil
}

// DeleteSchedule removes a schedule.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id string) (err error) {
	if s == nil || s.schedules == nil {
		return fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSchedule", "schedule_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete schedule", "schedule deleted")
	}()

	if err := s.schedules.DeleteSchedule(ctx, id); err != nil {
		return mapRepoError(err)
	}

	s.warnings.Invalidate()
	s.publisher.Publish(ctx, notify.TopicScheduleDeleted, id)
	return nil
}

// GetSchedule returns one schedule.
func (s *ScheduleService) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	if s == nil || s.schedules == nil {
		return domain.Schedule{}, fmt.Errorf("schedule repository not configured")
	}
	schedule, err := s.schedules.GetSchedule(ctx, id)
	if err != nil {
		return domain.Schedule{}, mapRepoError(err)
	}
	return schedule, nil
}

// ListSchedules returns the schedules matching filter ordered by start, plus
// warnings for any pairs among them that double-book a monitor or room.
func (s *ScheduleService) ListSchedules(ctx context.Context, filter ScheduleFilter) ([]domain.Schedule, []ConflictWarning, error) {
	if s == nil || s.schedules == nil {
		return nil, nil, fmt.Errorf("schedule repository not configured")
	}

	query := ScheduleQuery{UserID: filter.UserID, RoomID: filter.RoomID, Statuses: filter.Statuses}
	if filter.From != nil {
		from := s.calendar.StartOfDay(*filter.From)
		query.From = &from
	}
	if filter.To != nil {
		to := s.calendar.EndOfDay(*filter.To)
		query.To = &to
	}

	schedules, err := s.schedules.ListSchedules(ctx, query)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, mapRepoError(err)
	}

	// The store selects by intersection; the listing is keyed on start date.
	filtered := make([]domain.Schedule, 0, len(schedules))
	for _, sched := range schedules {
		day := s.calendar.DateOf(sched.Start)
		if filter.From != nil && day.Before(*filter.From) {
			continue
		}
		if filter.To != nil && day.After(*filter.To) {
			continue
		}
		filtered = append(filtered, sched)
	}

	key := buildWarningCacheKey(filter)
	if cached, ok := s.warnings.Get(key); ok {
		return filtered, cached, nil
	}
	warnings := detectListConflicts(filtered)
	s.warnings.Store(key, warnings)
	return filtered, warnings, nil
}

// GenerateRecurring expands a template into one instance per matching weekday
// of the inclusive range and creates them one by one. Each instance is validated
// against the stored schedules plus the instances accepted before it.
// Rejected dates are reported and accepted ones are kept.
func (s *ScheduleService) GenerateRecurring(ctx context.Context, params GenerateRecurringParams) (result GenerateRecurringResult, err error) {
	if s == nil || s.schedules == nil {
		return GenerateRecurringResult{}, fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "GenerateRecurring",
		"user_id", params.Template.UserID,
		"room_id", params.Template.RoomID,
		"from", params.From.String(),
		"to", params.To.String(),
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to generate recurring schedules", "recurring schedules generated",
			"created", len(result.Created), "rejected", len(result.Rejected))
	}()

	vErr := validateScheduleInput(params.Template)
	vErr.merge(validateRecurringRange(params.From, params.To))
	if vErr.HasErrors() {
		return GenerateRecurringResult{}, vErr
	}

	template := domain.Schedule{
		UserID: strings.TrimSpace(params.Template.UserID),
		RoomID: strings.TrimSpace(params.Template.RoomID),
		Start:  params.Template.Start,
		End:    params.Template.End,
		Status: domain.StatusActive,
		Notes:  strings.TrimSpace(params.Template.Notes),
	}
	instances, err := s.expander.Expand(template, params.From, params.To)
	if err != nil {
		return GenerateRecurringResult{}, expansionError(err)
	}
	if len(instances) == 0 {
		return GenerateRecurringResult{}, nil
	}

	known, err := s.snapshot(ctx, instances[0].Start, instances[len(instances)-1].End)
	if err != nil {
		return GenerateRecurringResult{}, err
	}

	for _, instance := range instances {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		instance.ID = s.idGenerator()
		day := s.calendar.DateOf(instance.Start)

		if vErr := s.validator.Validate(instance, known); vErr != nil {
			result.Rejected = append(result.Rejected, Rejection{Date: day, Kind: ErrorKind(vErr), Err: vErr})
			continue
		}

		persisted, err := s.schedules.CreateSchedule(ctx, instance)
		if err != nil {
			mapped := mapRepoError(err)
			if errors.Is(mapped, ErrScheduleConflict) {
				result.Rejected = append(result.Rejected, Rejection{Date: day, Kind: ErrorKind(mapped), Err: mapped})
				continue
			}
			s.afterGenerate(ctx, result)
			return result, mapped
		}

		known = append(known, persisted)
		result.Created = append(result.Created, persisted)
	}

	s.afterGenerate(ctx, result)
	return result, nil
}

func (s *ScheduleService) afterGenerate(ctx context.Context, result GenerateRecurringResult) {
	if len(result.Created) == 0 {
		return
	}
	s.warnings.Invalidate()
	s.publisher.Publish(ctx, notify.TopicSchedulesGenerated, domain.CloneSchedules(result.Created))
}

func (s *ScheduleService) validateUpdate(ctx context.Context, candidate domain.Schedule) error {
	existing, err := s.snapshot(ctx, candidate.Start, candidate.End)
	if err != nil {
		return err
	}
	return s.validator.ValidateUpdate(candidate, existing, s.policy)
}

// snapshot loads the active schedules that intersect [start, end).
func (s *ScheduleService) snapshot(ctx context.Context, start, end time.Time) ([]domain.Schedule, error) {
	if !end.After(start) {
		return nil, nil
	}
	existing, err := s.schedules.ListSchedules(ctx, ScheduleQuery{From: &start, To: &end, ActiveOnly: true})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, mapRepoError(err)
	}
	return existing, nil
}

func validateScheduleInput(input ScheduleInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.UserID) == "" {
		vErr.add("user_id", "el monitor es obligatorio")
	}
	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("room_id", "la sala es obligatoria")
	}
	if input.Start.IsZero() {
		vErr.add("start", "la hora de inicio es obligatoria")
	}
	if input.End.IsZero() {
		vErr.add("end", "la hora de fin es obligatoria")
	}
	return vErr
}

func validateRecurringRange(from, to interval.Date) *ValidationError {
	switch {
	case from.IsZero() || to.IsZero():
		return fieldError("range", "el rango de fechas es obligatorio")
	case to.Before(from):
		return fieldError("range", "la fecha final es anterior a la inicial")
	}
	return nil
}

func expansionError(err error) error {
	switch {
	case errors.Is(err, recurrence.ErrInvalidWindow):
		return fieldError("range", "la fecha final es anterior a la inicial")
	case errors.Is(err, recurrence.ErrWindowTooLarge):
		return fieldError("range", "el rango de fechas es demasiado amplio")
	case errors.Is(err, recurrence.ErrInvalidDuration):
		return fieldError("end", "la hora de fin debe ser posterior a la de inicio")
	case errors.Is(err, recurrence.ErrOvernightShift):
		return fieldError("end", "el turno no puede cruzar la medianoche")
	}
	return err
}

func detectListConflicts(schedules []domain.Schedule) []ConflictWarning {
	if len(schedules) <= 1 {
		return nil
	}

	var warnings []ConflictWarning
	for i, candidate := range schedules {
		if !candidate.IsActive() {
			continue
		}
		for _, conflict := range scheduler.DetectConflicts(schedules[i+1:], candidate) {
			warning := ConflictWarning{
				ScheduleID:    candidate.ID,
				ConflictsWith: conflict.With.ID,
				Type:          string(conflict.Type),
			}
			switch conflict.Type {
			case scheduler.ConflictTypeUser:
				warning.UserID = candidate.UserID
			case scheduler.ConflictTypeRoom:
				warning.RoomID = candidate.RoomID
			}
			warnings = append(warnings, warning)
		}
	}
	return warnings
}
