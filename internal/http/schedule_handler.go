package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/ingest"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/scheduler"
)

type scheduleService interface {
	CreateSchedule(ctx context.Context, input application.ScheduleInput) (domain.Schedule, error)
	UpdateSchedule(ctx context.Context, id string, input application.ScheduleInput) (domain.Schedule, error)
	SetStatus(ctx context.Context, id string, status domain.ScheduleStatus) (domain.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	ListSchedules(ctx context.Context, filter application.ScheduleFilter) ([]domain.Schedule, []application.ConflictWarning, error)
	GenerateRecurring(ctx context.Context, params application.GenerateRecurringParams) (application.GenerateRecurringResult, error)
}

type ScheduleHandler struct {
	service   scheduleService
	calendar  interval.Calendar
	parser    *ingest.Normalizer
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, cal interval.Calendar, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{
		service:   service,
		calendar:  cal,
		parser:    ingest.NewNormalizer(cal),
		responder: newResponder(base, cal),
		logger:    base,
	}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.rejectRequest(r.Context(), w, "Create", err)
		return
	}
	input, err := req.toInput(h.parser, "")
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	schedule, err := h.service.CreateSchedule(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{Schedule: toScheduleDTO(h.calendar, schedule)})
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.rejectRequest(r.Context(), w, "Update", err)
		return
	}
	input, err := req.toInput(h.parser, "")
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	schedule, err := h.service.UpdateSchedule(r.Context(), scheduleID, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(h.calendar, schedule)})
}

func (h *ScheduleHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.rejectRequest(r.Context(), w, "SetStatus", err)
		return
	}

	schedule, err := h.service.SetStatus(r.Context(), scheduleID, domain.ScheduleStatus(req.Status))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(h.calendar, schedule)})
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	if err := h.service.DeleteSchedule(r.Context(), scheduleID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	values := r.URL.Query()
	errs := fieldErrors{}
	filter := application.ScheduleFilter{
		UserID:   strings.TrimSpace(values.Get("user_id")),
		RoomID:   strings.TrimSpace(values.Get("room_id")),
		Statuses: errs.statuses("status", values.Get("status")),
	}
	filter.From, filter.To = errs.dateRange(values)
	if err := errs.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	schedules, warnings, err := h.service.ListSchedules(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSchedulesResponse{
		Schedules: toScheduleDTOs(h.calendar, schedules),
		Warnings:  toWarningDTOs(warnings),
	})
}

// GenerateRecurring expands a template into weekly instances. Partial
// success is still a 201; rejected dates are listed alongside.
func (h *ScheduleHandler) GenerateRecurring(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		h.rejectRequest(r.Context(), w, "GenerateRecurring", err)
		return
	}
	params, err := req.toParams(h.parser)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "GenerateRecurring", "from", req.From, "to", req.To)
	result, err := h.service.GenerateRecurring(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusCreated
	if len(result.Created) == 0 {
		status = http.StatusOK
	}
	if len(result.Rejected) > 0 {
		logger.InfoContext(r.Context(), "recurring generation had rejections", "rejected", len(result.Rejected))
	}
	h.responder.writeJSON(r.Context(), w, status, h.toRecurringResponse(result))
}

func (h *ScheduleHandler) rejectRequest(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	if errors.Is(err, errBadRequestBody) {
		h.log(ctx, operation, "error_kind", "bad_request").WarnContext(ctx, "failed to decode schedule request")
	}
	h.responder.writeDecodeError(ctx, w, err)
}

type scheduleRequest struct {
	UserID string `json:"user_id" validate:"required"`
	RoomID string `json:"room_id" validate:"required"`
	Start  string `json:"start" validate:"required"`
	End    string `json:"end" validate:"required"`
	Notes  string `json:"notes" validate:"max=500"`
}

func (r scheduleRequest) toInput(parser *ingest.Normalizer, prefix string) (application.ScheduleInput, error) {
	errs := fieldErrors{}
	input := application.ScheduleInput{
		UserID: strings.TrimSpace(r.UserID),
		RoomID: strings.TrimSpace(r.RoomID),
		Start:  errs.instant(parser, prefix+"start", r.Start),
		End:    errs.instant(parser, prefix+"end", r.End),
		Notes:  strings.TrimSpace(r.Notes),
	}
	return input, errs.err()
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active completed cancelled"`
}

type recurringRequest struct {
	Template scheduleRequest `json:"template"`
	From     string          `json:"from" validate:"required,datetime=2006-01-02"`
	To       string          `json:"to" validate:"required,datetime=2006-01-02"`
}

func (r recurringRequest) toParams(parser *ingest.Normalizer) (application.GenerateRecurringParams, error) {
	template, err := r.Template.toInput(parser, "template.")
	if err != nil {
		return application.GenerateRecurringParams{}, err
	}
	errs := fieldErrors{}
	from := errs.date("from", r.From)
	to := errs.date("to", r.To)
	if err := errs.err(); err != nil {
		return application.GenerateRecurringParams{}, err
	}
	return application.GenerateRecurringParams{Template: template, From: *from, To: *to}, nil
}

type scheduleResponse struct {
	Schedule scheduleDTO `json:"schedule"`
}

type listSchedulesResponse struct {
	Schedules []scheduleDTO        `json:"schedules"`
	Warnings  []conflictWarningDTO `json:"warnings,omitempty"`
}

type recurringResponse struct {
	CreatedCount int            `json:"created_count"`
	Created      []scheduleDTO  `json:"created"`
	Rejected     []rejectionDTO `json:"rejected,omitempty"`
}

type scheduleDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	RoomID    string `json:"room_id"`
	UserName  string `json:"user_name,omitempty"`
	RoomName  string `json:"room_name,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Status    string `json:"status"`
	Recurring bool   `json:"recurring"`
	Notes     string `json:"notes,omitempty"`
}

func toScheduleDTO(cal interval.Calendar, schedule domain.Schedule) scheduleDTO {
	status := schedule.Status
	if status == "" {
		status = domain.StatusActive
	}
	return scheduleDTO{
		ID:        schedule.ID,
		UserID:    schedule.UserID,
		RoomID:    schedule.RoomID,
		UserName:  schedule.UserName,
		RoomName:  schedule.RoomName,
		Start:     formatLocal(cal, schedule.Start),
		End:       formatLocal(cal, schedule.End),
		Status:    string(status),
		Recurring: schedule.Recurring,
		Notes:     schedule.Notes,
	}
}

func toScheduleDTOs(cal interval.Calendar, schedules []domain.Schedule) []scheduleDTO {
	out := make([]scheduleDTO, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, toScheduleDTO(cal, schedule))
	}
	return out
}

type conflictWarningDTO struct {
	ScheduleID    string `json:"schedule_id"`
	ConflictsWith string `json:"conflicts_with"`
	Type          string `json:"type"`
	UserID        string `json:"user_id,omitempty"`
	RoomID        string `json:"room_id,omitempty"`
}

func toWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}

	out := make([]conflictWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, conflictWarningDTO{
			ScheduleID:    warning.ScheduleID,
			ConflictsWith: warning.ConflictsWith,
			Type:          warning.Type,
			UserID:        warning.UserID,
			RoomID:        warning.RoomID,
		})
	}
	return out
}

type rejectionDTO struct {
	Date      string `json:"date"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (h *ScheduleHandler) toRecurringResponse(result application.GenerateRecurringResult) recurringResponse {
	resp := recurringResponse{
		CreatedCount: len(result.Created),
		Created:      toScheduleDTOs(h.calendar, result.Created),
	}
	for _, rejection := range result.Rejected {
		message := localizedStatusMessage(http.StatusConflict)
		var cErr *scheduler.ConflictError
		switch {
		case errors.As(rejection.Err, &cErr):
			message = conflictMessage(cErr, h.calendar)
		case errors.Is(rejection.Err, application.ErrScheduleConflict):
			message = "Otro turno ocupó ese horario mientras se guardaba."
		}
		resp.Rejected = append(resp.Rejected, rejectionDTO{
			Date:      rejection.Date.String(),
			ErrorCode: rejection.Kind,
			Message:   message,
		})
	}
	return resp
}
