package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/logging"
	"github.com/example/monitor-scheduler/internal/scheduler"
)

var (
	errBadRequestBody    = errors.New("El formato de la solicitud no es válido.")
	errInvalidScheduleID = errors.New("El identificador del turno no es válido.")
	errInvalidEntryID    = errors.New("El identificador del registro no es válido.")
)

type responder struct {
	logger   *slog.Logger
	calendar interval.Calendar
}

func newResponder(logger *slog.Logger, cal interval.Calendar) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger, calendar: cal}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeDecodeError answers a decodeJSON failure: malformed bodies are a 400,
// tag failures go through the usual validation mapping.
func (r responder) writeDecodeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, errBadRequestBody) {
		r.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	r.handleServiceError(ctx, w, err)
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	// Every schedule rule rejection, malformed window included, is a 409
	// carrying the rule kind so clients can branch on error_code.
	var cErr *scheduler.ConflictError
	if errors.As(err, &cErr) {
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: string(cErr.Kind),
			Message:   conflictMessage(cErr, r.calendar),
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: "not_found", Message: "No se encontró el recurso solicitado."})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "already_exists", Message: "Ya existe un registro con esos datos."})
	case errors.Is(err, application.ErrScheduleConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "schedule_conflict", Message: "Otro turno ocupó ese horario mientras se guardaba. Actualice e intente de nuevo."})
	case errors.Is(err, application.ErrEntryOpen):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "entry_open", Message: "El monitor ya tiene una entrada abierta."})
	case errors.Is(err, application.ErrEntryClosed):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "entry_closed", Message: "El registro ya tiene salida."})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{ErrorCode: "canceled", Message: "La solicitud fue cancelada."})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				ErrorCode: "validation",
				Message:   "Los datos ingresados no son válidos.",
				Errors:    vErr.FieldErrors,
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Ocurrió un error interno en el servidor."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func conflictMessage(err *scheduler.ConflictError, cal interval.Calendar) string {
	switch err.Kind {
	case scheduler.KindInvalidRange:
		return "La hora de salida debe ser posterior a la hora de entrada."
	case scheduler.KindDurationExceeded:
		return fmt.Sprintf("El turno no puede durar más de %s.", formatHours(err.MaxDuration.Hours()))
	case scheduler.KindPastDate:
		return "No se pueden programar turnos en el pasado."
	case scheduler.KindUserConflict:
		return "El monitor ya tiene un turno asignado en ese horario" + conflictWindow(err, cal) + "."
	case scheduler.KindRoomConflict:
		return "La sala ya tiene un turno asignado en ese horario" + conflictWindow(err, cal) + "."
	default:
		return "El turno no es válido."
	}
}

func conflictWindow(err *scheduler.ConflictError, cal interval.Calendar) string {
	if err.Conflicting == nil {
		return ""
	}
	return fmt.Sprintf(" (%s a %s)",
		cal.Local(err.Conflicting.Start).Format("2006-01-02 15:04"),
		cal.Local(err.Conflicting.End).Format("15:04"))
}

func formatHours(hours float64) string {
	if hours == float64(int(hours)) {
		return fmt.Sprintf("%d horas", int(hours))
	}
	return fmt.Sprintf("%.1f horas", hours)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "La solicitud no es válida."
	case http.StatusNotFound:
		return "No se encontró el recurso solicitado."
	case http.StatusConflict:
		return "La solicitud entra en conflicto con el estado actual."
	case http.StatusUnprocessableEntity:
		return "Los datos ingresados no son válidos."
	default:
		return "Ocurrió un error interno en el servidor."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
