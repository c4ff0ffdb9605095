package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/ingest"
	"github.com/example/monitor-scheduler/internal/interval"
)

// maxImportBody bounds a single upstream attendance import.
const maxImportBody = 8 << 20

type entryService interface {
	CheckIn(ctx context.Context, params application.CheckInParams) (domain.RoomEntry, error)
	CheckOut(ctx context.Context, params application.CheckOutParams) (domain.RoomEntry, error)
	ListEntries(ctx context.Context, filter application.EntryFilter) ([]domain.RoomEntry, error)
	Import(ctx context.Context, payload []byte) (application.ImportResult, error)
}

type EntryHandler struct {
	service   entryService
	calendar  interval.Calendar
	parser    *ingest.Normalizer
	responder responder
	logger    *slog.Logger
}

func NewEntryHandler(service entryService, cal interval.Calendar, logger *slog.Logger) *EntryHandler {
	base := defaultLogger(logger)
	return &EntryHandler{
		service:   service,
		calendar:  cal,
		parser:    ingest.NewNormalizer(cal),
		responder: newResponder(base, cal),
		logger:    base,
	}
}

func (h *EntryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EntryHandler", operation, attrs...)
}

func (h *EntryHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req checkInRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "CheckIn", "error_kind", "bad_request").WarnContext(r.Context(), "invalid check-in request", "error", err)
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	errs := fieldErrors{}
	params := application.CheckInParams{
		UserID: strings.TrimSpace(req.UserID),
		RoomID: strings.TrimSpace(req.RoomID),
		At:     errs.optionalInstant(h.parser, "at", req.At),
	}
	if err := errs.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	entry, err := h.service.CheckIn(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, entryResponse{Entry: toEntryDTO(h.calendar, entry)})
}

// CheckOut closes the entry named in the path. The body is optional; an
// empty one checks out at the server clock.
func (h *EntryHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	var req checkOutRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	errs := fieldErrors{}
	at := errs.optionalInstant(h.parser, "at", req.At)
	if err := errs.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	entry, err := h.service.CheckOut(r.Context(), application.CheckOutParams{EntryID: entryID, At: at})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, entryResponse{Entry: toEntryDTO(h.calendar, entry)})
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	values := r.URL.Query()
	errs := fieldErrors{}
	filter := application.EntryFilter{
		UserID:   strings.TrimSpace(values.Get("user_id")),
		RoomID:   strings.TrimSpace(values.Get("room_id")),
		OpenOnly: errs.flag("open", values.Get("open")),
	}
	filter.From, filter.To = errs.dateRange(values)
	if err := errs.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	entries, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEntriesResponse{Entries: toEntryDTOs(h.calendar, entries)})
}

// Import accepts the raw upstream export as the request body.
func (h *EntryHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.Import(r.Context(), payload)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := importResponse{
		ImportedCount: len(result.Imported),
		Imported:      toEntryDTOs(h.calendar, result.Imported),
	}
	for _, skip := range result.Skipped {
		resp.Skipped = append(resp.Skipped, skipDTO{Index: skip.Index, ID: skip.ID, Reason: skip.Reason})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type checkInRequest struct {
	UserID string `json:"user_id" validate:"required"`
	RoomID string `json:"room_id" validate:"required"`
	At     string `json:"at"`
}

type checkOutRequest struct {
	At string `json:"at"`
}

type entryResponse struct {
	Entry entryDTO `json:"entry"`
}

type listEntriesResponse struct {
	Entries []entryDTO `json:"entries"`
}

type importResponse struct {
	ImportedCount int        `json:"imported_count"`
	Imported      []entryDTO `json:"imported"`
	Skipped       []skipDTO  `json:"skipped,omitempty"`
}

type skipDTO struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

type entryDTO struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	RoomID    string  `json:"room_id"`
	UserName  string  `json:"user_name,omitempty"`
	RoomName  string  `json:"room_name,omitempty"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at"`
	Open      bool    `json:"open"`
}

func toEntryDTO(cal interval.Calendar, entry domain.RoomEntry) entryDTO {
	return entryDTO{
		ID:        entry.ID,
		UserID:    entry.UserID,
		RoomID:    entry.RoomID,
		UserName:  entry.UserName,
		RoomName:  entry.RoomName,
		StartedAt: formatLocal(cal, entry.StartedAt),
		EndedAt:   formatLocalPtr(cal, entry.EndedAt),
		Open:      entry.IsOpen(),
	}
}

func toEntryDTOs(cal interval.Calendar, entries []domain.RoomEntry) []entryDTO {
	out := make([]entryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toEntryDTO(cal, entry))
	}
	return out
}
