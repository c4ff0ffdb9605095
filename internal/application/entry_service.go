package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/ingest"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/notify"
)

// EntryService records monitors entering and leaving rooms.
type EntryService struct {
	entries     EntryRepository
	calendar    interval.Calendar
	normalizer  *ingest.Normalizer
	publisher   notify.Publisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEntryService constructs an entry service. A nil publisher discards events.
func NewEntryService(entries EntryRepository, cal interval.Calendar, publisher notify.Publisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EntryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &EntryService{
		entries:     entries,
		calendar:    cal,
		normalizer:  ingest.NewNormalizer(cal),
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EntryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EntryService", operation, attrs...)
}

// CheckIn opens an entry. A monitor holds at most one open entry.
func (s *EntryService) CheckIn(ctx context.Context, params CheckInParams) (entry domain.RoomEntry, err error) {
	if s == nil || s.entries == nil {
		return domain.RoomEntry{}, fmt.Errorf("entry repository not configured")
	}

	userID := strings.TrimSpace(params.UserID)
	roomID := strings.TrimSpace(params.RoomID)
	logger := s.loggerWith(ctx, "CheckIn", "user_id", userID, "room_id", roomID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to check in", "monitor checked in", "entry_id", entry.ID)
	}()

	vErr := &ValidationError{}
	if userID == "" {
		vErr.add("user_id", "el monitor es obligatorio")
	}
	if roomID == "" {
		vErr.add("room_id", "la sala es obligatoria")
	}
	if vErr.HasErrors() {
		return domain.RoomEntry{}, vErr
	}

	open, err := s.entries.FindOpenEntry(ctx, userID)
	switch {
	case err == nil:
		logger.DebugContext(ctx, "open entry found", "open_entry_id", open.ID)
		return domain.RoomEntry{}, ErrEntryOpen
	case !isNotFound(err):
		return domain.RoomEntry{}, mapRepoError(err)
	}

	started := s.now()
	if params.At != nil {
		started = *params.At
	}

	entry = domain.RoomEntry{
		ID:        s.idGenerator(),
		UserID:    userID,
		RoomID:    roomID,
		StartedAt: started,
	}
	persisted, err := s.entries.CreateEntry(ctx, entry)
	if err != nil {
		return domain.RoomEntry{}, mapRepoError(err)
	}

	s.publisher.Publish(ctx, notify.TopicEntryCheckedIn, domain.CloneEntry(persisted))
	return persisted, nil
}

// CheckOut closes an open entry. The exit must come after the arrival.
func (s *EntryService) CheckOut(ctx context.Context, params CheckOutParams) (entry domain.RoomEntry, err error) {
	if s == nil || s.entries == nil {
		return domain.RoomEntry{}, fmt.Errorf("entry repository not configured")
	}

	logger := s.loggerWith(ctx, "CheckOut", "entry_id", params.EntryID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to check out", "monitor checked out")
	}()

	current, err := s.entries.GetEntry(ctx, params.EntryID)
	if err != nil {
		return domain.RoomEntry{}, mapRepoError(err)
	}
	if !current.IsOpen() {
		return domain.RoomEntry{}, ErrEntryClosed
	}

	ended := s.now()
	if params.At != nil {
		ended = *params.At
	}
	if !ended.After(current.StartedAt) {
		return domain.RoomEntry{}, fieldError("ended_at", "la salida debe ser posterior a la entrada")
	}

	current.EndedAt = &ended
	persisted, err := s.entries.UpdateEntry(ctx, current)
	if err != nil {
		return domain.RoomEntry{}, mapRepoError(err)
	}

	s.publisher.Publish(ctx, notify.TopicEntryCheckedOut, domain.CloneEntry(persisted))
	return persisted, nil
}

// ListEntries returns entries whose arrival falls in the filter's civil dates.
func (s *EntryService) ListEntries(ctx context.Context, filter EntryFilter) ([]domain.RoomEntry, error) {
	if s == nil || s.entries == nil {
		return nil, fmt.Errorf("entry repository not configured")
	}

	query := EntryQuery{UserID: filter.UserID, RoomID: filter.RoomID, OpenOnly: filter.OpenOnly}
	if filter.From != nil {
		from := s.calendar.StartOfDay(*filter.From)
		query.From = &from
	}
	if filter.To != nil {
		to := s.calendar.EndOfDay(*filter.To)
		query.To = &to
	}

	entries, err := s.entries.ListEntries(ctx, query)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, mapRepoError(err)
	}
	return entries, nil
}

// Import normalizes a raw JSON payload from an upstream attendance source
// and stores each record. Records without an id get one. Records the
// normalizer or the store reject are reported in Skipped; the rest are kept.
func (s *EntryService) Import(ctx context.Context, payload []byte) (result ImportResult, err error) {
	if s == nil || s.entries == nil {
		return ImportResult{}, fmt.Errorf("entry repository not configured")
	}

	logger := s.loggerWith(ctx, "Import")
	defer func() {
		logOutcome(ctx, logger, err, "failed to import entries", "entries imported",
			"imported", len(result.Imported), "skipped", len(result.Skipped))
	}()

	entries, skipped, err := s.normalizer.Entries(payload)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidPayload) {
			return ImportResult{}, fieldError("payload", "se esperaba un arreglo JSON de registros")
		}
		return ImportResult{}, fieldError("payload", "el contenido no es JSON válido")
	}
	result.Skipped = append(result.Skipped, skipped...)
	positions := recordPositions(len(entries), skipped)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.ID == "" {
			entry.ID = s.idGenerator()
		}
		persisted, err := s.entries.CreateEntry(ctx, entry)
		if err != nil {
			mapped := mapRepoError(err)
			if isImportRejection(mapped) {
				result.Skipped = append(result.Skipped, ingest.Skip{Index: positions[i], ID: entry.ID, Reason: err.Error()})
				continue
			}
			return result, mapped
		}
		result.Imported = append(result.Imported, persisted)
	}
	return result, nil
}

// recordPositions maps each normalized entry back to its index in the payload.
func recordPositions(n int, skipped []ingest.Skip) []int {
	dropped := make(map[int]bool, len(skipped))
	for _, skip := range skipped {
		dropped[skip.Index] = true
	}
	positions := make([]int, 0, n)
	for idx := 0; len(positions) < n; idx++ {
		if !dropped[idx] {
			positions = append(positions, idx)
		}
	}
	return positions
}

func isImportRejection(err error) bool {
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrEntryOpen) {
		return true
	}
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
