// Package ingest maps the entry and schedule payloads returned by the
// different attendance endpoints onto the canonical domain records.
//
// Upstream services disagree on key names (startedAt, started_at,
// entry_time, created_at) and on timestamp encodings. Everything past this
// package only ever sees domain.RoomEntry and domain.Schedule.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
)

var (
	// ErrMalformedRecord marks a record that cannot be mapped to the canonical shape.
	ErrMalformedRecord = errors.New("ingest: malformed record")
	// ErrInvalidPayload indicates the payload is not a JSON array or an object wrapping one.
	ErrInvalidPayload = errors.New("ingest: payload must be a JSON array")
)

var (
	idKeys        = []string{"id", "_id", "entry_id", "schedule_id"}
	userKeys      = []string{"userId", "user_id", "monitorId", "monitor_id"}
	roomKeys      = []string{"roomId", "room_id", "salaId", "sala_id"}
	userNameKeys  = []string{"userName", "user_name", "monitorName", "monitor_name"}
	roomNameKeys  = []string{"roomName", "room_name", "salaName", "sala_name"}
	entryStarts   = []string{"startedAt", "started_at", "entry_time", "entryTime", "created_at", "createdAt"}
	entryEnds     = []string{"endedAt", "ended_at", "exit_time", "exitTime"}
	scheduleStart = []string{"start", "startTime", "start_time", "startsAt", "starts_at"}
	scheduleEnd   = []string{"end", "endTime", "end_time", "endsAt", "ends_at"}
	wrapperKeys   = []string{"data", "items", "entries", "schedules", "results"}
)

// localLayouts are read in the normalizer's calendar zone.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// Skip reports a record the normalizer dropped. Index is the position in the
// decoded array.
type Skip struct {
	Index  int
	ID     string
	Reason string
}

// Error implements error so a Skip can be wrapped and matched with errors.Is.
func (s Skip) Error() string {
	if s.ID != "" {
		return fmt.Sprintf("ingest: record %d (%s): %s", s.Index, s.ID, s.Reason)
	}
	return fmt.Sprintf("ingest: record %d: %s", s.Index, s.Reason)
}

// Is matches ErrMalformedRecord.
func (s Skip) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Normalizer decodes raw records. Timestamps without an explicit offset are
// interpreted in the calendar's zone.
type Normalizer struct {
	calendar interval.Calendar
}

// NewNormalizer constructs a Normalizer bound to cal.
func NewNormalizer(cal interval.Calendar) *Normalizer {
	return &Normalizer{calendar: cal}
}

// Entries decodes a JSON array of entry records.
func (n *Normalizer) Entries(payload []byte) ([]domain.RoomEntry, []Skip, error) {
	records, err := decodeRecords(payload)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]domain.RoomEntry, 0, len(records))
	var skipped []Skip
	for i, raw := range records {
		entry, err := n.Entry(raw)
		if err != nil {
			skipped = append(skipped, Skip{Index: i, ID: stringField(raw, idKeys), Reason: err.Error()})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped, nil
}

// Entry maps a single decoded record onto a RoomEntry.
func (n *Normalizer) Entry(raw map[string]any) (domain.RoomEntry, error) {
	entry := domain.RoomEntry{
		ID:       stringField(raw, idKeys),
		UserID:   stringField(raw, userKeys),
		RoomID:   stringField(raw, roomKeys),
		UserName: stringField(raw, userNameKeys),
		RoomName: stringField(raw, roomNameKeys),
	}
	if entry.UserID == "" || entry.RoomID == "" {
		return domain.RoomEntry{}, fmt.Errorf("%w: missing user or room", ErrMalformedRecord)
	}

	started, ok, err := n.timeField(raw, entryStarts)
	if err != nil {
		return domain.RoomEntry{}, err
	}
	if !ok {
		return domain.RoomEntry{}, fmt.Errorf("%w: missing start", ErrMalformedRecord)
	}
	entry.StartedAt = started

	ended, ok, err := n.timeField(raw, entryEnds)
	if err != nil {
		return domain.RoomEntry{}, err
	}
	if ok {
		if !ended.After(started) {
			return domain.RoomEntry{}, fmt.Errorf("%w: end is not after start", ErrMalformedRecord)
		}
		entry.EndedAt = &ended
	}
	return entry, nil
}

// Schedules decodes a JSON array of schedule records.
func (n *Normalizer) Schedules(payload []byte) ([]domain.Schedule, []Skip, error) {
	records, err := decodeRecords(payload)
	if err != nil {
		return nil, nil, err
	}

	schedules := make([]domain.Schedule, 0, len(records))
	var skipped []Skip
	for i, raw := range records {
		sched, err := n.Schedule(raw)
		if err != nil {
			skipped = append(skipped, Skip{Index: i, ID: stringField(raw, idKeys), Reason: err.Error()})
			continue
		}
		schedules = append(schedules, sched)
	}
	return schedules, skipped, nil
}

// Schedule maps a single decoded record onto a Schedule. A missing status is
// read as active.
func (n *Normalizer) Schedule(raw map[string]any) (domain.Schedule, error) {
	sched := domain.Schedule{
		ID:       stringField(raw, idKeys),
		UserID:   stringField(raw, userKeys),
		RoomID:   stringField(raw, roomKeys),
		Notes:    stringField(raw, []string{"notes", "note", "observaciones"}),
		UserName: stringField(raw, userNameKeys),
		RoomName: stringField(raw, roomNameKeys),
	}
	if sched.UserID == "" || sched.RoomID == "" {
		return domain.Schedule{}, fmt.Errorf("%w: missing user or room", ErrMalformedRecord)
	}

	status := domain.ScheduleStatus(strings.ToLower(stringField(raw, []string{"status", "estado"})))
	if status == "" {
		status = domain.StatusActive
	}
	if !status.Valid() {
		return domain.Schedule{}, fmt.Errorf("%w: unknown status %q", ErrMalformedRecord, status)
	}
	sched.Status = status

	if v, ok := raw["recurring"].(bool); ok {
		sched.Recurring = v
	} else if v, ok := raw["is_recurring"].(bool); ok {
		sched.Recurring = v
	}

	start, okStart, err := n.timeField(raw, scheduleStart)
	if err != nil {
		return domain.Schedule{}, err
	}
	end, okEnd, err := n.timeField(raw, scheduleEnd)
	if err != nil {
		return domain.Schedule{}, err
	}
	if !okStart || !okEnd {
		return domain.Schedule{}, fmt.Errorf("%w: missing start or end", ErrMalformedRecord)
	}
	if !end.After(start) {
		return domain.Schedule{}, fmt.Errorf("%w: end is not after start", ErrMalformedRecord)
	}
	sched.Start, sched.End = start, end
	return sched, nil
}

// ParseTime accepts RFC 3339, zone-less local layouts and unix seconds.
func (n *Normalizer) ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrMalformedRecord)
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, n.calendar.Location()); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrMalformedRecord, value)
}

// timeField returns the first present key. ok is false when none of the keys
// carries a value.
func (n *Normalizer) timeField(raw map[string]any, keys []string) (time.Time, bool, error) {
	for _, key := range keys {
		v, present := raw[key]
		if !present || v == nil {
			continue
		}
		switch tv := v.(type) {
		case string:
			if strings.TrimSpace(tv) == "" {
				continue
			}
			t, err := n.ParseTime(tv)
			return t, err == nil, err
		case json.Number:
			secs, err := tv.Int64()
			if err != nil {
				return time.Time{}, false, fmt.Errorf("%w: %s is not unix seconds", ErrMalformedRecord, key)
			}
			return time.Unix(secs, 0), true, nil
		default:
			return time.Time{}, false, fmt.Errorf("%w: %s has unsupported type %T", ErrMalformedRecord, key, v)
		}
	}
	return time.Time{}, false, nil
}

func decodeRecords(payload []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("ingest: decode payload: %w", err)
	}

	if obj, ok := root.(map[string]any); ok {
		for _, key := range wrapperKeys {
			if inner, ok := obj[key]; ok {
				root = inner
				break
			}
		}
	}

	items, ok := root.([]any)
	if !ok {
		return nil, ErrInvalidPayload
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			record = map[string]any{}
		}
		records = append(records, record)
	}
	return records, nil
}

func stringField(raw map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}
