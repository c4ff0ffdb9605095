package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/ingest"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/report"
	"github.com/example/monitor-scheduler/internal/scheduler"
)

var (
	testCalendar = interval.Bogota()
	quietLogger  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func bogotaTime(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, testCalendar.Location())
}

type fakeScheduleService struct {
	created   application.ScheduleInput
	updatedID string
	updated   application.ScheduleInput
	statusID  string
	status    domain.ScheduleStatus
	deletedID string
	filter    application.ScheduleFilter
	recurring application.GenerateRecurringParams
	result    domain.Schedule
	list      []domain.Schedule
	warnings  []application.ConflictWarning
	generated application.GenerateRecurringResult
	err       error
}

func (f *fakeScheduleService) CreateSchedule(_ context.Context, input application.ScheduleInput) (domain.Schedule, error) {
	f.created = input
	return f.result, f.err
}

func (f *fakeScheduleService) UpdateSchedule(_ context.Context, id string, input application.ScheduleInput) (domain.Schedule, error) {
	f.updatedID, f.updated = id, input
	return f.result, f.err
}

func (f *fakeScheduleService) SetStatus(_ context.Context, id string, status domain.ScheduleStatus) (domain.Schedule, error) {
	f.statusID, f.status = id, status
	return f.result, f.err
}

func (f *fakeScheduleService) DeleteSchedule(_ context.Context, id string) error {
	f.deletedID = id
	return f.err
}

func (f *fakeScheduleService) ListSchedules(_ context.Context, filter application.ScheduleFilter) ([]domain.Schedule, []application.ConflictWarning, error) {
	f.filter = filter
	return f.list, f.warnings, f.err
}

func (f *fakeScheduleService) GenerateRecurring(_ context.Context, params application.GenerateRecurringParams) (application.GenerateRecurringResult, error) {
	f.recurring = params
	return f.generated, f.err
}

type fakeEntryService struct {
	checkIn  application.CheckInParams
	checkOut application.CheckOutParams
	filter   application.EntryFilter
	payload  []byte
	entry    domain.RoomEntry
	list     []domain.RoomEntry
	imported application.ImportResult
	err      error
}

func (f *fakeEntryService) CheckIn(_ context.Context, params application.CheckInParams) (domain.RoomEntry, error) {
	f.checkIn = params
	return f.entry, f.err
}

func (f *fakeEntryService) CheckOut(_ context.Context, params application.CheckOutParams) (domain.RoomEntry, error) {
	f.checkOut = params
	return f.entry, f.err
}

func (f *fakeEntryService) ListEntries(_ context.Context, filter application.EntryFilter) ([]domain.RoomEntry, error) {
	f.filter = filter
	return f.list, f.err
}

func (f *fakeEntryService) Import(_ context.Context, payload []byte) (application.ImportResult, error) {
	f.payload = payload
	return f.imported, f.err
}

type fakeReportService struct {
	params application.ReportParams
	report report.Report
	err    error
}

func (f *fakeReportService) BuildReport(_ context.Context, params application.ReportParams) (report.Report, error) {
	f.params = params
	return f.report, f.err
}

type fakeRoomService struct {
	input application.RoomInput
	rooms []application.Room
	err   error
}

func (f *fakeRoomService) CreateRoom(_ context.Context, input application.RoomInput) (application.Room, error) {
	f.input = input
	return application.Room{ID: "room-1", Name: input.Name, Capacity: input.Capacity}, f.err
}

func (f *fakeRoomService) ListRooms(context.Context) ([]application.Room, error) {
	return f.rooms, f.err
}

type fakeUserService struct {
	input application.UserInput
	users []application.User
	err   error
}

func (f *fakeUserService) CreateUser(_ context.Context, input application.UserInput) (application.User, error) {
	f.input = input
	return application.User{ID: "monitor-1", Email: input.Email, DisplayName: input.DisplayName}, f.err
}

func (f *fakeUserService) ListUsers(context.Context) ([]application.User, error) {
	return f.users, f.err
}

type testServer struct {
	schedules *fakeScheduleService
	entries   *fakeEntryService
	reports   *fakeReportService
	rooms     *fakeRoomService
	users     *fakeUserService
	handler   http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		schedules: &fakeScheduleService{},
		entries:   &fakeEntryService{},
		reports:   &fakeReportService{},
		rooms:     &fakeRoomService{},
		users:     &fakeUserService{},
	}
	ts.handler = NewRouter(RouterConfig{
		Schedules:  NewScheduleHandler(ts.schedules, testCalendar, quietLogger),
		Entries:    NewEntryHandler(ts.entries, testCalendar, quietLogger),
		Reports:    NewReportHandler(ts.reports, testCalendar, quietLogger),
		Rooms:      NewRoomHandler(ts.rooms, testCalendar, quietLogger),
		Users:      NewUserHandler(ts.users, testCalendar, quietLogger),
		Middleware: []func(http.Handler) http.Handler{RequestLogger(quietLogger), Recoverer(quietLogger)},
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&out), rec.Body.String())
	return out
}

func TestScheduleHandler_Create(t *testing.T) {
	t.Parallel()

	t.Run("creates and renders local times", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.schedules.result = domain.Schedule{
			ID: "s1", UserID: "monitor-1", RoomID: "room-a",
			Start: bogotaTime(8, 8, 0).UTC(), End: bogotaTime(8, 10, 0).UTC(),
			Status: domain.StatusActive,
		}

		rec := ts.do(t, http.MethodPost, "/schedules",
			`{"user_id":" monitor-1 ","room_id":"room-a","start":"2024-01-08 08:00:00","end":"2024-01-08T10:00:00-05:00","notes":"apertura"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "monitor-1", ts.schedules.created.UserID)
		assert.True(t, ts.schedules.created.Start.Equal(bogotaTime(8, 8, 0)))
		assert.True(t, ts.schedules.created.End.Equal(bogotaTime(8, 10, 0)))
		assert.Equal(t, "apertura", ts.schedules.created.Notes)

		body := decodeBody[scheduleResponse](t, rec)
		assert.Equal(t, "2024-01-08T08:00:00-05:00", body.Schedule.Start)
		assert.Equal(t, "active", body.Schedule.Status)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/schedules", `{"user_id":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields are reported by json name", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/schedules", `{"room_id":"room-a"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeBody[errorResponse](t, rec)
		assert.Equal(t, "validation", body.ErrorCode)
		assert.Contains(t, body.Errors, "user_id")
		assert.Contains(t, body.Errors, "start")
		assert.Contains(t, body.Errors, "end")
		assert.NotContains(t, body.Errors, "room_id")
	})

	t.Run("unparseable time", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/schedules", `{"user_id":"u","room_id":"r","start":"mañana","end":"2024-01-08 10:00:00"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Errors, "start")
	})

	t.Run("rule rejections map to 409 with the kind", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			kind    scheduler.ErrorKind
			message string
		}{
			{scheduler.KindInvalidRange, "posterior"},
			{scheduler.KindDurationExceeded, "12 horas"},
			{scheduler.KindPastDate, "pasado"},
			{scheduler.KindUserConflict, "2024-01-08 08:00 a 10:00"},
			{scheduler.KindRoomConflict, "La sala"},
		}
		for _, tc := range cases {
			tc := tc
			t.Run(string(tc.kind), func(t *testing.T) {
				t.Parallel()
				ts := newTestServer()
				cErr := &scheduler.ConflictError{Kind: tc.kind, MaxDuration: 12 * time.Hour}
				if tc.kind == scheduler.KindUserConflict || tc.kind == scheduler.KindRoomConflict {
					cErr.Conflicting = &domain.Schedule{ID: "s0", Start: bogotaTime(8, 8, 0), End: bogotaTime(8, 10, 0)}
				}
				ts.schedules.err = cErr

				rec := ts.do(t, http.MethodPost, "/schedules", `{"user_id":"u","room_id":"r","start":"2024-01-08 08:00:00","end":"2024-01-08 10:00:00"}`)

				require.Equal(t, http.StatusConflict, rec.Code)
				body := decodeBody[errorResponse](t, rec)
				assert.Equal(t, string(tc.kind), body.ErrorCode)
				assert.Contains(t, body.Message, tc.message)
			})
		}
	})

	t.Run("store conflict", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.schedules.err = application.ErrScheduleConflict
		rec := ts.do(t, http.MethodPost, "/schedules", `{"user_id":"u","room_id":"r","start":"2024-01-08 08:00:00","end":"2024-01-08 10:00:00"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "schedule_conflict", decodeBody[errorResponse](t, rec).ErrorCode)
	})
}

func TestScheduleHandler_PathOperations(t *testing.T) {
	t.Parallel()

	t.Run("update passes the path id", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPut, "/schedules/s1", `{"user_id":"u","room_id":"r","start":"2024-01-08 08:00:00","end":"2024-01-08 09:00:00"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "s1", ts.schedules.updatedID)
	})

	t.Run("status change", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.schedules.result = domain.Schedule{ID: "s1", Status: domain.StatusCancelled}
		rec := ts.do(t, http.MethodPost, "/schedules/s1/status", `{"status":"cancelled"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.StatusCancelled, ts.schedules.status)
		assert.Equal(t, "cancelled", decodeBody[scheduleResponse](t, rec).Schedule.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/schedules/s1/status", `{"status":"paused"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Errors, "status")
		assert.Empty(t, ts.schedules.statusID)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodDelete, "/schedules/s9", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "s9", ts.schedules.deletedID)
	})

	t.Run("delete missing", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.schedules.err = application.ErrNotFound
		rec := ts.do(t, http.MethodDelete, "/schedules/s9", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown action", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/schedules/s1/archive", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPatch, "/schedules/s1", "")

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "PUT, DELETE", rec.Header().Get("Allow"))
	})
}

func TestScheduleHandler_List(t *testing.T) {
	t.Parallel()

	t.Run("parses filters and returns warnings", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.schedules.list = []domain.Schedule{{ID: "s1"}, {ID: "s2"}}
		ts.schedules.warnings = []application.ConflictWarning{{ScheduleID: "s1", ConflictsWith: "s2", Type: "room", RoomID: "room-a"}}

		rec := ts.do(t, http.MethodGet, "/schedules?user_id=monitor-1&from=2024-01-08&to=2024-01-14&status=active,completed", "")

		require.Equal(t, http.StatusOK, rec.Code)
		filter := ts.schedules.filter
		assert.Equal(t, "monitor-1", filter.UserID)
		require.NotNil(t, filter.From)
		assert.Equal(t, "2024-01-08", filter.From.String())
		assert.Equal(t, "2024-01-14", filter.To.String())
		assert.Equal(t, []domain.ScheduleStatus{domain.StatusActive, domain.StatusCompleted}, filter.Statuses)

		body := decodeBody[listSchedulesResponse](t, rec)
		assert.Len(t, body.Schedules, 2)
		require.Len(t, body.Warnings, 1)
		assert.Equal(t, "s2", body.Warnings[0].ConflictsWith)
	})

	t.Run("rejects bad query values together", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodGet, "/schedules?from=08/01/2024&status=pending", "")

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decodeBody[errorResponse](t, rec).Errors
		assert.Contains(t, errs, "from")
		assert.Contains(t, errs, "status")
	})

	t.Run("reversed range", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodGet, "/schedules?from=2024-01-10&to=2024-01-08", "")

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Errors, "to")
	})

	t.Run("empty listing is an array", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodGet, "/schedules", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"schedules":[]`)
	})
}

func TestScheduleHandler_GenerateRecurring(t *testing.T) {
	t.Parallel()

	t.Run("reports created and rejected dates", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rejected, _ := interval.ParseDate("2024-01-15")
		ts.schedules.generated = application.GenerateRecurringResult{
			Created: []domain.Schedule{{ID: "g1", Recurring: true, Start: bogotaTime(8, 8, 0), End: bogotaTime(8, 10, 0)}},
			Rejected: []application.Rejection{{
				Date: rejected,
				Kind: string(scheduler.KindUserConflict),
				Err:  &scheduler.ConflictError{Kind: scheduler.KindUserConflict},
			}},
		}

		rec := ts.do(t, http.MethodPost, "/schedules/recurring",
			`{"template":{"user_id":"u","room_id":"r","start":"2024-01-08 08:00:00","end":"2024-01-08 10:00:00"},"from":"2024-01-08","to":"2024-01-31"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "2024-01-08", ts.schedules.recurring.From.String())
		assert.Equal(t, "2024-01-31", ts.schedules.recurring.To.String())
		assert.True(t, ts.schedules.recurring.Template.Start.Equal(bogotaTime(8, 8, 0)))

		body := decodeBody[recurringResponse](t, rec)
		assert.Equal(t, 1, body.CreatedCount)
		require.Len(t, body.Rejected, 1)
		assert.Equal(t, "2024-01-15", body.Rejected[0].Date)
		assert.Equal(t, "user_conflict", body.Rejected[0].ErrorCode)
		assert.Contains(t, body.Rejected[0].Message, "monitor")
	})

	t.Run("nested template errors", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/schedules/recurring", `{"template":{"room_id":"r"},"from":"2024-01-08","to":"31-01-2024"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decodeBody[errorResponse](t, rec).Errors
		assert.Contains(t, errs, "template.user_id")
		assert.Contains(t, errs, "to")
	})
}

func TestEntryHandler(t *testing.T) {
	t.Parallel()

	t.Run("check in", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.entries.entry = domain.RoomEntry{ID: "e1", UserID: "u", RoomID: "r", StartedAt: bogotaTime(8, 8, 3)}

		rec := ts.do(t, http.MethodPost, "/entries/check-in", `{"user_id":"u","room_id":"r","at":"2024-01-08 08:03:00"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, ts.entries.checkIn.At)
		assert.True(t, ts.entries.checkIn.At.Equal(bogotaTime(8, 8, 3)))
		body := decodeBody[entryResponse](t, rec)
		assert.True(t, body.Entry.Open)
		assert.Nil(t, body.Entry.EndedAt)
	})

	t.Run("second check in", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.entries.err = application.ErrEntryOpen
		rec := ts.do(t, http.MethodPost, "/entries/check-in", `{"user_id":"u","room_id":"r"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "entry_open", decodeBody[errorResponse](t, rec).ErrorCode)
		assert.Nil(t, ts.entries.checkIn.At)
	})

	t.Run("check out without body", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ended := bogotaTime(8, 10, 0)
		ts.entries.entry = domain.RoomEntry{ID: "e1", StartedAt: bogotaTime(8, 8, 0), EndedAt: &ended}

		rec := ts.do(t, http.MethodPost, "/entries/e1/check-out", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "e1", ts.entries.checkOut.EntryID)
		assert.Nil(t, ts.entries.checkOut.At)
		body := decodeBody[entryResponse](t, rec)
		require.NotNil(t, body.Entry.EndedAt)
		assert.Equal(t, "2024-01-08T10:00:00-05:00", *body.Entry.EndedAt)
	})

	t.Run("check out already closed", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.entries.err = application.ErrEntryClosed
		rec := ts.do(t, http.MethodPost, "/entries/e1/check-out", `{"at":"1704726000"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		require.NotNil(t, ts.entries.checkOut.At)
		assert.Equal(t, int64(1704726000), ts.entries.checkOut.At.Unix())
	})

	t.Run("list filters", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodGet, "/entries?room_id=r&open=true&from=2024-01-08", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, ts.entries.filter.OpenOnly)
		assert.Equal(t, "r", ts.entries.filter.RoomID)
		assert.Nil(t, ts.entries.filter.To)
	})

	t.Run("import reports skipped records", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.entries.imported = application.ImportResult{
			Imported: []domain.RoomEntry{{ID: "e1", StartedAt: bogotaTime(8, 8, 0)}},
			Skipped:  []ingest.Skip{{Index: 1, Reason: "missing start"}},
		}
		payload := `[{"id":"e1","user_id":"u","room_id":"r","started_at":"2024-01-08 08:00:00"},{"user_id":"u"}]`

		rec := ts.do(t, http.MethodPost, "/entries/import", payload)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, payload, string(ts.entries.payload))
		body := decodeBody[importResponse](t, rec)
		assert.Equal(t, 1, body.ImportedCount)
		require.Len(t, body.Skipped, 1)
		assert.Equal(t, 1, body.Skipped[0].Index)
	})

	t.Run("unknown entry action", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/entries/e1/reopen", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReportHandler(t *testing.T) {
	t.Parallel()

	t.Run("passes filters and rounds figures", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		day, _ := interval.ParseDate("2024-01-08")
		ts.reports.report = report.Report{
			Filters:              report.Filters{From: &day, To: &day, RoomID: "room-a"},
			AssignedHours:        2,
			WorkedHours:          1.8333333,
			RemainingHours:       0.1666667,
			CompliancePercentage: 91.666666,
			LateArrivals:         1,
			HoursPerDay:          []report.DayHours{{Day: day, Hours: 1.8333333}},
			HoursPerRoom:         []report.RoomBucket{{RoomID: "room-a", RoomName: "Sala A", Hours: 1.8333333, Percentage: 100, Entries: 1}},
		}

		rec := ts.do(t, http.MethodGet, "/reports?from=2024-01-08&to=2024-01-08&room_id=room-a", "")

		require.Equal(t, http.StatusOK, rec.Code)
		params := ts.reports.params
		assert.False(t, params.Approximate)
		assert.Equal(t, "room-a", params.Filters.RoomID)
		require.NotNil(t, params.Filters.From)

		body := decodeBody[reportDTO](t, rec)
		assert.Equal(t, 1.83, body.WorkedHours)
		assert.Equal(t, 91.67, body.CompliancePercentage)
		assert.Equal(t, 1, body.LateArrivals)
		assert.Equal(t, "2024-01-08", body.From)
		require.Len(t, body.HoursPerRoom, 1)
		assert.Equal(t, "Sala A", body.HoursPerRoom[0].RoomName)
	})

	t.Run("approximate flag", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodGet, "/reports?approximate=true", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, ts.reports.params.Approximate)
	})

	t.Run("bad flag", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodGet, "/reports?approximate=quizas", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestCatalogHandlers(t *testing.T) {
	t.Parallel()

	t.Run("room create", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/rooms", `{"name":" Sala A ","location":"Bloque B","capacity":25}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Sala A", ts.rooms.input.Name)
		assert.Equal(t, "Sala A", decodeBody[roomResponse](t, rec).Room.Name)
	})

	t.Run("room capacity", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/rooms", `{"name":"Sala A","capacity":0}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Errors, "capacity")
	})

	t.Run("duplicate room", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.rooms.err = application.ErrAlreadyExists
		rec := ts.do(t, http.MethodPost, "/rooms", `{"name":"Sala A","capacity":5}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "already_exists", decodeBody[errorResponse](t, rec).ErrorCode)
	})

	t.Run("room list", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		ts.rooms.rooms = []application.Room{{ID: "room-a", Name: "Sala A", Capacity: 5}}
		rec := ts.do(t, http.MethodGet, "/rooms", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[listRoomsResponse](t, rec).Rooms, 1)
	})

	t.Run("user email", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/users", `{"email":"ana","display_name":"Ana"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Errors, "email")
	})

	t.Run("user create and list", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/users", `{"email":"ana@example.com","display_name":"Ana"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "ana@example.com", ts.users.input.Email)

		ts.users.users = []application.User{{ID: "monitor-1"}, {ID: "monitor-2"}}
		rec = ts.do(t, http.MethodGet, "/users", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[listUsersResponse](t, rec).Users, 2)
	})
}
