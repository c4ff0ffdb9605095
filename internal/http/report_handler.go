package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/report"
)

type reportService interface {
	BuildReport(ctx context.Context, params application.ReportParams) (report.Report, error)
}

// ReportHandler serves the attendance dashboard figures.
type ReportHandler struct {
	service   reportService
	calendar  interval.Calendar
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service reportService, cal interval.Calendar, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, calendar: cal, responder: newResponder(base, cal), logger: base}
}

// Get builds a report for GET /reports?from=&to=&room_id=&user_id=&approximate=.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	values := r.URL.Query()
	errs := fieldErrors{}
	params := application.ReportParams{
		Filters: report.Filters{
			RoomID: strings.TrimSpace(values.Get("room_id")),
			UserID: strings.TrimSpace(values.Get("user_id")),
		},
		Approximate: errs.flag("approximate", values.Get("approximate")),
	}
	params.Filters.From, params.Filters.To = errs.dateRange(values)
	if err := errs.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	rep, err := h.service.BuildReport(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "ReportHandler", "Get").DebugContext(r.Context(), "report served",
		"worked_hours", rep.WorkedHours, "approximate", rep.Approximate)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReportDTO(rep))
}

type reportDTO struct {
	From                 string             `json:"from,omitempty"`
	To                   string             `json:"to,omitempty"`
	RoomID               string             `json:"room_id,omitempty"`
	UserID               string             `json:"user_id,omitempty"`
	Approximate          bool               `json:"approximate"`
	AssignedHours        float64            `json:"assigned_hours"`
	WorkedHours          float64            `json:"worked_hours"`
	RemainingHours       float64            `json:"remaining_hours"`
	CompliancePercentage float64            `json:"compliance_percentage"`
	LateArrivals         int                `json:"late_arrivals"`
	HoursByUser          map[string]float64 `json:"compliance_hours_by_user"`
	HoursBySchedule      map[string]float64 `json:"compliance_hours_by_schedule"`
	EntriesPerDay        []dayCountDTO      `json:"entries_per_day"`
	ExitsPerDay          []dayCountDTO      `json:"exits_per_day"`
	HoursPerDay          []dayHoursDTO      `json:"hours_per_day"`
	HoursPerRoom         []roomBucketDTO    `json:"hours_per_room"`
	Summary              summaryDTO         `json:"summary"`
}

type dayCountDTO struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type dayHoursDTO struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

type roomBucketDTO struct {
	RoomID      string  `json:"room_id"`
	RoomName    string  `json:"room_name"`
	Hours       float64 `json:"hours"`
	Percentage  float64 `json:"percentage"`
	Entries     int     `json:"entries"`
	OpenEntries int     `json:"open_entries"`
}

type summaryDTO struct {
	Schedules     int `json:"schedules"`
	Entries       int `json:"entries"`
	OpenEntries   int `json:"open_entries"`
	ClosedEntries int `json:"closed_entries"`
	Rooms         int `json:"rooms"`
	Users         int `json:"users"`
	Skipped       int `json:"skipped_records"`
}

// round2 trims float noise for display. The report itself keeps full precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = round2(v)
	}
	return out
}

func toReportDTO(rep report.Report) reportDTO {
	dto := reportDTO{
		RoomID:               rep.Filters.RoomID,
		UserID:               rep.Filters.UserID,
		Approximate:          rep.Approximate,
		AssignedHours:        round2(rep.AssignedHours),
		WorkedHours:          round2(rep.WorkedHours),
		RemainingHours:       round2(rep.RemainingHours),
		CompliancePercentage: round2(rep.CompliancePercentage),
		LateArrivals:         rep.LateArrivals,
		HoursByUser:          roundMap(rep.ComplianceHoursByUser),
		HoursBySchedule:      roundMap(rep.ComplianceHoursBySchedule),
		EntriesPerDay:        toDayCounts(rep.EntriesPerDay),
		ExitsPerDay:          toDayCounts(rep.ExitsPerDay),
		HoursPerDay:          make([]dayHoursDTO, 0, len(rep.HoursPerDay)),
		HoursPerRoom:         make([]roomBucketDTO, 0, len(rep.HoursPerRoom)),
		Summary: summaryDTO{
			Schedules:     rep.Summary.Schedules,
			Entries:       rep.Summary.Entries,
			OpenEntries:   rep.Summary.OpenEntries,
			ClosedEntries: rep.Summary.ClosedEntries,
			Rooms:         rep.Summary.Rooms,
			Users:         rep.Summary.Users,
			Skipped:       rep.Summary.SkippedRecord,
		},
	}
	if rep.Filters.From != nil {
		dto.From = rep.Filters.From.String()
	}
	if rep.Filters.To != nil {
		dto.To = rep.Filters.To.String()
	}
	for _, day := range rep.HoursPerDay {
		dto.HoursPerDay = append(dto.HoursPerDay, dayHoursDTO{Date: day.Day.String(), Hours: round2(day.Hours)})
	}
	for _, bucket := range rep.HoursPerRoom {
		dto.HoursPerRoom = append(dto.HoursPerRoom, roomBucketDTO{
			RoomID:      bucket.RoomID,
			RoomName:    bucket.RoomName,
			Hours:       round2(bucket.Hours),
			Percentage:  round2(bucket.Percentage),
			Entries:     bucket.Entries,
			OpenEntries: bucket.OpenEntries,
		})
	}
	return dto
}

func toDayCounts(in []report.DayCount) []dayCountDTO {
	out := make([]dayCountDTO, 0, len(in))
	for _, day := range in {
		out = append(out, dayCountDTO{Date: day.Day.String(), Count: day.Count})
	}
	return out
}
