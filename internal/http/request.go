package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/monitor-scheduler/internal/application"
	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/ingest"
	"github.com/example/monitor-scheduler/internal/interval"
)

const maxRequestBody = 1 << 20

var defaultCalendar = interval.Bogota()

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a request body into dst and runs its validate tags.
// Malformed JSON yields errBadRequestBody; tag failures yield a
// *application.ValidationError keyed by JSON field name.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		return errBadRequestBody
	}
	return validateRequest(dst)
}

func validateRequest(dst any) error {
	err := requestValidator.Struct(dst)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	vErr := &application.ValidationError{FieldErrors: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		vErr.FieldErrors[fieldPath(fe)] = tagMessage(fe)
	}
	return vErr
}

// fieldPath drops the root struct name from the namespace so nested
// fields read like "template.start".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "el campo es obligatorio"
	case "email":
		return "el correo no es válido"
	case "max":
		return fmt.Sprintf("admite como máximo %s caracteres", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("debe ser mayor o igual a %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("debe ser uno de: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return "la fecha debe tener el formato AAAA-MM-DD"
	default:
		return "el valor no es válido"
	}
}

// fieldErrors accumulates parse failures that happen after tag validation.
type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &application.ValidationError{FieldErrors: f}
}

func (f fieldErrors) instant(parser *ingest.Normalizer, field, value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	ts, err := parser.ParseTime(value)
	if err != nil {
		f[field] = "la fecha y hora no es válida"
		return time.Time{}
	}
	return ts
}

func (f fieldErrors) optionalInstant(parser *ingest.Normalizer, field, value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	ts := f.instant(parser, field, value)
	if ts.IsZero() {
		return nil
	}
	return &ts
}

func (f fieldErrors) date(field, value string) *interval.Date {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := interval.ParseDate(value)
	if err != nil {
		f[field] = "la fecha debe tener el formato AAAA-MM-DD"
		return nil
	}
	return &d
}

func (f fieldErrors) flag(field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		f[field] = "debe ser true o false"
		return false
	}
	return b
}

func (f fieldErrors) statuses(field, value string) []domain.ScheduleStatus {
	var out []domain.ScheduleStatus
	for _, part := range parseCSV(value) {
		status := domain.ScheduleStatus(strings.ToLower(part))
		if !status.Valid() {
			f[field] = "estado desconocido: " + part
			return nil
		}
		out = append(out, status)
	}
	return out
}

// dateRange reads the from/to query parameters shared by every listing.
func (f fieldErrors) dateRange(values url.Values) (from, to *interval.Date) {
	from = f.date("from", values.Get("from"))
	to = f.date("to", values.Get("to"))
	if from != nil && to != nil && to.Before(*from) {
		f["to"] = "la fecha final es anterior a la inicial"
	}
	return from, to
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func formatLocal(cal interval.Calendar, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return cal.Local(t).Format(time.RFC3339)
}

func formatLocalPtr(cal interval.Calendar, t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatLocal(cal, *t)
	return &s
}
