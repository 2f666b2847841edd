package writer

import (
	"encoding/json"
	"errors"

	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

// ErrTotalWriteFailure - ни один путь записи не удался
var ErrTotalWriteFailure = errors.New("writer: every write path failed")

// Status - итог записи
type Status string

const (
	// StatusSuccess - все поля записаны
	StatusSuccess Status = "success"

	// StatusPartial - часть полей отклонена, остальные записаны
	StatusPartial Status = "partial"

	// StatusFailed - ничего не записано
	StatusFailed Status = "failed"
)

// FieldFailure - поле, отклоненное при поштучной записи
type FieldFailure struct {
	Field string
	Value any
	Err   error
}

// MarshalJSON - {"field": ..., "value": ..., "error": ...}
func (f FieldFailure) MarshalJSON() ([]byte, error) {
	out := struct {
		Field string `json:"field"`
		Value any    `json:"value"`
		Error string `json:"error,omitempty"`
	}{Field: f.Field, Value: f.Value}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	return json.Marshal(out)
}

// Result - результат записи одной строки.
// Частичный успех не является ошибкой: проверяйте Status и Fails.
type Result struct {
	Record *table.Record  `json:"record,omitempty"`
	Fails  []FieldFailure `json:"fails,omitempty"`
	Status Status         `json:"status"`
}

// OK - все поля записаны
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// FailedFields возвращает имена отклоненных полей
func (r *Result) FailedFields() []string {
	names := make([]string, len(r.Fails))
	for i, f := range r.Fails {
		names[i] = f.Field
	}
	return names
}

func success(rec *table.Record) *Result {
	return &Result{Record: rec, Status: StatusSuccess}
}

// settle выставляет статус по числу успешных и отклоненных полей
func (r *Result) settle(succeeded int) {
	switch {
	case len(r.Fails) == 0:
		r.Status = StatusSuccess
	case succeeded > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusFailed
	}
}
