package bind

import (
	"context"
	"fmt"
	"time"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/writer"
)

// PushOptions - параметры push таблицы
type PushOptions struct {
	// Fields - подмножество полей (nil = все)
	Fields []string

	// Rows - индексы строк (nil = все, в порядке таблицы)
	Rows []int

	// OnlyChanged - пропускать строки, не изменившиеся после pull
	OnlyChanged bool
}

// Outcome - итог записи одной строки
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// RowResult - результат записи одной строки (запись или перехваченная ошибка)
type RowResult struct {
	Index    int            `json:"index"`
	Label    string         `json:"label,omitempty"`
	RecordID string         `json:"record_id,omitempty"`
	Outcome  Outcome        `json:"outcome"`
	Result   *writer.Result `json:"result,omitempty"`
	Err      error          `json:"-"`
	Error    string         `json:"error,omitempty"`
}

// Summary - счетчики результатов push
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Partial   int `json:"partial"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Add учитывает результат строки
func (s *Summary) Add(outcome Outcome) {
	s.Total++
	switch outcome {
	case OutcomeSuccess:
		s.Succeeded++
	case OutcomePartial:
		s.Partial++
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// Report - результат push таблицы
type Report struct {
	Table    string             `json:"table"`
	Mode     adapters.WriteMode `json:"mode"`
	Rows     []RowResult        `json:"rows"`
	Summary  Summary            `json:"summary"`
	Started  time.Time          `json:"started"`
	Duration time.Duration      `json:"duration"`
}

// Push записывает строки таблицы в указанном режиме, строго по порядку.
// Ошибки отдельных строк перехватываются в RowResult; ошибка возвращается
// только для некорректных параметров.
func (bt *BoundTable) Push(ctx context.Context, mode adapters.WriteMode, opts PushOptions) (*Report, error) {
	if _, err := adapters.ParseWriteMode(string(mode)); err != nil {
		return nil, err
	}
	indices, err := bt.rowIndices(opts.Rows)
	if err != nil {
		return nil, err
	}
	for _, f := range opts.Fields {
		if !bt.Table.HasColumn(f) {
			return nil, fmt.Errorf("push %s: unknown column '%s'", bt.Remote.Name(), f)
		}
	}

	report := &Report{
		Table:   bt.Remote.Name(),
		Mode:    mode,
		Started: time.Now(),
	}

	for _, i := range indices {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		row := bt.Row(i)
		rr := RowResult{Index: i, Label: row.Row.Label}

		if opts.OnlyChanged && mode != adapters.ModeDelete && !bt.Changed(i) {
			rr.Outcome = OutcomeSkipped
			rr.RecordID = row.Row.RecordID
			report.add(rr)
			continue
		}

		res, err := row.Push(ctx, mode, opts.Fields)
		rr.Result = res
		rr.RecordID = row.Row.RecordID
		if res != nil && res.Record != nil {
			rr.RecordID = res.Record.ID
		}
		rr.Outcome = outcomeOf(res, err)
		if err != nil {
			rr.Err = err
			rr.Error = err.Error()
			bt.opts.Logger.Warn().
				Str("table", report.Table).
				Str("mode", string(mode)).
				Int("row", i).
				Str("label", rr.Label).
				Err(err).
				Msg("row push failed")
		}
		report.add(rr)

		if synced(mode, opts, rr) {
			bt.baseline[rr.RecordID] = row.Row.Fingerprint()
		}
	}

	report.Duration = time.Since(report.Started)
	return report, nil
}

// synced сообщает, совпадает ли удаленная запись со всей локальной строкой.
// Частичная запись и подмножество полей оставляют строку измененной.
func synced(mode adapters.WriteMode, opts PushOptions, rr RowResult) bool {
	return mode != adapters.ModeDelete &&
		rr.Outcome == OutcomeSuccess &&
		opts.Fields == nil &&
		rr.RecordID != ""
}

func (r *Report) add(rr RowResult) {
	r.Rows = append(r.Rows, rr)
	r.Summary.Add(rr.Outcome)
}

// Failed возвращает строки с ошибкой
func (r *Report) Failed() []RowResult {
	var out []RowResult
	for _, rr := range r.Rows {
		if rr.Outcome == OutcomeFailed {
			out = append(out, rr)
		}
	}
	return out
}

func outcomeOf(res *writer.Result, err error) Outcome {
	if res == nil {
		if err != nil {
			return OutcomeFailed
		}
		return OutcomeSuccess
	}
	switch res.Status {
	case writer.StatusPartial:
		return OutcomePartial
	case writer.StatusFailed:
		return OutcomeFailed
	}
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}

func (bt *BoundTable) rowIndices(rows []int) ([]int, error) {
	if rows == nil {
		out := make([]int, bt.Table.Len())
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	for _, i := range rows {
		if i < 0 || i >= bt.Table.Len() {
			return nil, fmt.Errorf("push %s: row index %d out of range [0, %d)", bt.Remote.Name(), i, bt.Table.Len())
		}
	}
	return rows, nil
}
