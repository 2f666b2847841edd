package bind

import (
	"context"
	"fmt"
	"time"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/schema"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
	"github.com/ruslano69/tdtp-airtable/pkg/writer"
)

// UploadOptions - параметры загрузки таблицы с сопоставлением по первичному ключу
type UploadOptions struct {
	Options

	// Overwrite - обновлять уже существующие записи (иначе пропускать)
	Overwrite bool
}

// Upload загружает локальную таблицу: для каждой строки ищет запись по
// первичному ключу. Найденные записи обновляются только при Overwrite,
// отсутствующие создаются. Дубликаты в удаленной таблице сообщаются в лог,
// обновляется первое совпадение.
func Upload(ctx context.Context, remote adapters.Table, tbl *table.Table, opts UploadOptions) (*Report, error) {
	pk := opts.PrimaryKey
	if pk == "" {
		pk = tbl.PrimaryKeyField()
	}
	if pk == "" {
		return nil, fmt.Errorf("upload %s: no primary key", remote.Name())
	}

	w := writer.New(remote, opts.Writer).WithLogger(opts.Logger)
	log := opts.Logger.With().Str("table", remote.Name()).Str("field", pk).Logger()

	report := &Report{
		Table:   remote.Name(),
		Mode:    adapters.ModeUpsert,
		Started: time.Now(),
	}

	for i, row := range tbl.Rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rr := RowResult{Index: i, Label: row.Label}
		fields := table.RowToFields(row, nil)

		raw := row.Get(pk)
		if schema.IsMissing(raw) {
			rr.Outcome = OutcomeFailed
			rr.Err = fmt.Errorf("row %d has no value for primary key %s", i, pk)
			rr.Error = rr.Err.Error()
			report.add(rr)
			continue
		}
		value := schema.Coerce(raw)

		matches, err := remote.Search(ctx, pk, value)
		if err != nil {
			rr.Outcome = OutcomeFailed
			rr.Err = err
			rr.Error = err.Error()
			report.add(rr)
			continue
		}

		var res *writer.Result
		switch {
		case len(matches) == 0:
			res, err = w.Insert(ctx, fields)
		default:
			if len(matches) > 1 {
				log.Warn().
					Interface("value", value).
					Int("matches", len(matches)).
					Msg("possible duplicate records")
			}
			if !opts.Overwrite {
				log.Warn().
					Interface("value", value).
					Msg("record already present, set overwrite to update it")
				rr.Outcome = OutcomeSkipped
				rr.RecordID = matches[0].ID
				report.add(rr)
				continue
			}
			res, err = w.Update(ctx, matches[0].ID, fields)
		}

		rr.Result = res
		rr.Outcome = outcomeOf(res, err)
		if res != nil && res.Record != nil {
			rr.RecordID = res.Record.ID
			row.RecordID = res.Record.ID
		}
		if err != nil {
			rr.Err = err
			rr.Error = err.Error()
			log.Warn().Int("row", i).Err(err).Msg("upload failed")
		}
		report.add(rr)
	}

	report.Duration = time.Since(report.Started)
	return report, nil
}
