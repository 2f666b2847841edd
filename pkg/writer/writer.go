// Package writer - устойчивая запись в удаленную таблицу.
//
// Пакетный вызов (insert/update) при отклонении содержимого (adapters.ErrRejected)
// деградирует в поштучную запись полей. Отклоненные поля собираются в
// Result.Fails. Ошибка возвращается только когда не удался ни один путь
// (ErrTotalWriteFailure) или когда сбой не является отклонением содержимого
// (транспорт, not found).
package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

// UpsertFallback - когда Upsert переходит от update к insert
type UpsertFallback int

const (
	// FallbackAlways - insert после любой неудачи update, включая пустой id
	FallbackAlways UpsertFallback = iota

	// FallbackNotFound - insert только при пустом id или ErrNotFound.
	// Отклонение всех полей существующей записи и транспортные ошибки
	// возвращаются без insert.
	FallbackNotFound
)

func (f UpsertFallback) String() string {
	if f == FallbackNotFound {
		return "not_found"
	}
	return "always"
}

// ParseUpsertFallback разбирает "always" / "not_found"
func ParseUpsertFallback(s string) (UpsertFallback, error) {
	switch s {
	case "", "always":
		return FallbackAlways, nil
	case "not_found", "not-found":
		return FallbackNotFound, nil
	default:
		return 0, fmt.Errorf("unknown upsert fallback '%s' (valid: always, not_found)", s)
	}
}

// Options - параметры записи
type Options struct {
	// Typecast - разрешить API приводить типы на своей стороне
	Typecast bool

	// Robust - включить поштучный fallback
	Robust bool

	// UpsertFallback - политика Upsert
	UpsertFallback UpsertFallback
}

// DefaultOptions - typecast и robust включены
func DefaultOptions() Options {
	return Options{
		Typecast:       true,
		Robust:         true,
		UpsertFallback: FallbackAlways,
	}
}

// Writer выполняет запись в одну удаленную таблицу
type Writer struct {
	remote adapters.Table
	opts   Options
	logger zerolog.Logger
}

// New создает Writer
func New(remote adapters.Table, opts Options) *Writer {
	return &Writer{remote: remote, opts: opts, logger: zerolog.Nop()}
}

// WithLogger возвращает копию Writer с логгером
func (w *Writer) WithLogger(logger zerolog.Logger) *Writer {
	c := *w
	c.logger = logger
	return &c
}

// Insert создает запись.
// В robust режиме при отклонении создает запись первым принятым полем,
// затем дописывает остальные поля по одному.
func (w *Writer) Insert(ctx context.Context, fields *table.Fields) (*Result, error) {
	fields = table.CoerceFields(fields)

	rec, err := w.remote.Insert(ctx, fields, w.opts.Typecast)
	if err == nil {
		return success(rec), nil
	}
	if !w.opts.Robust || !adapters.IsRejected(err) {
		return nil, err
	}

	w.logger.Debug().
		Str("table", w.remote.Name()).
		Err(err).
		Msg("bulk insert rejected, inserting one field at a time")

	return w.insertOneFieldAtATime(ctx, fields)
}

// Update частично обновляет запись id.
// В robust режиме при отклонении обновляет каждое поле отдельно.
func (w *Writer) Update(ctx context.Context, id string, fields *table.Fields) (*Result, error) {
	fields = table.CoerceFields(fields)

	rec, err := w.remote.Update(ctx, id, fields, w.opts.Typecast)
	if err == nil {
		return success(rec), nil
	}
	if !w.opts.Robust || !adapters.IsRejected(err) {
		return nil, err
	}

	w.logger.Debug().
		Str("table", w.remote.Name()).
		Str("record_id", id).
		Err(err).
		Msg("bulk update rejected, updating one field at a time")

	return w.updateOneFieldAtATime(ctx, table.NewRecord(id, nil), fields)
}

// Delete удаляет запись. Поштучного fallback нет.
func (w *Writer) Delete(ctx context.Context, id string) (*adapters.DeleteResult, error) {
	return w.remote.Delete(ctx, id)
}

// Upsert обновляет запись id, при неудаче создает новую (см. UpsertFallback)
func (w *Writer) Upsert(ctx context.Context, id string, fields *table.Fields) (*Result, error) {
	if id == "" {
		return w.Insert(ctx, fields)
	}

	res, err := w.Update(ctx, id, fields)
	if err == nil {
		return res, nil
	}

	if w.opts.UpsertFallback == FallbackNotFound && !adapters.IsNotFound(err) {
		return res, err
	}

	w.logger.Debug().
		Str("table", w.remote.Name()).
		Str("record_id", id).
		Err(err).
		Msg("update failed, inserting")

	return w.Insert(ctx, fields)
}

func (w *Writer) insertOneFieldAtATime(ctx context.Context, fields *table.Fields) (*Result, error) {
	var (
		created *table.Record
		first   string
	)
	res := &Result{}

	for _, name := range fields.Keys() {
		value, _ := fields.Get(name)
		rec, err := w.remote.Insert(ctx, table.FieldsOf(name, value), w.opts.Typecast)
		if err == nil {
			created = rec
			first = name
			break
		}
		if !adapters.IsRejected(err) {
			return nil, err
		}
	}

	if created == nil {
		for _, name := range fields.Keys() {
			value, _ := fields.Get(name)
			res.Fails = append(res.Fails, FieldFailure{Field: name, Value: value, Err: adapters.ErrRejected})
		}
		res.Status = StatusFailed
		return res, fmt.Errorf("insert into %s: %w", w.remote.Name(), ErrTotalWriteFailure)
	}

	rest := fields.Clone()
	rest.Delete(first)
	res, err := w.updateOneFieldAtATime(ctx, created, rest)
	if errors.Is(err, ErrTotalWriteFailure) {
		// запись создана, поэтому частичный успех
		res.Status = StatusPartial
		return res, nil
	}
	return res, err
}

// updateOneFieldAtATime обновляет поля по одному, накапливая принятые
// значения в base и отклоненные в Fails
func (w *Writer) updateOneFieldAtATime(ctx context.Context, base *table.Record, fields *table.Fields) (*Result, error) {
	res := &Result{Record: base}
	succeeded := 0

	for _, name := range fields.Keys() {
		value, _ := fields.Get(name)
		rec, err := w.remote.Update(ctx, base.ID, table.FieldsOf(name, value), w.opts.Typecast)
		if err != nil {
			if !adapters.IsRejected(err) {
				res.settle(succeeded)
				return res, err
			}
			w.logger.Debug().
				Str("table", w.remote.Name()).
				Str("record_id", base.ID).
				Str("field", name).
				Err(err).
				Msg("field rejected")
			res.Fails = append(res.Fails, FieldFailure{Field: name, Value: value, Err: err})
			continue
		}
		succeeded++
		base.Fields.Merge(rec.Fields)
		if rec.CreatedTime != "" {
			base.CreatedTime = rec.CreatedTime
		}
	}

	res.settle(succeeded)
	if res.Status == StatusFailed {
		return res, fmt.Errorf("update %s in %s: %w", base.ID, w.remote.Name(), ErrTotalWriteFailure)
	}
	return res, nil
}
