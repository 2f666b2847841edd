// Package identity определяет идентификатор удаленной записи для строки.
//
// Порядок разрешения:
//  1. явный row.RecordID (без запросов);
//  2. метка строки, имеющая форму record id (без запросов);
//  3. поиск по значению первичного ключа. Ровно одно совпадение - результат,
//     ноль - ErrNotFound, несколько - *AmbiguousError.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/schema"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

var (
	// ErrNotFound - ни одна запись не соответствует строке
	ErrNotFound = errors.New("identity: no matching record")

	// ErrAmbiguousIdentity - первичному ключу соответствует несколько записей
	ErrAmbiguousIdentity = errors.New("identity: ambiguous primary key")
)

// IsNotFound проверяет ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAmbiguous проверяет ErrAmbiguousIdentity
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguousIdentity)
}

// AmbiguousError содержит все найденные идентификаторы
type AmbiguousError struct {
	Field string
	Value any
	IDs   []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("identity: %d records match %s=%v: %s",
		len(e.IDs), e.Field, e.Value, strings.Join(e.IDs, ", "))
}

// Is позволяет errors.Is(err, ErrAmbiguousIdentity)
func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguousIdentity
}

// Resolver разрешает идентификаторы строк одной удаленной таблицы
type Resolver struct {
	remote     adapters.Table
	primaryKey string
	logger     zerolog.Logger
}

// Option - опция Resolver
type Option func(*Resolver)

// WithLogger задает логгер для диагностик Lookup
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// New создает Resolver. primaryKey - поле первичного ключа таблицы;
// пустое значение означает первое поле строки.
func New(remote adapters.Table, primaryKey string, opts ...Option) *Resolver {
	r := &Resolver{
		remote:     remote,
		primaryKey: primaryKey,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PrimaryKeyFor возвращает поле первичного ключа для строки:
// переопределение строки, поле Resolver, первое поле строки
func (r *Resolver) PrimaryKeyFor(row *table.Row) string {
	if row.PrimaryKey != "" {
		return row.PrimaryKey
	}
	if r.primaryKey != "" {
		return r.primaryKey
	}
	if row.Fields != nil {
		if keys := row.Fields.Keys(); len(keys) > 0 {
			return keys[0]
		}
	}
	return ""
}

// Resolve возвращает идентификатор записи для строки.
// Найденный поиском идентификатор сохраняется в row.RecordID.
func (r *Resolver) Resolve(ctx context.Context, row *table.Row) (string, error) {
	if row.RecordID != "" {
		return row.RecordID, nil
	}
	if table.LooksLikeRecordID(row.Label) {
		return row.Label, nil
	}

	field := r.PrimaryKeyFor(row)
	if field == "" {
		return "", fmt.Errorf("%w: row %q has no primary key field", ErrNotFound, row.Label)
	}
	raw := row.Get(field)
	if schema.IsMissing(raw) {
		return "", fmt.Errorf("%w: row %q has no value for %s", ErrNotFound, row.Label, field)
	}
	value := schema.Coerce(raw)

	id, err := r.search(ctx, field, value)
	if err != nil {
		return "", err
	}
	row.RecordID = id
	return id, nil
}

// Lookup - best-effort поиск идентификатора по значению поля.
// Отсутствие и неоднозначность сообщаются в лог, результат - "".
// Ошибки удаленной таблицы возвращаются.
func (r *Resolver) Lookup(ctx context.Context, field string, value any) (string, error) {
	id, err := r.search(ctx, field, value)
	var ambiguous *AmbiguousError
	switch {
	case err == nil:
		return id, nil
	case errors.As(err, &ambiguous):
		r.logger.Warn().
			Str("table", r.remote.Name()).
			Str("field", field).
			Interface("value", value).
			Strs("matches", ambiguous.IDs).
			Msg("more than one record matches")
		return "", nil
	case errors.Is(err, ErrNotFound):
		r.logger.Warn().
			Str("table", r.remote.Name()).
			Str("field", field).
			Interface("value", value).
			Msg("no record matches")
		return "", nil
	default:
		return "", err
	}
}

func (r *Resolver) search(ctx context.Context, field string, value any) (string, error) {
	records, err := r.remote.Search(ctx, field, value)
	if err != nil {
		return "", fmt.Errorf("identity: search %s=%v: %w", field, value, err)
	}

	switch len(records) {
	case 0:
		return "", fmt.Errorf("%w: %s=%v", ErrNotFound, field, value)
	case 1:
		return records[0].ID, nil
	default:
		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		return "", &AmbiguousError{Field: field, Value: value, IDs: ids}
	}
}
