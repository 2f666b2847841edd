// Package bind связывает таблицы и строки с удаленной таблицей:
// pull в табличную форму, локальные изменения, push обратно.
//
// Таблица, полученная через Pull, имеет индекс record_id: метки строк
// являются идентификаторами записей, и push не выполняет поиск по
// первичному ключу.
package bind

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
	"github.com/ruslano69/tdtp-airtable/pkg/writer"
)

// Options - параметры связывания
type Options struct {
	// PrimaryKey - поле первичного ключа. Пустое = первая колонка таблицы.
	PrimaryKey string

	// Writer - параметры записи
	Writer writer.Options

	// Logger - канал диагностик (неоднозначные ключи, пропущенные строки)
	Logger zerolog.Logger
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() Options {
	return Options{
		Writer: writer.DefaultOptions(),
		Logger: zerolog.Nop(),
	}
}

// BoundTable - таблица, связанная с удаленной таблицей
type BoundTable struct {
	Table      *table.Table
	Remote     adapters.Table
	PrimaryKey string

	opts Options
	// baseline - отпечатки строк на момент pull, по record id
	baseline map[string]uint64
}

// Bind связывает локальную таблицу с удаленной
func Bind(tbl *table.Table, remote adapters.Table, opts Options) *BoundTable {
	pk := opts.PrimaryKey
	if pk == "" {
		pk = tbl.PrimaryKeyField()
	}
	tbl.PrimaryKey = pk
	return &BoundTable{
		Table:      tbl,
		Remote:     remote,
		PrimaryKey: pk,
		opts:       opts,
		baseline:   make(map[string]uint64),
	}
}

// Pull читает все записи удаленной таблицы
func Pull(ctx context.Context, remote adapters.Table, opts Options) (*BoundTable, error) {
	records, err := remote.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", remote.Name(), err)
	}
	return bindRecords(remote, records, opts), nil
}

// PullRecords читает указанные записи в порядке ids
func PullRecords(ctx context.Context, remote adapters.Table, ids []string, opts Options) (*BoundTable, error) {
	records := make([]*table.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := remote.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("pull %s/%s: %w", remote.Name(), id, err)
		}
		records = append(records, rec)
	}
	return bindRecords(remote, records, opts), nil
}

// PullRecord читает одну запись
func PullRecord(ctx context.Context, remote adapters.Table, id string, opts Options) (*BoundRow, error) {
	rec, err := remote.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("pull %s/%s: %w", remote.Name(), id, err)
	}
	row := NewRow(table.RecordToRow(rec), remote, opts)
	row.labelIsID = true
	return row, nil
}

func bindRecords(remote adapters.Table, records []*table.Record, opts Options) *BoundTable {
	tbl := table.RecordsToTable(records)
	tbl.Name = remote.Name()
	bt := Bind(tbl, remote, opts)
	bt.snapshot()
	return bt
}

// Len - количество строк
func (bt *BoundTable) Len() int {
	return bt.Table.Len()
}

// Row возвращает строку i, связанную с удаленной таблицей
func (bt *BoundTable) Row(i int) *BoundRow {
	row := bt.Table.Rows[i]
	opts := bt.opts
	opts.PrimaryKey = bt.PrimaryKey
	b := NewRow(row, bt.Remote, opts)
	b.labelIsID = bt.Table.HasRecordIndex()
	return b
}

// Refresh перечитывает удаленную таблицу, заменяя строки
func (bt *BoundTable) Refresh(ctx context.Context) error {
	fresh, err := Pull(ctx, bt.Remote, bt.opts)
	if err != nil {
		return err
	}
	bt.Table.Rows = fresh.Table.Rows
	bt.Table.Columns = fresh.Table.Columns
	bt.Table.IndexName = fresh.Table.IndexName
	bt.baseline = fresh.baseline
	return nil
}

// Changed сообщает, изменилась ли строка i после pull.
// Строки без отпечатка (новые) считаются измененными.
func (bt *BoundTable) Changed(i int) bool {
	row := bt.Table.Rows[i]
	key := row.RecordID
	if key == "" {
		key = row.Label
	}
	fp, ok := bt.baseline[key]
	if !ok {
		return true
	}
	return fp != row.Fingerprint()
}

// snapshot запоминает отпечатки строк
func (bt *BoundTable) snapshot() {
	fps := bt.Table.Fingerprints()
	bt.baseline = make(map[string]uint64, len(fps))
	for i, row := range bt.Table.Rows {
		key := row.RecordID
		if key == "" {
			key = row.Label
		}
		if key != "" {
			bt.baseline[key] = fps[i]
		}
	}
}
