package bind

import (
	"context"
	"fmt"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
	"github.com/ruslano69/tdtp-airtable/pkg/identity"
	"github.com/ruslano69/tdtp-airtable/pkg/writer"
)

// BoundRow - строка, связанная с удаленной таблицей
type BoundRow struct {
	Row        *table.Row
	Remote     adapters.Table
	PrimaryKey string

	// labelIsID - метка строки является record id (индекс record_id)
	labelIsID bool
	opts      Options
}

// NewRow связывает отдельную строку с удаленной таблицей
func NewRow(row *table.Row, remote adapters.Table, opts Options) *BoundRow {
	return &BoundRow{
		Row:        row,
		Remote:     remote,
		PrimaryKey: opts.PrimaryKey,
		opts:       opts,
	}
}

func (b *BoundRow) resolver() *identity.Resolver {
	return identity.New(b.Remote, b.PrimaryKey, identity.WithLogger(b.opts.Logger))
}

func (b *BoundRow) writer() *writer.Writer {
	return writer.New(b.Remote, b.opts.Writer).WithLogger(b.opts.Logger)
}

// RecordID возвращает идентификатор удаленной записи строки
func (b *BoundRow) RecordID(ctx context.Context) (string, error) {
	if b.Row.RecordID == "" && b.labelIsID && b.Row.Label != "" {
		return b.Row.Label, nil
	}
	return b.resolver().Resolve(ctx, b.Row)
}

// Insert создает запись из полей строки (fields == nil - все поля)
func (b *BoundRow) Insert(ctx context.Context, fields []string) (*writer.Result, error) {
	res, err := b.writer().Insert(ctx, table.RowToFields(b.Row, fields))
	b.remember(res)
	return res, err
}

// Update обновляет запись строки
func (b *BoundRow) Update(ctx context.Context, fields []string) (*writer.Result, error) {
	id, err := b.RecordID(ctx)
	if err != nil {
		return nil, err
	}
	res, err := b.writer().Update(ctx, id, table.RowToFields(b.Row, fields))
	b.remember(res)
	return res, err
}

// Upsert обновляет запись строки, а если ее нет - создает.
// Неоднозначный первичный ключ - ошибка: новая запись не создается.
func (b *BoundRow) Upsert(ctx context.Context, fields []string) (*writer.Result, error) {
	id, err := b.RecordID(ctx)
	if err != nil && !identity.IsNotFound(err) {
		return nil, err
	}
	res, err := b.writer().Upsert(ctx, id, table.RowToFields(b.Row, fields))
	b.remember(res)
	return res, err
}

// Delete удаляет запись строки
func (b *BoundRow) Delete(ctx context.Context) (*adapters.DeleteResult, error) {
	id, err := b.RecordID(ctx)
	if err != nil {
		return nil, err
	}
	res, err := b.writer().Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Row.RecordID = ""
	return res, nil
}

// Push выполняет запись строки в указанном режиме
func (b *BoundRow) Push(ctx context.Context, mode adapters.WriteMode, fields []string) (*writer.Result, error) {
	switch mode {
	case adapters.ModeInsert:
		return b.Insert(ctx, fields)
	case adapters.ModeUpdate:
		return b.Update(ctx, fields)
	case adapters.ModeUpsert:
		return b.Upsert(ctx, fields)
	case adapters.ModeDelete:
		del, err := b.Delete(ctx)
		if err != nil {
			return nil, err
		}
		return &writer.Result{Record: table.NewRecord(del.ID, nil), Status: writer.StatusSuccess}, nil
	default:
		return nil, fmt.Errorf("unknown write mode: %s", mode)
	}
}

// Pull перечитывает поля строки из удаленной записи
func (b *BoundRow) Pull(ctx context.Context) error {
	id, err := b.RecordID(ctx)
	if err != nil {
		return err
	}
	rec, err := b.Remote.Get(ctx, id)
	if err != nil {
		return err
	}
	b.Row.Fields = rec.Fields
	b.Row.RecordID = rec.ID
	return nil
}

// remember сохраняет идентификатор созданной/обновленной записи в строке
func (b *BoundRow) remember(res *writer.Result) {
	if res == nil || res.Record == nil || res.Record.ID == "" {
		return
	}
	b.Row.RecordID = res.Record.ID
}
