// Package memory - удаленная таблица в памяти процесса.
// Используется для тестов, dry-run режима CLI и как эталон поведения backend.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/schema"
	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
)

func init() {
	adapters.Register("memory", func(cfg adapters.Config) (adapters.Table, error) {
		return New(cfg.Table), nil
	})
}

// Op - операция удаленной таблицы
type Op string

const (
	OpGetAll Op = "get_all"
	OpGet    Op = "get"
	OpSearch Op = "search"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Hook вызывается перед каждой записью (insert/update/delete).
// Ненулевая ошибка отменяет операцию и возвращается вызывающему.
// Для insert id пустой, для delete fields == nil.
type Hook func(op Op, id string, fields *table.Fields) error

// Table - in-memory реализация adapters.Table со счетчиками вызовов
type Table struct {
	mu      sync.Mutex
	name    string
	records []*table.Record
	calls   map[Op]int
	hook    Hook
	seq     int
}

// New создает пустую таблицу
func New(name string) *Table {
	return &Table{
		name:  name,
		calls: make(map[Op]int),
	}
}

// SetHook устанавливает hook для внедрения ошибок
func (t *Table) SetHook(h Hook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = h
}

// Seed добавляет записи напрямую, без hook и счетчиков
func (t *Table) Seed(fields ...*table.Fields) []*table.Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*table.Record, 0, len(fields))
	for _, f := range fields {
		rec := t.newRecord(table.CoerceFields(f))
		out = append(out, cloneRecord(rec))
	}
	return out
}

// Calls возвращает количество вызовов операции
func (t *Table) Calls(op Op) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[op]
}

// ResetCalls обнуляет счетчики вызовов
func (t *Table) ResetCalls() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = make(map[Op]int)
}

// Records возвращает копии всех записей
func (t *Table) Records() []*table.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneRecords(t.records)
}

// Name возвращает имя таблицы
func (t *Table) Name() string {
	return t.name
}

// GetAll возвращает все записи в порядке создания
func (t *Table) GetAll(ctx context.Context) ([]*table.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[OpGetAll]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneRecords(t.records), nil
}

// Get возвращает запись по идентификатору
func (t *Table) Get(ctx context.Context, id string) (*table.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[OpGet]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := t.find(id)
	if i < 0 {
		return nil, fmt.Errorf("get %s: %w", id, adapters.ErrNotFound)
	}
	return cloneRecord(t.records[i]), nil
}

// Search возвращает записи, где field равно value
func (t *Table) Search(ctx context.Context, field string, value any) ([]*table.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[OpSearch]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := schema.Coerce(value)
	var out []*table.Record
	for _, rec := range t.records {
		v, ok := rec.Fields.Get(field)
		if ok && equalValues(v, want) {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

// Insert создает запись
func (t *Table) Insert(ctx context.Context, fields *table.Fields, typecast bool) (*table.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[OpInsert]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.hook != nil {
		if err := t.hook(OpInsert, "", fields); err != nil {
			return nil, err
		}
	}
	rec := t.newRecord(table.CoerceFields(fields))
	return cloneRecord(rec), nil
}

// Update частично обновляет запись
func (t *Table) Update(ctx context.Context, id string, fields *table.Fields, typecast bool) (*table.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[OpUpdate]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := t.find(id)
	if i < 0 {
		return nil, fmt.Errorf("update %s: %w", id, adapters.ErrNotFound)
	}
	if t.hook != nil {
		if err := t.hook(OpUpdate, id, fields); err != nil {
			return nil, err
		}
	}
	t.records[i].Fields.Merge(table.CoerceFields(fields))
	return cloneRecord(t.records[i]), nil
}

// Delete удаляет запись
func (t *Table) Delete(ctx context.Context, id string) (*adapters.DeleteResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[OpDelete]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := t.find(id)
	if i < 0 {
		return nil, fmt.Errorf("delete %s: %w", id, adapters.ErrNotFound)
	}
	if t.hook != nil {
		if err := t.hook(OpDelete, id, nil); err != nil {
			return nil, err
		}
	}
	t.records = append(t.records[:i], t.records[i+1:]...)
	return &adapters.DeleteResult{ID: id, Deleted: true}, nil
}

func (t *Table) newRecord(fields *table.Fields) *table.Record {
	t.seq++
	rec := table.NewRecord(fmt.Sprintf("rec%014d", t.seq), fields.Clone())
	rec.CreatedTime = time.Now().UTC().Format(time.RFC3339)
	t.records = append(t.records, rec)
	return rec
}

func (t *Table) find(id string) int {
	for i, rec := range t.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func cloneRecord(rec *table.Record) *table.Record {
	c := table.NewRecord(rec.ID, rec.Fields.Clone())
	c.CreatedTime = rec.CreatedTime
	return c
}

func cloneRecords(records []*table.Record) []*table.Record {
	out := make([]*table.Record, len(records))
	for i, rec := range records {
		out[i] = cloneRecord(rec)
	}
	return out
}

// equalValues сравнивает значения; числа сравниваются как float64
func equalValues(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}
