package table

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ruslano69/tdtp-airtable/pkg/core/schema"
	"github.com/zeebo/xxh3"
)

// RecordIDIndex - зарезервированное имя индекса таблицы, полученной из
// удаленных записей. Метки строк такой таблицы являются record id.
const RecordIDIndex = "record_id"

const (
	recordIDLength = 17
	recordIDPrefix = "rec"
)

// Record - запись удаленной таблицы: идентификатор, назначенный сервисом,
// и упорядоченный набор полей
type Record struct {
	ID          string  `json:"id,omitempty"`
	CreatedTime string  `json:"createdTime,omitempty"`
	Fields      *Fields `json:"fields"`
}

// NewRecord создает запись
func NewRecord(id string, fields *Fields) *Record {
	if fields == nil {
		fields = NewFields()
	}
	return &Record{ID: id, Fields: fields}
}

// Row - строка таблицы.
// Label - метка строки (индекс таблицы), RecordID - явно заданный или
// закэшированный идентификатор удаленной записи, PrimaryKey - локальное
// переопределение поля первичного ключа.
type Row struct {
	Label      string
	RecordID   string
	PrimaryKey string
	Fields     *Fields
}

// NewRow создает строку без привязки к удаленной записи
func NewRow(fields *Fields) *Row {
	if fields == nil {
		fields = NewFields()
	}
	return &Row{Fields: fields}
}

// Get возвращает значение поля (nil если поля нет)
func (r *Row) Get(name string) any {
	v, _ := r.Fields.Get(name)
	return v
}

// Set устанавливает значение поля
func (r *Row) Set(name string, value any) {
	if r.Fields == nil {
		r.Fields = NewFields()
	}
	r.Fields.Set(name, value)
}

// Clone возвращает независимую копию строки
func (r *Row) Clone() *Row {
	return &Row{
		Label:      r.Label,
		RecordID:   r.RecordID,
		PrimaryKey: r.PrimaryKey,
		Fields:     r.Fields.Clone(),
	}
}

// Fingerprint - xxh3 хеш приведенных значений полей (в порядке полей).
// Используется для определения измененных строк перед push.
func (r *Row) Fingerprint() uint64 {
	data, err := RowToFields(r, nil).MarshalJSON()
	if err != nil {
		return 0
	}
	return xxh3.Hash(data)
}

// Table - упорядоченная коллекция строк с общей схемой колонок
type Table struct {
	Name       string
	IndexName  string
	PrimaryKey string
	Columns    []string
	Rows       []*Row
}

// NewTable создает пустую таблицу
func NewTable(name string, columns ...string) *Table {
	return &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
		Rows:    []*Row{},
	}
}

// Len возвращает количество строк
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append добавляет строку. Новые поля строки расширяют список колонок.
func (t *Table) Append(row *Row) {
	for _, k := range row.Fields.Keys() {
		if !t.HasColumn(k) {
			t.Columns = append(t.Columns, k)
		}
	}
	t.Rows = append(t.Rows, row)
}

// HasColumn проверяет наличие колонки
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// HasRecordIndex сообщает, что метки строк являются record id
func (t *Table) HasRecordIndex() bool {
	return t.IndexName == RecordIDIndex
}

// PrimaryKeyField возвращает поле первичного ключа:
// явно заданное, иначе первую колонку таблицы
func (t *Table) PrimaryKeyField() string {
	if t.PrimaryKey != "" {
		return t.PrimaryKey
	}
	if len(t.Columns) > 0 {
		return t.Columns[0]
	}
	return ""
}

// Schema строит схему колонок по значениям строк
func (t *Table) Schema() []schema.FieldDef {
	b := schema.NewBuilder()
	for _, c := range t.Columns {
		b.AddColumn(c)
	}
	for _, row := range t.Rows {
		row.Fields.Range(func(k string, v any) bool {
			b.Observe(k, v)
			return true
		})
	}
	if pk := t.PrimaryKeyField(); pk != "" {
		b.SetKey(pk)
	}
	return b.Build()
}

// Select возвращает новую таблицу из выбранных строк (индексы) и колонок.
// nil означает "все". Строки копируются и не связаны с исходной таблицей.
func (t *Table) Select(rows []int, columns []string) (*Table, error) {
	out := &Table{
		Name:       t.Name,
		IndexName:  t.IndexName,
		PrimaryKey: t.PrimaryKey,
		Columns:    t.Columns,
	}
	if columns != nil {
		for _, c := range columns {
			if !t.HasColumn(c) {
				return nil, fmt.Errorf("unknown column: %s", c)
			}
		}
		out.Columns = columns
	}
	out.Columns = append([]string(nil), out.Columns...)

	pick := func(row *Row) *Row {
		c := row.Clone()
		if columns != nil {
			c.Fields = row.Fields.Subset(columns)
		}
		return c
	}

	if rows == nil {
		out.Rows = make([]*Row, 0, len(t.Rows))
		for _, row := range t.Rows {
			out.Rows = append(out.Rows, pick(row))
		}
		return out, nil
	}

	out.Rows = make([]*Row, 0, len(rows))
	for _, i := range rows {
		if i < 0 || i >= len(t.Rows) {
			return nil, fmt.Errorf("row index out of range: %d (rows: %d)", i, len(t.Rows))
		}
		out.Rows = append(out.Rows, pick(t.Rows[i]))
	}
	return out, nil
}

// Flat возвращает строки как плоские map, где идентификатор записи
// объединен с полями под ключом индекса
func (t *Table) Flat() []map[string]any {
	indexName := t.IndexName
	if indexName == "" {
		indexName = RecordIDIndex
	}
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := row.Fields.Map()
		if id := rowLabel(row); id != "" {
			m[indexName] = id
		}
		out = append(out, m)
	}
	return out
}

// Fingerprints возвращает отпечатки всех строк
func (t *Table) Fingerprints() []uint64 {
	out := make([]uint64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Fingerprint()
	}
	return out
}

// MarshalJSON кодирует таблицу как список плоских строк
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Flat())
}

// LooksLikeRecordID проверяет форму идентификатора записи:
// ровно 17 символов и префикс "rec"
func LooksLikeRecordID(label string) bool {
	return len(label) == recordIDLength && strings.HasPrefix(label, recordIDPrefix)
}

func rowLabel(row *Row) string {
	if row.RecordID != "" {
		return row.RecordID
	}
	return row.Label
}
