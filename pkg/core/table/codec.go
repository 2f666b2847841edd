package table

import (
	"fmt"
	"strings"

	"github.com/ruslano69/tdtp-airtable/pkg/core/schema"
)

// RecordToRow конвертирует запись в строку: поля переносятся как есть,
// идентификатор записи становится RecordID и меткой строки
func RecordToRow(rec *Record) *Row {
	return &Row{
		Label:    rec.ID,
		RecordID: rec.ID,
		Fields:   rec.Fields.Clone(),
	}
}

// RowToFields возвращает поля строки для отправки в API.
// subset != nil ограничивает набор полей; каждое значение проходит Coerce.
func RowToFields(row *Row, subset []string) *Fields {
	src := row.Fields
	if subset != nil {
		src = src.Subset(subset)
	}
	return CoerceFields(src)
}

// CoerceFields применяет schema.Coerce ко всем значениям
func CoerceFields(fields *Fields) *Fields {
	out := NewFields()
	fields.Range(func(k string, v any) bool {
		out.Set(k, schema.Coerce(v))
		return true
	})
	return out
}

// RecordsToTable строит таблицу по записям: одна строка на запись.
// Колонки - объединение полей записей в порядке первого появления;
// отсутствующие в записи поля получают nil.
func RecordsToTable(records []*Record) *Table {
	t := NewTable("")
	t.IndexName = RecordIDIndex

	for _, rec := range records {
		rec.Fields.Range(func(k string, _ any) bool {
			if !t.HasColumn(k) {
				t.Columns = append(t.Columns, k)
			}
			return true
		})
	}

	t.Rows = make([]*Row, 0, len(records))
	for _, rec := range records {
		row := RecordToRow(rec)
		row.Fields = padFields(row.Fields, t.Columns)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FromFlat строит таблицу из плоских строк (обратная операция к Table.Flat).
// Если строка содержит ключ indexName, он становится меткой строки;
// для indexName == RecordIDIndex метка также становится RecordID.
func FromFlat(name string, columns []string, rows []map[string]any, indexName string) (*Table, error) {
	t := NewTable(name, columns...)
	t.IndexName = indexName

	for i, m := range rows {
		var label string
		if indexName != "" {
			if v, ok := m[indexName]; ok && v != nil {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("row %d: index '%s' must be a string, got %T", i, indexName, v)
				}
				label = s
			}
		}
		data := make(map[string]any, len(m))
		for k, v := range m {
			if k != indexName {
				data[k] = v
			}
		}
		row := NewRow(FieldsFromMap(data, t.Columns))
		row.Label = label
		if indexName == RecordIDIndex {
			row.RecordID = label
		}
		t.Append(row)
	}

	for _, row := range t.Rows {
		row.Fields = padFields(row.Fields, t.Columns)
	}
	return t, nil
}

// UnpackList упрощает списочное значение: список из одного элемента
// становится этим элементом, список строк объединяется через delimiter.
// Прочие значения возвращаются как есть.
func UnpackList(v any, delimiter string) any {
	switch x := v.(type) {
	case []any:
		if len(x) == 1 {
			return x[0]
		}
		parts := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return v
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, delimiter)
	case []string:
		if len(x) == 1 {
			return x[0]
		}
		return strings.Join(x, delimiter)
	default:
		return v
	}
}

// padFields возвращает поля в порядке columns, недостающие заполняются nil.
// Поля вне columns сохраняются в конце.
func padFields(fields *Fields, columns []string) *Fields {
	out := NewFields()
	for _, c := range columns {
		v, _ := fields.Get(c)
		out.Set(c, v)
	}
	fields.Range(func(k string, v any) bool {
		if !out.Has(k) {
			out.Set(k, v)
		}
		return true
	})
	return out
}
