package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Fields - упорядоченное отображение имя поля -> значение.
// Порядок вставки сохраняется при JSON decode/encode: от него зависит
// порядок попыток в поштучных (field-by-field) fallback записях.
type Fields struct {
	keys   []string
	values map[string]any
}

// NewFields создает пустой набор полей
func NewFields() *Fields {
	return &Fields{values: make(map[string]any)}
}

// FieldsOf создает набор полей из пар ключ/значение: FieldsOf("a", 1, "b", 2).
// Нечетный хвост и нестроковые ключи игнорируются.
func FieldsOf(kv ...any) *Fields {
	f := NewFields()
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		f.Set(k, kv[i+1])
	}
	return f
}

// FieldsFromMap создает набор полей из map в порядке order.
// Ключи map, отсутствующие в order, добавляются в конец по алфавиту.
func FieldsFromMap(m map[string]any, order []string) *Fields {
	f := NewFields()
	for _, k := range order {
		if v, ok := m[k]; ok {
			f.Set(k, v)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !f.Has(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		f.Set(k, m[k])
	}
	return f
}

func (f *Fields) init() {
	if f.values == nil {
		f.values = make(map[string]any)
	}
}

// Set устанавливает значение поля; новое поле добавляется в конец
func (f *Fields) Set(name string, value any) {
	f.init()
	if _, ok := f.values[name]; !ok {
		f.keys = append(f.keys, name)
	}
	f.values[name] = value
}

// Get возвращает значение поля
func (f *Fields) Get(name string) (any, bool) {
	if f == nil || f.values == nil {
		return nil, false
	}
	v, ok := f.values[name]
	return v, ok
}

// Has проверяет наличие поля
func (f *Fields) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Delete удаляет поле
func (f *Fields) Delete(name string) {
	if f == nil || f.values == nil {
		return
	}
	if _, ok := f.values[name]; !ok {
		return
	}
	delete(f.values, name)
	for i, k := range f.keys {
		if k == name {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys возвращает копию списка имен полей в порядке вставки
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len возвращает количество полей
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Range обходит поля в порядке вставки; fn возвращает false для остановки
func (f *Fields) Range(fn func(name string, value any) bool) {
	if f == nil {
		return
	}
	for _, k := range f.keys {
		if !fn(k, f.values[k]) {
			return
		}
	}
}

// Subset возвращает поля из names, сохраняя порядок исходного набора.
// names == nil означает все поля.
func (f *Fields) Subset(names []string) *Fields {
	if names == nil {
		return f.Clone()
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := NewFields()
	f.Range(func(k string, v any) bool {
		if want[k] {
			out.Set(k, v)
		}
		return true
	})
	return out
}

// Clone возвращает поверхностную копию
func (f *Fields) Clone() *Fields {
	out := NewFields()
	f.Range(func(k string, v any) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// Merge копирует все поля other поверх текущих
func (f *Fields) Merge(other *Fields) {
	other.Range(func(k string, v any) bool {
		f.Set(k, v)
		return true
	})
}

// Map возвращает копию в виде map
func (f *Fields) Map() map[string]any {
	out := make(map[string]any, f.Len())
	f.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// Equal сравнивает наборы полей с учетом порядка
func (f *Fields) Equal(other *Fields) bool {
	if f.Len() != other.Len() {
		return false
	}
	for i, k := range f.Keys() {
		if other.keys[i] != k {
			return false
		}
		if !reflect.DeepEqual(f.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

// String - отладочное представление
func (f *Fields) String() string {
	data, err := f.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Fields(%d)", f.Len())
	}
	return string(data)
}

// MarshalJSON кодирует поля как JSON-объект в порядке вставки
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field '%s': %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON декодирует JSON-объект, сохраняя порядок ключей.
// Целые числа становятся int64, остальные числа - float64.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		f.keys = nil
		f.values = make(map[string]any)
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected JSON object, got %v", tok)
	}

	f.keys = nil
	f.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fields: expected string key, got %v", tok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("fields: failed to decode '%s': %w", key, err)
		}
		f.Set(key, normalizeNumbers(raw))
	}
	_, err = dec.Token()
	return err
}

// normalizeNumbers заменяет json.Number на int64/float64 рекурсивно
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if fl, err := x.Float64(); err == nil {
			return fl
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	default:
		return v
	}
}
