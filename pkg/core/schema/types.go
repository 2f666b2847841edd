package schema

import (
	"fmt"
	"math/big"
	"time"
)

// DataType представляет тип данных колонки таблицы
type DataType string

// Типы значений, которые принимает Airtable API, плюс производные типы
// для выгрузки в файлы (xlsx, snapshot)
const (
	TypeInteger    DataType = "INTEGER"
	TypeReal       DataType = "REAL"
	TypeText       DataType = "TEXT"
	TypeBoolean    DataType = "BOOLEAN"
	TypeDatetime   DataType = "DATETIME"
	TypeList       DataType = "LIST"
	TypeAttachment DataType = "ATTACHMENT"
	TypeNull       DataType = "NULL"
)

// FieldDef описывает одну колонку таблицы
type FieldDef struct {
	Name     string
	Type     DataType
	Key      bool
	Nullable bool
}

// ValidationError ошибка проверки значения колонки
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: '%v')",
		e.Field, e.Message, e.Value)
}

// IsNumericType проверяет является ли тип числовым
func IsNumericType(t DataType) bool {
	return t == TypeInteger || t == TypeReal
}

// IsScalarType проверяет является ли тип скалярным (не список)
func IsScalarType(t DataType) bool {
	switch t {
	case TypeInteger, TypeReal, TypeText, TypeBoolean, TypeDatetime, TypeNull:
		return true
	default:
		return false
	}
}

// IsValidType проверяет валидность типа данных
func IsValidType(t DataType) bool {
	switch t {
	case TypeInteger, TypeReal, TypeText, TypeBoolean,
		TypeDatetime, TypeList, TypeAttachment, TypeNull:
		return true
	default:
		return false
	}
}

// InferType определяет тип значения после Coerce.
// Список из объектов с ключом "url" считается вложением (attachment).
func InferType(v any) DataType {
	switch x := Coerce(v).(type) {
	case nil:
		return TypeNull
	case int64, *big.Int:
		return TypeInteger
	case float32, float64:
		return TypeReal
	case bool:
		return TypeBoolean
	case string:
		return TypeText
	case time.Time:
		return TypeDatetime
	case []any:
		if isAttachmentList(x) {
			return TypeAttachment
		}
		return TypeList
	default:
		if isSlice(x) {
			return TypeList
		}
		return TypeText
	}
}

// MergeTypes возвращает общий тип для двух наблюдений одной колонки.
// NULL не влияет на тип; INTEGER+REAL дает REAL; прочие конфликты - TEXT.
func MergeTypes(a, b DataType) DataType {
	switch {
	case a == b:
		return a
	case a == TypeNull || a == "":
		return b
	case b == TypeNull || b == "":
		return a
	case IsNumericType(a) && IsNumericType(b):
		return TypeReal
	case (a == TypeList && b == TypeAttachment) || (a == TypeAttachment && b == TypeList):
		return TypeList
	default:
		return TypeText
	}
}

func isAttachmentList(items []any) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := m["url"]; !ok {
			return false
		}
	}
	return true
}
