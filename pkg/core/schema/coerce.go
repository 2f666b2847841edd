package schema

import (
	"math"
	"math/big"
	"reflect"
	"time"
)

// Coerce приводит значение к множеству типов, которые принимает
// Airtable API: список, целое, число с плавающей точкой, строка,
// логическое значение или null.
//
//   - любой slice/array возвращается без изменений;
//   - целые фиксированной ширины становятся int64, беззнаковые
//     больше math.MaxInt64 - *big.Int;
//   - NaN, nil, nil-указатель и нулевой time.Time становятся nil;
//   - остальные значения возвращаются без изменений.
//
// Функция тотальная и идемпотентная: Coerce(Coerce(v)) == Coerce(v).
func Coerce(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return coerceUnsigned(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return coerceUnsigned(x)
	case float32:
		if math.IsNaN(float64(x)) {
			return nil
		}
		return x
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x
	case *big.Int:
		if x == nil {
			return nil
		}
		return x
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		// Список проходит без изменений, даже nil-slice
		return v
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Pointer {
			return Coerce(rv.Elem().Interface())
		}
	}
	return v
}

// IsMissing проверяет является ли значение отсутствующим (NaN-подобным)
func IsMissing(v any) bool {
	return Coerce(v) == nil
}

func coerceUnsigned(u uint64) any {
	if u > math.MaxInt64 {
		return new(big.Int).SetUint64(u)
	}
	return int64(u)
}

func isSlice(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
