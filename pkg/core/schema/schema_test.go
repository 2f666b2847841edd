package schema

import (
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"
)

func TestCoerceIntegers(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"int", int(42), int64(42)},
		{"int8", int8(-7), int64(-7)},
		{"int16", int16(300), int64(300)},
		{"int32", int32(42), int64(42)},
		{"int64", int64(42), int64(42)},
		{"uint8", uint8(255), int64(255)},
		{"uint32", uint32(42), int64(42)},
		{"uint64 small", uint64(42), int64(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coerce(tt.input)
			if got != tt.want {
				t.Errorf("Coerce(%v) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCoerceLargeUnsigned(t *testing.T) {
	got := Coerce(uint64(math.MaxUint64))
	bi, ok := got.(*big.Int)
	if !ok {
		t.Fatalf("Coerce(MaxUint64) = %T, want *big.Int", got)
	}
	if bi.String() != "18446744073709551615" {
		t.Errorf("unexpected value: %s", bi.String())
	}
}

func TestCoerceMissing(t *testing.T) {
	var nilPtr *int
	inputs := []any{nil, math.NaN(), float32(math.NaN()), nilPtr, time.Time{}}

	for _, in := range inputs {
		if got := Coerce(in); got != nil {
			t.Errorf("Coerce(%#v) = %#v, want nil", in, got)
		}
		if !IsMissing(in) {
			t.Errorf("IsMissing(%#v) = false, want true", in)
		}
	}
}

func TestCoerceListPassthrough(t *testing.T) {
	list := []any{1, 2, 3}
	got := Coerce(list)
	if !reflect.DeepEqual(got, list) {
		t.Errorf("Coerce(list) = %#v, want %#v", got, list)
	}

	// Элементы списка не приводятся
	if got.([]any)[0] != 1 {
		t.Errorf("list element changed: %#v", got.([]any)[0])
	}

	strs := []string{"a", "b"}
	if !reflect.DeepEqual(Coerce(strs), strs) {
		t.Errorf("typed slice must pass through unchanged")
	}
}

func TestCoerceOtherValues(t *testing.T) {
	now := time.Now()
	v := 42
	tests := []struct {
		input any
		want  any
	}{
		{"text", "text"},
		{true, true},
		{3.5, 3.5},
		{now, now},
		{&v, int64(42)},
	}

	for _, tt := range tests {
		if got := Coerce(tt.input); got != tt.want {
			t.Errorf("Coerce(%#v) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestCoerceIdempotent(t *testing.T) {
	inputs := []any{int32(1), uint64(math.MaxUint64), math.NaN(), "x", []any{"a"}, 2.5, false}
	for _, in := range inputs {
		once := Coerce(in)
		twice := Coerce(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Coerce not idempotent for %#v: %#v vs %#v", in, once, twice)
		}
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		input any
		want  DataType
	}{
		{nil, TypeNull},
		{int32(5), TypeInteger},
		{5.5, TypeReal},
		{"abc", TypeText},
		{true, TypeBoolean},
		{time.Now(), TypeDatetime},
		{[]any{"a", "b"}, TypeList},
		{[]string{"a"}, TypeList},
		{[]any{map[string]any{"url": "https://x"}}, TypeAttachment},
	}

	for _, tt := range tests {
		if got := InferType(tt.input); got != tt.want {
			t.Errorf("InferType(%#v) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestMergeTypes(t *testing.T) {
	tests := []struct {
		a, b DataType
		want DataType
	}{
		{TypeInteger, TypeInteger, TypeInteger},
		{TypeNull, TypeText, TypeText},
		{TypeInteger, TypeNull, TypeInteger},
		{TypeInteger, TypeReal, TypeReal},
		{TypeAttachment, TypeList, TypeList},
		{TypeBoolean, TypeText, TypeText},
	}

	for _, tt := range tests {
		if got := MergeTypes(tt.a, tt.b); got != tt.want {
			t.Errorf("MergeTypes(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder()
	b.Observe("Name", "Alice").
		Observe("Age", 30).
		Observe("Age", 30.5).
		Observe("Tags", nil).
		SetKey("Name")

	fields := b.Build()
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}

	want := []FieldDef{
		{Name: "Name", Type: TypeText, Key: true, Nullable: true},
		{Name: "Age", Type: TypeReal, Nullable: true},
		{Name: "Tags", Type: TypeText, Nullable: true},
	}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("Build() = %+v, want %+v", fields, want)
	}

	if !b.HasKeyField() {
		t.Error("expected key field")
	}

	b.Reset()
	if b.FieldCount() != 0 {
		t.Errorf("expected empty builder after Reset, got %d fields", b.FieldCount())
	}
}

func TestTypeValidation(t *testing.T) {
	if !IsValidType(TypeAttachment) {
		t.Error("ATTACHMENT must be valid")
	}
	if IsValidType(DataType("BLOB")) {
		t.Error("BLOB must be invalid")
	}
	if IsScalarType(TypeList) {
		t.Error("LIST is not scalar")
	}
}
