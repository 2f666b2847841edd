package schema

// Builder строит схему таблицы по наблюдаемым значениям.
// Порядок колонок - порядок первого появления имени.
type Builder struct {
	fields []FieldDef
	index  map[string]int
}

// NewBuilder создает новый builder
func NewBuilder() *Builder {
	return &Builder{
		fields: []FieldDef{},
		index:  make(map[string]int),
	}
}

// AddColumn добавляет колонку без наблюдений (тип NULL до первого значения)
func (b *Builder) AddColumn(name string) *Builder {
	if _, ok := b.index[name]; ok {
		return b
	}
	b.index[name] = len(b.fields)
	b.fields = append(b.fields, FieldDef{Name: name, Type: TypeNull, Nullable: true})
	return b
}

// Observe учитывает значение колонки и уточняет ее тип
func (b *Builder) Observe(name string, value any) *Builder {
	b.AddColumn(name)
	i := b.index[name]
	b.fields[i].Type = MergeTypes(b.fields[i].Type, InferType(value))
	return b
}

// SetKey помечает колонку как первичный ключ
func (b *Builder) SetKey(name string) *Builder {
	b.AddColumn(name)
	for i := range b.fields {
		b.fields[i].Key = b.fields[i].Name == name
	}
	return b
}

// Build возвращает построенную схему. Колонки без значений получают тип TEXT.
func (b *Builder) Build() []FieldDef {
	out := make([]FieldDef, len(b.fields))
	copy(out, b.fields)
	for i := range out {
		if out[i].Type == TypeNull {
			out[i].Type = TypeText
		}
	}
	return out
}

// Reset очищает builder
func (b *Builder) Reset() *Builder {
	b.fields = []FieldDef{}
	b.index = make(map[string]int)
	return b
}

// FieldCount возвращает количество полей
func (b *Builder) FieldCount() int {
	return len(b.fields)
}

// HasKeyField проверяет наличие первичного ключа
func (b *Builder) HasKeyField() bool {
	for _, field := range b.fields {
		if field.Key {
			return true
		}
	}
	return false
}
