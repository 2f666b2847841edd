package adapters

import (
	"fmt"
	"sort"
	"sync"
)

// TableConstructor - функция-конструктор удаленной таблицы по конфигурации
type TableConstructor func(cfg Config) (Table, error)

// Factory - фабрика для создания удаленных таблиц.
// Управляет регистрацией backend различных типов.
type Factory struct {
	registry map[string]TableConstructor
	mu       sync.RWMutex
}

// NewFactory создает новую фабрику
func NewFactory() *Factory {
	return &Factory{
		registry: make(map[string]TableConstructor),
	}
}

// Register регистрирует конструктор для типа backend
//
// Пример:
//
//	factory.Register("airtable", func(cfg adapters.Config) (adapters.Table, error) {
//	    return airtable.NewTable(cfg)
//	})
func (f *Factory) Register(backend string, constructor TableConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[backend] = constructor
}

// Unregister удаляет конструктор
func (f *Factory) Unregister(backend string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registry, backend)
}

// IsRegistered проверяет, зарегистрирован ли backend
func (f *Factory) IsRegistered(backend string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.registry[backend]
	return ok
}

// GetRegisteredTypes возвращает отсортированный список зарегистрированных типов
func (f *Factory) GetRegisteredTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.registry))
	for backend := range f.registry {
		types = append(types, backend)
	}
	sort.Strings(types)
	return types
}

// Create создает удаленную таблицу по конфигурации
//
// Пример:
//
//	tbl, err := factory.Create(adapters.Config{
//	    Type:   "airtable",
//	    BaseID: "appXXXXXXXXXXXXXX",
//	    APIKey: os.Getenv("AIRTABLE_API_KEY"),
//	    Table:  "Experiments",
//	})
func (f *Factory) Create(cfg Config) (Table, error) {
	f.mu.RLock()
	constructor, ok := f.registry[cfg.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown backend type: %s (available types: %v)",
			cfg.Type, f.GetRegisteredTypes())
	}

	tbl, err := constructor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s table: %w", cfg.Type, err)
	}
	return tbl, nil
}

// ========== Global Factory ==========

var globalFactory = NewFactory()

// Register регистрирует backend в глобальной фабрике.
// Обычно вызывается в init() пакета backend.
func Register(backend string, constructor TableConstructor) {
	globalFactory.Register(backend, constructor)
}

// Unregister удаляет backend из глобальной фабрики
func Unregister(backend string) {
	globalFactory.Unregister(backend)
}

// IsRegistered проверяет регистрацию в глобальной фабрике
func IsRegistered(backend string) bool {
	return globalFactory.IsRegistered(backend)
}

// GetRegisteredTypes возвращает типы из глобальной фабрики
func GetRegisteredTypes() []string {
	return globalFactory.GetRegisteredTypes()
}

// New создает удаленную таблицу через глобальную фабрику
func New(cfg Config) (Table, error) {
	return globalFactory.Create(cfg)
}
