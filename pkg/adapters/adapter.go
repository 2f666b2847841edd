package adapters

import (
	"context"
	"time"

	"github.com/ruslano69/tdtp-airtable/pkg/core/table"
	"github.com/ruslano69/tdtp-airtable/pkg/resilience"
	"github.com/ruslano69/tdtp-airtable/pkg/retry"
)

// Config - универсальная конфигурация подключения к удаленной таблице
type Config struct {
	// Type - тип backend: "airtable", "memory"
	Type string

	// BaseID - идентификатор базы (app...)
	BaseID string

	// APIKey - токен доступа (Bearer)
	APIKey string

	// Table - имя или идентификатор таблицы
	Table string

	// Endpoint - базовый URL API. Пустой = https://api.airtable.com/v0
	Endpoint string

	// Timeout - таймаут одного HTTP запроса
	Timeout time.Duration

	// Retry - повтор запросов при 429/5xx/сетевых ошибках
	Retry retry.Config

	// Breaker - отказ без запроса после серии транспортных сбоев
	Breaker resilience.Config
}

// Table - интерфейс удаленной таблицы.
// Реализуется каждым backend (Airtable REST, in-memory).
type Table interface {
	// Name возвращает имя таблицы
	Name() string

	// GetAll возвращает все записи таблицы
	GetAll(ctx context.Context) ([]*table.Record, error)

	// Get возвращает запись по идентификатору.
	// Отсутствующая запись - ошибка, для которой errors.Is(err, ErrNotFound).
	Get(ctx context.Context, id string) (*table.Record, error)

	// Search возвращает записи, у которых поле field равно value
	Search(ctx context.Context, field string, value any) ([]*table.Record, error)

	// Insert создает запись
	Insert(ctx context.Context, fields *table.Fields, typecast bool) (*table.Record, error)

	// Update частично обновляет запись (только переданные поля)
	Update(ctx context.Context, id string, fields *table.Fields, typecast bool) (*table.Record, error)

	// Delete удаляет запись
	Delete(ctx context.Context, id string) (*DeleteResult, error)
}

// DeleteResult - подтверждение удаления
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// DefaultConfig возвращает конфигурацию по умолчанию для Airtable
func DefaultConfig() Config {
	return Config{
		Type:    "airtable",
		Timeout: 30 * time.Second,
		Retry:   DefaultRetryConfig(),
		Breaker: resilience.DefaultConfig("airtable"),
	}
}

// DefaultRetryConfig - повтор при rate limit (5 req/s на базу) и 5xx
func DefaultRetryConfig() retry.Config {
	cfg := retry.EnableRetry(5, 500*time.Millisecond)
	cfg.MaxDelay = 30 * time.Second
	return cfg
}
