package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/tdtp-airtable/pkg/bind"
)

// Config - подключение к Redis и имя результата
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Name - имя результата в ключах Redis
	Name string `yaml:"name"`
	// TTL - время жизни ключа состояния, секунды (0 = без срока)
	TTL int `yaml:"ttl"`
}

// PushResult представляет итог push/upload, публикуемый в Redis.
//
// Redis-ключи:
//
//	SET  tdtp:airtable:<name>:state  <JSON>  EX <ttl>  - для GET-запросов оркестратора
//	PUB  tdtp:airtable:<name>                          - для event-driven маршрутизации
type PushResult struct {
	ResultName string       `json:"result_name"`
	Table      string       `json:"table"`
	Mode       string       `json:"mode"`
	Status     string       `json:"status"` // "success" | "partial" | "failed"
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	DurationMs int64        `json:"duration_ms"`
	Summary    bind.Summary `json:"summary"`
	FailedRows []FailedRow  `json:"failed_rows,omitempty"`
	Error      *string      `json:"error,omitempty"`
}

// FailedRow - строка, которую не удалось записать
type FailedRow struct {
	Index int    `json:"index"`
	Label string `json:"label,omitempty"`
	Error string `json:"error"`
}

// NewPushResult строит результат по отчету push.
// execErr != nil означает, что push прерван целиком.
func NewPushResult(name string, report *bind.Report, execErr error) PushResult {
	result := PushResult{ResultName: name, FinishedAt: time.Now()}
	if report != nil {
		result.Table = report.Table
		result.Mode = string(report.Mode)
		result.StartedAt = report.Started
		result.DurationMs = report.Duration.Milliseconds()
		result.Summary = report.Summary
		for _, rr := range report.Failed() {
			result.FailedRows = append(result.FailedRows, FailedRow{Index: rr.Index, Label: rr.Label, Error: rr.Error})
		}
	}

	switch {
	case execErr != nil || report == nil:
		result.Status = "failed"
		if execErr != nil {
			errStr := execErr.Error()
			result.Error = &errStr
		}
	case report.Summary.Failed > 0 || report.Summary.Partial > 0:
		result.Status = "partial"
	default:
		result.Status = "success"
	}
	return result
}

// RedisPublisher публикует результат push в Redis
type RedisPublisher struct {
	client *redis.Client
	config Config
}

// NewRedisPublisher создает новый Redis publisher на основе конфигурации
func NewRedisPublisher(config Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisPublisher{client: client, config: config}
}

// StateKey - ключ последнего состояния
func (p *RedisPublisher) StateKey() string {
	return fmt.Sprintf("tdtp:airtable:%s:state", p.config.Name)
}

// Channel - канал событий
func (p *RedisPublisher) Channel() string {
	return fmt.Sprintf("tdtp:airtable:%s", p.config.Name)
}

// Publish публикует результат:
//   - SET tdtp:airtable:<name>:state <JSON> EX <ttl>  → для опроса (polling)
//   - PUBLISH tdtp:airtable:<name> <JSON>              → для подписки (pub/sub)
//
// Вызывается независимо от результата push.
func (p *RedisPublisher) Publish(ctx context.Context, report *bind.Report, execErr error) error {
	payload, err := json.Marshal(NewPushResult(p.config.Name, report, execErr))
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ttl := time.Duration(p.config.TTL) * time.Second

	if err := p.client.Set(ctx, p.StateKey(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
