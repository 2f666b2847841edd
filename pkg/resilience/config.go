package resilience

import (
	"fmt"
	"time"
)

// Config - конфигурация Circuit Breaker
type Config struct {
	// Enabled - включить Circuit Breaker
	Enabled bool `yaml:"enabled"`

	// Name - имя для логирования
	Name string `yaml:"name,omitempty"`

	// MaxFailures - количество последовательных сбоев для открытия
	MaxFailures uint32 `yaml:"max_failures"`

	// Timeout - время в Open состоянии перед переходом в Half-Open
	Timeout time.Duration `yaml:"timeout"`

	// SuccessThreshold - количество успешных вызовов в Half-Open для закрытия
	SuccessThreshold uint32 `yaml:"success_threshold"`

	// IsFailure - какие ошибки считаются сбоем.
	// nil = любая ошибка, кроме отмены контекста.
	IsFailure func(err error) bool `yaml:"-"`

	// OnStateChange вызывается синхронно при смене состояния
	OnStateChange func(name string, from, to State) `yaml:"-"`
}

// Validate - валидация конфигурации
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxFailures == 0 {
		return fmt.Errorf("max_failures must be greater than 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 1
	}
	if c.Name == "" {
		c.Name = "circuit-breaker"
	}
	return nil
}

// DefaultConfig: открытие после 5 сбоев подряд, пауза 60 секунд
func DefaultConfig(name string) Config {
	return Config{
		Enabled:          true,
		Name:             name,
		MaxFailures:      5,
		Timeout:          60 * time.Second,
		SuccessThreshold: 1,
	}
}
