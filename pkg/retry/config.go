package retry

import (
	"fmt"
	"math"
	"time"
)

// BackoffStrategy - рост задержки между попытками
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// Config - параметры повтора запросов к удаленной таблице.
// Длительности в YAML задаются строками: "500ms", "30s".
type Config struct {
	Enabled bool `yaml:"enabled"`

	// MaxAttempts - число попыток, включая первую. 0 = без ограничения.
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay ограничивает и backoff, и подсказку Retry-After
	MaxDelay time.Duration `yaml:"max_delay"`

	// BackoffStrategy - пустое значение = exponential
	BackoffStrategy BackoffStrategy `yaml:"backoff"`

	// BackoffMultiplier - основание exponential backoff, 0 = 2
	BackoffMultiplier float64 `yaml:"multiplier"`

	// Jitter - доля случайного разброса задержки, 0..1
	Jitter float64 `yaml:"jitter"`

	// IsRetryable классифицирует ошибку.
	// nil = повторять все, кроме Permanent и ошибок контекста.
	IsRetryable func(err error) bool `yaml:"-"`

	// OnRetry вызывается перед ожиданием очередного повтора
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// Validate проверяет конфигурацию. Выключенный retry не проверяется.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.MaxAttempts < 0:
		return fmt.Errorf("max_attempts must be >= 0, got %d", c.MaxAttempts)
	case c.InitialDelay < 0:
		return fmt.Errorf("initial_delay must be >= 0, got %v", c.InitialDelay)
	case c.MaxDelay < c.InitialDelay:
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	case c.BackoffMultiplier < 0:
		return fmt.Errorf("multiplier must be >= 0, got %v", c.BackoffMultiplier)
	case c.Jitter < 0 || c.Jitter > 1:
		return fmt.Errorf("jitter must be between 0 and 1, got %v", c.Jitter)
	}
	switch c.BackoffStrategy {
	case "", BackoffConstant, BackoffLinear, BackoffExponential:
		return nil
	default:
		return fmt.Errorf("invalid backoff strategy: %s", c.BackoffStrategy)
	}
}

// Delay - задержка перед повтором после попытки attempt (с 1), без jitter
func (c Config) Delay(attempt int) time.Duration {
	var delay time.Duration
	switch c.BackoffStrategy {
	case BackoffConstant:
		delay = c.InitialDelay
	case BackoffLinear:
		delay = c.InitialDelay * time.Duration(attempt)
	default:
		multiplier := c.BackoffMultiplier
		if multiplier == 0 {
			multiplier = 2
		}
		delay = time.Duration(float64(c.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	}
	if delay > c.MaxDelay || delay < 0 {
		delay = c.MaxDelay
	}
	return delay
}

// DefaultConfig - выключенный retry с параметрами под rate limit
// Airtable (5 запросов в секунду, пауза до 30 секунд после 429)
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       5,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffStrategy:   BackoffExponential,
		BackoffMultiplier: 2,
		Jitter:            0.2,
	}
}

// EnableRetry - DefaultConfig с включенным retry
func EnableRetry(maxAttempts int, initialDelay time.Duration) Config {
	c := DefaultConfig()
	c.Enabled = true
	c.MaxAttempts = maxAttempts
	c.InitialDelay = initialDelay
	if c.MaxDelay < initialDelay {
		c.MaxDelay = initialDelay
	}
	return c
}
