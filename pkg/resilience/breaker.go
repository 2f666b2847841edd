// Package resilience защищает удаленный сервис от серии запросов,
// обреченных на неудачу: после MaxFailures сбоев подряд вызовы
// отклоняются сразу, до истечения Timeout.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen - circuit breaker открыт, вызов не выполнялся
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State - состояние Circuit Breaker
type State int

const (
	// StateClosed - нормальная работа, запросы проходят
	StateClosed State = iota

	// StateHalfOpen - пробные запросы после паузы
	StateHalfOpen

	// StateOpen - запросы отклоняются
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Counts - счетчики текущего поколения
type Counts struct {
	Requests             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// CircuitBreaker - защита от каскадных сбоев
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu     sync.Mutex
	state  State
	counts Counts
	expiry time.Time
}

// New создает Circuit Breaker
func New(config Config) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	return &CircuitBreaker{config: config, now: time.Now}, nil
}

// Execute выполняет fn, если circuit не открыт.
// Ошибка fn возвращается без изменений.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.config.Enabled {
		return fn(ctx)
	}

	if err := cb.before(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.after(cb.isFailure(err))
	return err
}

// State возвращает текущее состояние (с учетом истекшей паузы)
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && !cb.now().Before(cb.expiry) {
		return StateHalfOpen
	}
	return cb.state
}

// Counts возвращает счетчики
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset возвращает circuit в Closed
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
}

func (cb *CircuitBreaker) isFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if cb.config.IsFailure != nil {
		return cb.config.IsFailure(err)
	}
	return true
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Before(cb.expiry) {
			return fmt.Errorf("%s: %w (retry in %v)", cb.config.Name, ErrCircuitOpen,
				cb.expiry.Sub(cb.now()).Round(time.Second))
		}
		cb.setState(StateHalfOpen)
	}
	cb.counts.Requests++
	return nil
}

func (cb *CircuitBreaker) after(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if failed {
		cb.counts.ConsecutiveFailures++
		cb.counts.ConsecutiveSuccesses = 0
		if cb.state == StateHalfOpen || cb.counts.ConsecutiveFailures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
		return
	}

	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0
	if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
		cb.setState(StateClosed)
	}
}

// setState вызывается под mu
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.counts = Counts{}
	if to == StateOpen {
		cb.expiry = cb.now().Add(cb.config.Timeout)
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
