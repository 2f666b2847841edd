package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errRemote = errors.New("503 service unavailable")

func newTestBreaker(t *testing.T, config Config) (*CircuitBreaker, *time.Time) {
	t.Helper()
	cb, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

func fail(ctx context.Context) error    { return errRemote }
func succeed(ctx context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	config := DefaultConfig("test")
	config.MaxFailures = 3
	cb, _ := newTestBreaker(t, config)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, fail); !errors.Is(err, errRemote) {
			t.Fatalf("call %d: expected remote error, got %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %v", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("function must not run while open")
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	config := DefaultConfig("test")
	config.MaxFailures = 2
	cb, _ := newTestBreaker(t, config)
	ctx := context.Background()

	cb.Execute(ctx, fail)
	cb.Execute(ctx, succeed)
	cb.Execute(ctx, fail)

	if cb.State() != StateClosed {
		t.Errorf("expected closed, got %v", cb.State())
	}
	if got := cb.Counts().ConsecutiveFailures; got != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", got)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	config := DefaultConfig("test")
	config.MaxFailures = 1
	config.Timeout = time.Minute
	config.SuccessThreshold = 2

	var transitions []string
	config.OnStateChange = func(name string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	cb, clock := newTestBreaker(t, config)
	ctx := context.Background()

	cb.Execute(ctx, fail)
	*clock = clock.Add(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %v", cb.State())
	}

	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed, got %v", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	config := DefaultConfig("test")
	config.MaxFailures = 1
	config.Timeout = time.Second
	cb, clock := newTestBreaker(t, config)
	ctx := context.Background()

	cb.Execute(ctx, fail)
	*clock = clock.Add(time.Second)
	cb.Execute(ctx, fail)

	if cb.State() != StateOpen {
		t.Errorf("expected open, got %v", cb.State())
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	rejected := errors.New("422 unknown field")
	config := DefaultConfig("test")
	config.MaxFailures = 1
	config.IsFailure = func(err error) bool { return !errors.Is(err, rejected) }
	cb, _ := newTestBreaker(t, config)
	ctx := context.Background()

	cb.Execute(ctx, func(ctx context.Context) error { return rejected })
	cb.Execute(ctx, func(ctx context.Context) error { return context.Canceled })
	if cb.State() != StateClosed {
		t.Errorf("caller errors must not open the circuit, got %v", cb.State())
	}

	cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Errorf("expected open, got %v", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("expected closed after Reset, got %v", cb.State())
	}
}

func TestCircuitBreaker_Disabled(t *testing.T) {
	cb, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		cb.Execute(context.Background(), fail)
	}
	if cb.State() != StateClosed {
		t.Errorf("disabled breaker must stay closed, got %v", cb.State())
	}
}

func TestConfig_Validate(t *testing.T) {
	config := Config{Enabled: true, Timeout: time.Second}
	if err := config.Validate(); err == nil {
		t.Error("expected error for MaxFailures = 0")
	}

	config = Config{Enabled: true, MaxFailures: 1}
	if err := config.Validate(); err == nil {
		t.Error("expected error for Timeout = 0")
	}

	config = Config{Enabled: true, MaxFailures: 1, Timeout: time.Second}
	if err := config.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.SuccessThreshold != 1 || config.Name == "" {
		t.Errorf("defaults not applied: %+v", config)
	}
}
