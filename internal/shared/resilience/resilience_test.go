package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesRetryableErrors(t *testing.T) {
	exec := NewExecutor(fastConfig())
	errFlaky := errors.New("flaky")

	calls := 0
	err := exec.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	}, func(err error) bool { return errors.Is(err, errFlaky) })

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestExecuteDoesNotRetryNonRetryable(t *testing.T) {
	exec := NewExecutor(fastConfig())
	errFatal := errors.New("fatal")

	calls := 0
	err := exec.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errFatal
	}, func(err error) bool { return false })

	if !errors.Is(err, errFatal) {
		t.Fatalf("Execute error = %v, want fatal error", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	exec := NewExecutor(fastConfig())
	errFlaky := errors.New("flaky")

	calls := 0
	err := exec.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errFlaky
	}, func(err error) bool { return true })

	if !errors.Is(err, errFlaky) {
		t.Fatalf("Execute error = %v, want flaky error", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want RetryMaxAttempts", calls)
	}
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Execute(ctx, "op", func(ctx context.Context) error {
		t.Fatalf("callback must not run with a cancelled context")
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute error = %v, want context.Canceled", err)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 3
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.RetryMaxAttempts = 1
	exec := NewExecutor(cfg)

	errDown := errors.New("down")
	for i := 0; i < 3; i++ {
		exec.Execute(context.Background(), "op", func(ctx context.Context) error {
			return errDown
		}, nil)
	}

	err := exec.Execute(context.Background(), "op", func(ctx context.Context) error {
		t.Fatalf("callback must not run while the breaker is open")
		return nil
	}, nil)
	if !IsCircuitOpen(err) {
		t.Fatalf("Execute error = %v, want open-circuit error", err)
	}
}

func TestBreakersArePerOperation(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.RetryMaxAttempts = 1
	exec := NewExecutor(cfg)

	errDown := errors.New("down")
	for i := 0; i < 2; i++ {
		exec.Execute(context.Background(), "submit", func(ctx context.Context) error {
			return errDown
		}, nil)
	}

	if err := exec.Execute(context.Background(), "classify", func(ctx context.Context) error {
		return nil
	}, nil); err != nil {
		t.Fatalf("classify should be unaffected by submit's breaker: %v", err)
	}
}
