package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		ErrTimeout,
		ErrConnection,
		ErrTemporaryFailure,
		ErrServiceUnavailable,
		context.DeadlineExceeded,
		fmt.Errorf("inventory: %w", ErrTimeout),
	}
	for _, err := range retryable {
		if !IsRetryable(err) {
			t.Fatalf("expected %v to be retryable", err)
		}
	}

	notRetryable := []error{
		nil,
		errors.New("validation failed"),
		ErrOutOfStock,
		ErrInvalidTransition,
	}
	for _, err := range notRetryable {
		if IsRetryable(err) {
			t.Fatalf("expected %v to not be retryable", err)
		}
	}
}

func TestShouldRetryStopsAtMaxAttempts(t *testing.T) {
	policy := DefaultRetryPolicy()
	if !policy.ShouldRetry(1, ErrTimeout) {
		t.Fatal("attempt 1 of 3 must retry")
	}
	if !policy.ShouldRetry(2, ErrTimeout) {
		t.Fatal("attempt 2 of 3 must retry")
	}
	if policy.ShouldRetry(3, ErrTimeout) {
		t.Fatal("attempt 3 of 3 must not retry")
	}
	if policy.ShouldRetry(1, errors.New("business rejection")) {
		t.Fatal("non-retryable errors must never retry")
	}
}

func TestCalculateDelayGrowsAndCaps(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2.0}

	// Jitter is +/-20%, so attempt bands never overlap while the backoff
	// doubles: [80,120], [160,240], [320,480].
	for attempt, bounds := range map[int][2]time.Duration{
		1: {80 * time.Millisecond, 120 * time.Millisecond},
		2: {160 * time.Millisecond, 240 * time.Millisecond},
		3: {320 * time.Millisecond, 480 * time.Millisecond},
	} {
		d := policy.CalculateDelay(attempt)
		if d < bounds[0] || d > bounds[1] {
			t.Fatalf("attempt %d: delay %s outside [%s, %s]", attempt, d, bounds[0], bounds[1])
		}
	}

	// Far past the cap the delay stays within the jittered ceiling.
	if d := policy.CalculateDelay(20); d > 6*time.Second {
		t.Fatalf("capped delay too large: %s", d)
	}
}

func TestExecuteWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	err := ExecuteWithRetry(context.Background(), newTestLogger(), policy, "flaky", func(context.Context) error {
		calls++
		if calls < 3 {
			return ErrConnection
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestExecuteWithRetryStopsOnNonRetryable(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}
	fatal := errors.New("card declined")

	calls := 0
	err := ExecuteWithRetry(context.Background(), newTestLogger(), policy, "payment", func(context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-retryable errors must not be retried, got %d calls", calls)
	}
}

func TestExecuteWithRetryExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	err := ExecuteWithRetry(context.Background(), newTestLogger(), policy, "down", func(context.Context) error {
		calls++
		return ErrServiceUnavailable
	})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected the last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected all 3 attempts, got %d", calls)
	}
}

func TestExecuteWithRetryHonorsContextCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2.0}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- ExecuteWithRetry(ctx, newTestLogger(), policy, "slow", func(context.Context) error {
			calls++
			return ErrTimeout
		})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retry loop did not stop on cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt before the cancelled backoff, got %d", calls)
	}
}
