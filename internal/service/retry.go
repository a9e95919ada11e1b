package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Sentinel categories for transient dependency failures. Callers wrap the
// underlying error with one of these to mark it retryable.
var (
	ErrTimeout            = errors.New("operation timed out")
	ErrConnection         = errors.New("connection error")
	ErrTemporaryFailure   = errors.New("temporary failure")
	ErrServiceUnavailable = errors.New("service unavailable")
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

// IsRetryable reports whether err belongs to a transient category. Business
// rejections never retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnection) ||
		errors.Is(err, ErrTemporaryFailure) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ShouldRetry decides whether another attempt is allowed after attempt
// failures (1-based).
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	return IsRetryable(err)
}

// CalculateDelay returns the backoff before the next attempt: exponential
// on the attempt number, capped at MaxDelay, with +/-20% jitter so retry
// storms from concurrent callers spread out.
func (p RetryPolicy) CalculateDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult <= 1 {
		mult = 2.0
	}
	backoff := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if capped := float64(p.MaxDelay); p.MaxDelay > 0 && backoff > capped {
		backoff = capped
	}
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	return time.Duration(backoff * jitter)
}

// ExecuteWithRetry runs op until it succeeds, exhausts attempts, hits a
// non-retryable error, or the context is cancelled. The last error is
// returned unwrapped.
func ExecuteWithRetry(ctx context.Context, logger *slog.Logger, policy RetryPolicy, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !policy.ShouldRetry(attempt, lastErr) {
			return lastErr
		}
		delay := policy.CalculateDelay(attempt)
		if logger != nil {
			logger.WarnContext(ctx, "retrying operation",
				"operation", name, "attempt", attempt, "delay", delay, "error", lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
