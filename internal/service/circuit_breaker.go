package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// CircuitBreaker fails fast once a dependency shows a run of consecutive
// failures. After recoveryTimeout exactly one trial call passes through in
// HALF_OPEN; its outcome decides between CLOSED and another OPEN window.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	logger           *slog.Logger
	now              func() time.Time

	mu           sync.Mutex
	state        CircuitState
	failures     int
	openedAt     time.Time
	trialPending bool
}

func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration, logger *slog.Logger) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
		state:            CircuitClosed,
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *CircuitBreaker) stateLocked() CircuitState {
	if b.state == CircuitOpen && b.now().Sub(b.openedAt) >= b.recoveryTimeout {
		return CircuitHalfOpen
	}
	return b.state
}

// Execute runs op under the breaker. In OPEN it returns ErrCircuitOpen
// without calling op. In HALF_OPEN only the first caller gets the trial;
// concurrent callers still see ErrCircuitOpen.
func (b *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	err := op(ctx)
	b.record(ctx, err)
	return err
}

func (b *CircuitBreaker) acquire(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.stateLocked() {
	case CircuitClosed:
		return nil
	case CircuitHalfOpen:
		if b.trialPending {
			return ErrCircuitOpen
		}
		b.state = CircuitHalfOpen
		b.trialPending = true
		if b.logger != nil {
			b.logger.InfoContext(ctx, "circuit breaker half-open trial", "breaker", b.name)
		}
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (b *CircuitBreaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.trialPending = false
		if err == nil {
			b.state = CircuitClosed
			b.failures = 0
			if b.logger != nil {
				b.logger.InfoContext(ctx, "circuit breaker closed", "breaker", b.name)
			}
			return
		}
		b.state = CircuitOpen
		b.openedAt = b.now()
		if b.logger != nil {
			b.logger.WarnContext(ctx, "circuit breaker reopened", "breaker", b.name, "error", err)
		}
		return
	}

	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = CircuitOpen
		b.openedAt = b.now()
		if b.logger != nil {
			b.logger.ErrorContext(ctx, "circuit breaker opened",
				"breaker", b.name, "consecutive_failures", b.failures)
		}
	}
}
