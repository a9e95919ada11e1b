package service

import (
	"context"
	"fmt"
	"time"
)

// TimeoutManager holds per-dependency deadlines. Payment calls get a long
// window because the gateway legitimately takes time; inventory checks are
// local and must answer fast.
type TimeoutManager struct {
	timeouts map[string]time.Duration
	fallback time.Duration
}

func NewTimeoutManager(timeouts map[string]time.Duration) *TimeoutManager {
	merged := map[string]time.Duration{
		"payment":   30 * time.Second,
		"inventory": 5 * time.Second,
		"loyalty":   5 * time.Second,
	}
	for category, d := range timeouts {
		if d > 0 {
			merged[category] = d
		}
	}
	return &TimeoutManager{timeouts: merged, fallback: 10 * time.Second}
}

func (m *TimeoutManager) TimeoutFor(category string) time.Duration {
	if d, ok := m.timeouts[category]; ok {
		return d
	}
	return m.fallback
}

// Execute runs op under the category's deadline. The derived context is
// cancelled on expiry, so a well-behaved op actually stops working.
func (m *TimeoutManager) Execute(ctx context.Context, category string, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.TimeoutFor(category))
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- op(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", category, ErrTimeout)
	}
}
