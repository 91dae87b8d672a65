package usecase

import (
	"context"
	"time"

	"event-ticketing/pkg/utils"
)

// retryPolicy bounds the optimistic read-modify-write loops.
type retryPolicy struct {
	attempts int
	backoff  time.Duration
}

func newRetryPolicy(cfg utils.InventoryConfig) retryPolicy {
	p := retryPolicy{attempts: cfg.MaxAttempts, backoff: cfg.RetryBackoff}
	if p.attempts < 1 {
		p.attempts = 1
	}
	return p
}

// wait sleeps attempt*backoff. It returns early with the context error.
func (p retryPolicy) wait(ctx context.Context, attempt int) error {
	if p.backoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(attempt) * p.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
