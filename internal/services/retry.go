package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
)

// RetryPolicy re-runs storage calls that fail with core.ErrContention. The
// wait before attempt n+1 is n*Delay.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Logger   *applog.Logger
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Delay: 200 * time.Millisecond}
}

// Do runs fn until it succeeds, fails with a non-contention error or runs out
// of attempts. Exhaustion yields core.ErrStorageBusy wrapping the last error.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := retryValue(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func retryValue[T any](ctx context.Context, p RetryPolicy, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, core.ErrContention) {
			return zero, err
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		if p.Logger != nil {
			p.Logger.WarnContext(ctx, "Storage busy, retrying",
				applog.FieldOperation, op,
				applog.FieldAttempt, attempt,
				applog.FieldError, err.Error())
		}

		timer := time.NewTimer(time.Duration(attempt) * p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("%s after %d attempts: %w: %w", op, attempts, core.ErrStorageBusy, lastErr)
}
