package common

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agenthands/docgraph/internal/logger"
)

type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Retry runs fn until it succeeds, the policy is exhausted, or fn returns an
// error for which transient reports false. Context errors are never retried.
func Retry[T any](ctx context.Context, p RetryPolicy, op string, transient func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(eb, p.MaxRetries)
	b = backoff.WithContext(b, ctx)

	attempt := 0
	var result T
	err := backoff.RetryNotify(func() error {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			result = v
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		logger.Warn("transient failure, retrying", "op", op, "attempt", attempt, "wait", wait, "err", err)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
