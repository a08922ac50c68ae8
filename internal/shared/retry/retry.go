// Package retry re-drives operations that fail with transient infrastructure
// errors, using bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/cipherboy/candlepin/internal/shared/config"
	"github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// Policy bounds how often and how long an operation is re-driven.
type Policy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is used when a component is built without explicit settings.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// FromConfig applies the configured backoff bounds over DefaultPolicy.
func FromConfig(cfg *config.ReconcilerConfig) Policy {
	p := DefaultPolicy()
	if cfg == nil {
		return p
	}
	if cfg.RetryAttempts > 0 {
		p.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryInitial > 0 {
		p.InitialInterval = cfg.RetryInitial
	}
	if cfg.RetryMax > 0 {
		p.MaxInterval = cfg.RetryMax
	}
	return p
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.Reset()
	return b
}

func (p Policy) attempts() uint {
	if p.MaxAttempts == 0 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs op until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. Exhausted transient failures surface as an
// internal error that still wraps the last cause.
func Do(ctx context.Context, p Policy, log logger.Interface, name string, op func(ctx context.Context) error) error {
	_, err := Value(ctx, p, log, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value is Do for operations that return a result.
func Value[T any](ctx context.Context, p Policy, log logger.Interface, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var attempt uint
	var lastTransient error

	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !errors.IsTransientError(err) {
			return v, backoff.Permanent(err)
		}
		lastTransient = err
		return v, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(p.attempts()),
		backoff.WithNotify(func(err error, next time.Duration) {
			if log != nil {
				log.Warnw("retrying after transient failure",
					"operation", name,
					"attempt", attempt,
					"next_in", next,
					"error", err,
				)
			}
		}),
	)
	if err != nil && lastTransient != nil && errors.IsTransientError(err) {
		if log != nil {
			log.Errorw("giving up after transient failures",
				"operation", name,
				"attempts", attempt,
				"error", err,
			)
		}
		appErr := errors.NewInternalError(name+" failed after retries", err.Error())
		return result, &exhaustedError{AppError: appErr, cause: err}
	}
	return result, err
}

// exhaustedError keeps the transient cause reachable through errors.Is while
// presenting as an internal error.
type exhaustedError struct {
	*errors.AppError
	cause error
}

func (e *exhaustedError) Unwrap() []error {
	return []error{e.AppError, e.cause}
}
