package db

import (
	"context"

	"github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

// RunClassified is RunInTransaction for callers that retry on their own. A
// failed commit comes back from the driver unclassified, so transient faults
// are turned into TransientError here.
func (tm *TransactionManager) RunClassified(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	err := tm.RunInTransaction(ctx, fn)
	if err != nil && !errors.IsAppError(err) && errors.IsTransientDBError(err) {
		return errors.NewTransientError(name+" transaction failed", err)
	}
	return err
}

// RunWithRetry runs fn in a transaction and re-drives it on transient
// failures. Inside an outer transaction fn simply joins it and the owner of
// that transaction is responsible for retrying the whole unit.
func (tm *TransactionManager) RunWithRetry(ctx context.Context, policy retry.Policy, log logger.Interface, name string, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	return retry.Do(ctx, policy, log, name, func(ctx context.Context) error {
		return tm.RunClassified(ctx, name, fn)
	})
}
