package usecases

import (
	"context"
	"errors"

	apppool "github.com/cipherboy/candlepin/internal/application/pool"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
)

// PoolReconciler keeps derived pools in line with subscriptions. Calls made
// inside a transaction are followed by AfterCommit once it has committed.
type PoolReconciler interface {
	OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, generateCert bool) ([]*pool.Pool, error)
	OnSubscriptionUpdated(ctx context.Context, sub *subscription.Subscription) ([]apppool.Reconciliation, error)
	OnSubscriptionDeleted(ctx context.Context, subscriptionID uint, finalize func(ctx context.Context) error) ([]apppool.Reconciliation, error)
	AfterCommit(ctx context.Context, recs []apppool.Reconciliation)
}

// StatusMetrics counts subscription status transitions.
type StatusMetrics interface {
	IncrementStatusChange(status string)
}

type nopMetrics struct{}

func (nopMetrics) IncrementStatusChange(string) {}

// domainError maps subscription sentinel errors onto the application taxonomy.
func domainError(err error) error {
	switch {
	case errors.Is(err, subscription.ErrInvalidQuantity),
		errors.Is(err, subscription.ErrInvalidValidityWindow):
		return apperrors.NewValidationError("invalid subscription", err.Error())
	case errors.Is(err, subscription.ErrSubscriptionDeleted):
		return apperrors.NewNotFoundError("subscription not found", err.Error())
	case apperrors.IsAppError(err):
		return err
	default:
		return apperrors.NewValidationError(err.Error())
	}
}
