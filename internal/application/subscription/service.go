// Package subscription is the subscription store: the authoritative record of
// purchased grants, kept in step with their pools through the reconciler.
package subscription

import (
	"context"
	"time"

	"github.com/cipherboy/candlepin/internal/application/subscription/usecases"
	"github.com/cipherboy/candlepin/internal/domain/owner"
	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/shared/db"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

// Dependencies wires the subscription service.
type Dependencies struct {
	TxManager     *db.TransactionManager
	Subscriptions subscription.Repository
	Owners        owner.Directory
	Catalog       product.Catalog
	Reconciler    usecases.PoolReconciler
	Publisher     events.EventPublisher
	Metrics       usecases.StatusMetrics
	DefaultTerm   time.Duration
	RetryPolicy   retry.Policy
	Logger        logger.Interface
}

// ServiceDDD groups the subscription use cases.
type ServiceDDD struct {
	createUC *usecases.CreateSubscriptionUseCase
	listUC   *usecases.ListSubscriptionsUseCase
	getUC    *usecases.GetSubscriptionUseCase
	updateUC *usecases.UpdateSubscriptionUseCase
	deleteUC *usecases.DeleteSubscriptionUseCase
	expireUC *usecases.ExpireSubscriptionsUseCase
}

// NewServiceDDD creates the subscription service.
func NewServiceDDD(d Dependencies) *ServiceDDD {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.DefaultTerm <= 0 {
		d.DefaultTerm = 365 * 24 * time.Hour
	}
	log := d.Logger.Named("subscriptions")
	return &ServiceDDD{
		createUC: usecases.NewCreateSubscriptionUseCase(
			d.TxManager, d.Subscriptions, d.Owners, d.Catalog, d.Reconciler, d.Publisher, d.DefaultTerm, d.RetryPolicy, log),
		listUC: usecases.NewListSubscriptionsUseCase(d.Subscriptions, d.Owners, log),
		getUC:  usecases.NewGetSubscriptionUseCase(d.Subscriptions, log),
		updateUC: usecases.NewUpdateSubscriptionUseCase(
			d.TxManager, d.Subscriptions, d.Reconciler, d.Publisher, d.RetryPolicy, log),
		deleteUC: usecases.NewDeleteSubscriptionUseCase(d.Subscriptions, d.Reconciler, d.Publisher, log),
		expireUC: usecases.NewExpireSubscriptionsUseCase(d.Subscriptions, d.Publisher, d.Metrics, log),
	}
}

func (s *ServiceDDD) Create(ctx context.Context, cmd usecases.CreateSubscriptionCommand) (*usecases.CreateSubscriptionResult, error) {
	return s.createUC.Execute(ctx, cmd)
}

func (s *ServiceDDD) List(ctx context.Context, ownerKey string) ([]*subscription.Subscription, error) {
	return s.listUC.Execute(ctx, ownerKey)
}

// Get loads a subscription by id for internal callers only.
func (s *ServiceDDD) Get(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return s.getUC.Execute(ctx, id)
}

func (s *ServiceDDD) Update(ctx context.Context, cmd usecases.UpdateSubscriptionCommand) (*usecases.UpdateSubscriptionResult, error) {
	return s.updateUC.Execute(ctx, cmd)
}

func (s *ServiceDDD) Delete(ctx context.Context, id uint) (*usecases.DeleteSubscriptionResult, error) {
	return s.deleteUC.Execute(ctx, id)
}

// ExpireSubscriptions runs one status sweep; it satisfies the scheduler's
// batch job signature.
func (s *ServiceDDD) ExpireSubscriptions(ctx context.Context) (int, error) {
	return s.expireUC.Execute(ctx)
}
