// Package pool is the pool reconciler: it keeps the pools derived from each
// subscription in line with that subscription and tears them down with it.
package pool

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cipherboy/candlepin/internal/application/common"
	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/owner"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/infrastructure/cache"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
	"github.com/cipherboy/candlepin/internal/shared/saga"
)

// CertificateAuthority is the part of the certificate adapter the reconciler
// drives on pool creation, change and deletion.
type CertificateAuthority interface {
	IssuePoolBundle(ctx context.Context, p *pool.Pool) (*entitlement.Certificate, error)
	RevokeAllForPool(ctx context.Context, poolID uint) ([]*entitlement.Certificate, error)
	RegeneratePoolCertificates(ctx context.Context, p *pool.Pool) ([]*entitlement.Certificate, error)
}

// ReconcilerMetrics records reconciliation outcomes.
type ReconcilerMetrics interface {
	IncrementOverConsumed()
	IncrementTeardownFailure()
	AddRevoked(n int)
	ObserveReconcile(start time.Time)
}

type nopMetrics struct{}

func (nopMetrics) IncrementOverConsumed()     {}
func (nopMetrics) IncrementTeardownFailure()  {}
func (nopMetrics) AddRevoked(int)             {}
func (nopMetrics) ObserveReconcile(time.Time) {}

// Dependencies wires a Reconciler. Deriver, Publisher, Cache and Metrics are
// optional.
type Dependencies struct {
	TxManager        *db.TransactionManager
	Subscriptions    subscription.Repository
	Pools            pool.Repository
	Certificates     entitlement.Repository
	Catalog          product.Catalog
	Owners           owner.Directory
	Authority        CertificateAuthority
	Deriver          PoolDeriver
	Publisher        events.EventPublisher
	Cache            cache.PoolAvailabilityCache
	Metrics          ReconcilerMetrics
	RetryPolicy      retry.Policy
	OwnerConcurrency int
	Logger           logger.Interface
}

// Reconciler derives pools from subscriptions. Methods that accept a context
// carrying a transaction join it; the caller must then call AfterCommit once
// that transaction has committed.
type Reconciler struct {
	txManager     *db.TransactionManager
	subscriptions subscription.Repository
	pools         pool.Repository
	certificates  entitlement.Repository
	catalog       product.Catalog
	owners        owner.Directory
	authority     CertificateAuthority
	deriver       PoolDeriver
	publisher     events.EventPublisher
	cache         cache.PoolAvailabilityCache
	metrics       ReconcilerMetrics
	policy        retry.Policy
	concurrency   int
	logger        logger.Interface
}

// NewReconciler creates a Reconciler.
func NewReconciler(d Dependencies) *Reconciler {
	r := &Reconciler{
		txManager:     d.TxManager,
		subscriptions: d.Subscriptions,
		pools:         d.Pools,
		certificates:  d.Certificates,
		catalog:       d.Catalog,
		owners:        d.Owners,
		authority:     d.Authority,
		deriver:       d.Deriver,
		publisher:     d.Publisher,
		cache:         d.Cache,
		metrics:       d.Metrics,
		policy:        d.RetryPolicy,
		concurrency:   d.OwnerConcurrency,
		logger:        d.Logger.Named("reconciler"),
	}
	if r.deriver == nil {
		r.deriver = OneToOneDeriver{}
	}
	if r.publisher == nil {
		r.publisher = events.NopPublisher{}
	}
	if r.cache == nil {
		r.cache = cache.NopPoolAvailabilityCache{}
	}
	if r.metrics == nil {
		r.metrics = nopMetrics{}
	}
	if r.concurrency <= 0 {
		r.concurrency = 4
	}
	return r
}

// OnSubscriptionCreated persists the pools derived from sub and, when asked,
// their management certificates.
func (r *Reconciler) OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, generateCert bool) ([]*pool.Pool, error) {
	owned := !db.InTransaction(ctx)

	var created []*pool.Pool
	err := r.txManager.RunWithRetry(ctx, r.policy, r.logger, "pool.create", func(ctx context.Context) error {
		created = nil
		specs, err := r.derive(ctx, sub)
		if err != nil {
			return err
		}
		now := biztime.NowUTC()
		for _, spec := range specs {
			p, err := r.createPool(ctx, sub, spec, generateCert, now)
			if err != nil {
				return err
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		r.logger.Warnw("failed to derive pools", "subscription_id", sub.ID(), "error", err)
		return nil, err
	}

	r.logger.Infow("pools derived from subscription",
		"subscription_id", sub.ID(),
		"pools", len(created),
	)
	if owned {
		r.AfterCommit(ctx, Created(created))
	}
	return created, nil
}

func (r *Reconciler) createPool(ctx context.Context, sub *subscription.Subscription, spec PoolSpec, generateCert bool, now time.Time) (*pool.Pool, error) {
	p, err := pool.NewPool(sub.ID(), sub.OwnerKey(), spec.ProductID, spec.Quantity,
		spec.StartDate, spec.EndDate, spec.ProvidedProductIDs, now)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid derived pool", err.Error())
	}
	if err := r.pools.Create(ctx, p); err != nil {
		return nil, err
	}

	if generateCert {
		if now.After(p.EndDate()) {
			r.logger.Warnw("skipping certificate for expired pool", "pool_id", p.ID())
		} else if _, err := r.authority.IssuePoolBundle(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// OnSubscriptionUpdated recomputes every pool of sub. A quantity below the
// pool's consumption is kept and reported as OVER_CONSUMED. Pools that the
// deriver no longer produces are torn down; missing ones are created.
func (r *Reconciler) OnSubscriptionUpdated(ctx context.Context, sub *subscription.Subscription) ([]Reconciliation, error) {
	owned := !db.InTransaction(ctx)

	var recs []Reconciliation
	err := r.txManager.RunWithRetry(ctx, r.policy, r.logger, "pool.reconcile", func(ctx context.Context) error {
		var err error
		recs, err = r.reconcile(ctx, sub)
		return err
	})
	if err != nil {
		r.logger.Warnw("failed to reconcile subscription pools", "subscription_id", sub.ID(), "error", err)
		return nil, err
	}

	for _, rec := range recs {
		if rec.OverConsumed() {
			r.logger.Warnw("pool is over-consumed, issuance blocked until revocations catch up",
				"pool_id", rec.Pool.ID(),
				"quantity", rec.Pool.Quantity(),
				"consumed", rec.Pool.Consumed(),
			)
		}
	}
	if owned {
		r.AfterCommit(ctx, recs)
	}
	return recs, nil
}

func (r *Reconciler) reconcile(ctx context.Context, sub *subscription.Subscription) ([]Reconciliation, error) {
	specs, err := r.derive(ctx, sub)
	if err != nil {
		return nil, err
	}
	existing, err := r.pools.ListBySubscription(ctx, sub.ID())
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]*pool.Pool, len(existing))
	for _, p := range existing {
		if _, dup := byProduct[p.ProductID()]; !dup {
			byProduct[p.ProductID()] = p
		}
	}

	now := biztime.NowUTC()
	var recs []Reconciliation
	for _, spec := range specs {
		p, ok := byProduct[spec.ProductID]
		if !ok {
			created, err := r.createPool(ctx, sub, spec, false, now)
			if err != nil {
				return nil, err
			}
			recs = append(recs, Created([]*pool.Pool{created})...)
			continue
		}
		delete(byProduct, spec.ProductID)

		if p.Status() == pool.StatusDraining {
			// teardown in progress, leave it alone
			continue
		}

		oldQuantity := p.Quantity()
		before, after, err := p.Resize(spec.Quantity, now)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid derived quantity", err.Error())
		}
		followed := p.Follow(spec.StartDate, spec.EndDate, spec.ProvidedProductIDs, now)
		resized := oldQuantity != p.Quantity()
		if resized || followed {
			if err := r.pools.Update(ctx, p); err != nil {
				return nil, err
			}
		}
		var regenerated int
		if followed {
			certs, err := r.authority.RegeneratePoolCertificates(ctx, p)
			if err != nil {
				return nil, err
			}
			regenerated = len(certs)
		}
		recs = append(recs, Reconciliation{
			Pool:        p,
			Before:      before,
			After:       after,
			Resized:     resized,
			Regenerated: regenerated,
		})
	}

	orphans := make([]*pool.Pool, 0, len(byProduct))
	for _, p := range byProduct {
		orphans = append(orphans, p)
	}
	slices.SortFunc(orphans, func(a, b *pool.Pool) int { return cmp.Compare(a.ID(), b.ID()) })
	for _, p := range orphans {
		revoked, err := r.teardownPool(ctx, p)
		if err != nil {
			return nil, err
		}
		recs = append(recs, Reconciliation{Pool: p, Before: p.CapacityState(), Deleted: true, Revoked: revoked})
	}
	return recs, nil
}

func (r *Reconciler) derive(ctx context.Context, sub *subscription.Subscription) ([]PoolSpec, error) {
	prod, err := r.catalog.GetByID(ctx, sub.ProductID())
	if err != nil {
		return nil, err
	}
	if prod == nil {
		return nil, apperrors.NewValidationError("product lookup failed", fmt.Sprintf("product %s", sub.ProductID()))
	}
	specs, err := r.deriver.Derive(sub, prod)
	if err != nil {
		return nil, apperrors.NewValidationError("cannot derive pools", err.Error())
	}
	return specs, nil
}

// teardownPool revokes, removes certificate rows and deletes the pool. It
// must run inside a transaction.
func (r *Reconciler) teardownPool(ctx context.Context, p *pool.Pool) (int, error) {
	revoked, err := r.authority.RevokeAllForPool(ctx, p.ID())
	if err != nil {
		return 0, err
	}
	if _, err := r.certificates.DeleteByPool(ctx, p.ID()); err != nil {
		return 0, err
	}
	if err := r.pools.Delete(ctx, p.ID()); err != nil {
		return 0, err
	}
	return len(revoked), nil
}

// DrainPools marks every pool of a subscription draining and commits, so no
// issuance can start while the pools are torn down.
func (r *Reconciler) DrainPools(ctx context.Context, subscriptionID uint) (int64, error) {
	return r.setStatus(ctx, subscriptionID, pool.StatusDraining, true)
}

// ReopenPools undoes DrainPools.
func (r *Reconciler) ReopenPools(ctx context.Context, subscriptionID uint) (int64, error) {
	return r.setStatus(ctx, subscriptionID, pool.StatusActive, true)
}

func (r *Reconciler) setStatus(ctx context.Context, subscriptionID uint, status pool.Status, withRetry bool) (int64, error) {
	var changed int64
	fn := func(ctx context.Context) error {
		var err error
		changed, err = r.pools.SetStatusBySubscription(ctx, subscriptionID, status)
		return err
	}
	name := "pool.set_status"

	var err error
	if withRetry {
		err = r.txManager.RunWithRetry(ctx, r.policy, r.logger, name, fn)
	} else {
		err = r.txManager.RunClassified(ctx, name, fn)
	}
	if err != nil {
		return 0, err
	}

	r.logger.Infow("pool status changed",
		"subscription_id", subscriptionID,
		"status", status,
		"pools", changed,
	)
	if !db.InTransaction(ctx) {
		r.refreshSubscriptionPools(ctx, subscriptionID)
	}
	return changed, nil
}

// OnSubscriptionDeleted tears down every pool of a subscription as an ordered
// saga: drain and commit, then revoke, delete and finalize in one transaction.
// finalize runs inside that transaction and typically removes the
// subscription itself. On failure the pools are reopened and nothing else is
// changed.
func (r *Reconciler) OnSubscriptionDeleted(ctx context.Context, subscriptionID uint, finalize func(ctx context.Context) error) ([]Reconciliation, error) {
	if db.InTransaction(ctx) {
		return nil, apperrors.NewInternalError("subscription teardown cannot join a transaction")
	}

	var recs []Reconciliation
	teardown := func(ctx context.Context) error {
		return r.txManager.RunClassified(ctx, "pool.teardown", func(ctx context.Context) error {
			recs = nil
			pools, err := r.pools.ListBySubscription(ctx, subscriptionID)
			if err != nil {
				return err
			}
			for _, p := range pools {
				revoked, err := r.teardownPool(ctx, p)
				if err != nil {
					return err
				}
				recs = append(recs, Reconciliation{Pool: p, Before: p.CapacityState(), Deleted: true, Revoked: revoked})
			}
			if finalize != nil {
				return finalize(ctx)
			}
			return nil
		})
	}

	err := saga.New("subscription.teardown", r.policy, r.logger).
		Step("drain",
			func(ctx context.Context) error {
				_, err := r.setStatus(ctx, subscriptionID, pool.StatusDraining, false)
				return err
			},
			func(ctx context.Context) error {
				_, err := r.setStatus(ctx, subscriptionID, pool.StatusActive, false)
				return err
			}).
		Step("teardown", teardown, nil).
		Execute(ctx)
	if err != nil {
		r.metrics.IncrementTeardownFailure()
		r.logger.Errorw("subscription teardown failed",
			"subscription_id", subscriptionID,
			"error", err,
		)
		return nil, err
	}

	r.logger.Infow("subscription pools torn down",
		"subscription_id", subscriptionID,
		"pools", len(recs),
	)
	r.AfterCommit(ctx, recs)
	return recs, nil
}

// AfterCommit publishes events, records metrics and refreshes the
// availability cache for committed reconciliations.
func (r *Reconciler) AfterCommit(ctx context.Context, recs []Reconciliation) {
	revoked := 0
	for _, rec := range recs {
		revoked += rec.Revoked
		if !rec.Deleted && rec.BecameOverConsumed() {
			r.metrics.IncrementOverConsumed()
		}
		if rec.Deleted {
			if err := r.cache.Invalidate(ctx, rec.Pool.ID()); err != nil {
				r.logger.Warnw("failed to invalidate pool availability", "pool_id", rec.Pool.ID(), "error", err)
			}
			continue
		}
		if err := r.cache.Set(ctx, rec.Pool.ID(), cache.SnapshotOf(rec.Pool)); err != nil {
			r.logger.Warnw("failed to cache pool availability", "pool_id", rec.Pool.ID(), "error", err)
		}
	}
	if revoked > 0 {
		r.metrics.AddRevoked(revoked)
	}
	common.Publish(r.publisher, r.logger, Events(recs, biztime.NowUTC())...)
}

func (r *Reconciler) refreshSubscriptionPools(ctx context.Context, subscriptionID uint) {
	if _, nop := r.cache.(cache.NopPoolAvailabilityCache); nop {
		return
	}
	pools, err := r.pools.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		r.logger.Warnw("failed to list pools for availability cache", "subscription_id", subscriptionID, "error", err)
		return
	}
	for _, p := range pools {
		if err := r.cache.Set(ctx, p.ID(), cache.SnapshotOf(p)); err != nil {
			r.logger.Warnw("failed to cache pool availability", "pool_id", p.ID(), "error", err)
		}
	}
}

// ReconcileOwner recomputes every live subscription of an owner, picking up
// product multiplier changes. Subscriptions whose product can no longer be
// derived are skipped and logged.
func (r *Reconciler) ReconcileOwner(ctx context.Context, ownerKey string) ([]Reconciliation, error) {
	o, err := r.owners.GetByKey(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperrors.NewNotFoundError("owner not found", ownerKey)
	}

	subs, err := r.subscriptions.ListByOwner(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	var all []Reconciliation
	for _, sub := range subs {
		if sub.Status() == subscription.StatusDeleted {
			continue
		}
		recs, err := r.OnSubscriptionUpdated(ctx, sub)
		if err != nil {
			if apperrors.IsValidationError(err) {
				r.logger.Warnw("skipping subscription that cannot be reconciled",
					"owner_key", ownerKey,
					"subscription_id", sub.ID(),
					"error", err,
				)
				continue
			}
			return all, err
		}
		all = append(all, recs...)
	}
	return all, nil
}

// ReconcileAll reconciles every owner with bounded concurrency and returns
// the number of pools examined. A failing owner does not stop the others.
func (r *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	start := time.Now()
	defer r.metrics.ObserveReconcile(start)

	keys, err := r.owners.ListKeys(ctx)
	if err != nil {
		return 0, err
	}

	var (
		mu       sync.Mutex
		total    int
		failures []error
	)
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, key := range keys {
		g.Go(func() error {
			recs, err := r.ReconcileOwner(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			total += len(recs)
			if err != nil {
				r.logger.Errorw("owner reconciliation failed", "owner_key", key, "error", err)
				failures = append(failures, fmt.Errorf("owner %s: %w", key, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Infow("reconciliation pass completed",
		"owners", len(keys),
		"pools", total,
		"failed", len(failures),
		"duration", time.Since(start),
	)
	return total, errors.Join(failures...)
}
