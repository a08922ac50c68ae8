// Package container wires infrastructure, repositories and application
// services into a ready Mediator.
package container

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appentitlement "github.com/cipherboy/candlepin/internal/application/entitlement"
	entitlementUsecases "github.com/cipherboy/candlepin/internal/application/entitlement/usecases"
	appperm "github.com/cipherboy/candlepin/internal/application/permission"
	apppool "github.com/cipherboy/candlepin/internal/application/pool"
	appsubscription "github.com/cipherboy/candlepin/internal/application/subscription"
	"github.com/cipherboy/candlepin/internal/domain/owner"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/infrastructure/cache"
	"github.com/cipherboy/candlepin/internal/infrastructure/config"
	"github.com/cipherboy/candlepin/internal/infrastructure/metrics"
	permissionInfra "github.com/cipherboy/candlepin/internal/infrastructure/permission"
	"github.com/cipherboy/candlepin/internal/infrastructure/pki"
	"github.com/cipherboy/candlepin/internal/infrastructure/repository"
	"github.com/cipherboy/candlepin/internal/interfaces/mediator"
	"github.com/cipherboy/candlepin/internal/shared/db"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

// Options tune New. Zero values are production defaults.
type Options struct {
	// Registerer receives the Prometheus instruments; nil means the default
	// registerer.
	Registerer prometheus.Registerer
	// Availability overrides the pool availability cache, for tests.
	Availability cache.PoolAvailabilityCache
}

// Container holds every wired component and releases them in Shutdown.
type Container struct {
	cfg   *config.Config
	db    *gorm.DB
	log   logger.Interface
	redis *redis.Client

	Dispatcher    *events.InMemoryEventDispatcher
	Metrics       *metrics.Metrics
	Owners        owner.Repository
	Products      product.Repository
	Pools         pool.Repository
	Permissions   *appperm.Service
	Authority     *appentitlement.ServiceDDD
	Reconciler    *apppool.Reconciler
	Subscriptions *appsubscription.ServiceDDD
	Mediator      *mediator.Mediator
}

// New builds the container on an opened, migrated database. The event
// dispatcher is started; subscribe handlers before traffic arrives.
func New(ctx context.Context, cfg *config.Config, gdb *gorm.DB, log logger.Interface, opts Options) (*Container, error) {
	c := &Container{cfg: cfg, db: gdb, log: log}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c.Metrics = metrics.New(reg)

	c.Dispatcher = events.NewInMemoryEventDispatcher(256, log.Named("events"))
	if err := c.Dispatcher.Start(); err != nil {
		return nil, err
	}

	availability := opts.Availability
	if availability == nil {
		availability = c.newAvailabilityCache(ctx)
	}

	signer, err := pki.Load(&cfg.PKI, cfg.Server.NodeID, log.Named("pki"))
	if err != nil {
		c.Shutdown()
		return nil, err
	}

	enforcer, err := permissionInfra.NewEnforcer(gdb, log.Named("casbin"))
	if err != nil {
		c.Shutdown()
		return nil, err
	}
	if err := permissionInfra.InitDefaultPolicies(enforcer, log); err != nil {
		c.Shutdown()
		return nil, err
	}
	if _, err := permissionInfra.NewPermissionSync(gdb, log).SyncOwnerRoles(); err != nil {
		log.Warnw("failed to sync owner roles", "error", err)
	} else if err := enforcer.LoadPolicy(); err != nil {
		log.Warnw("failed to reload policy", "error", err)
	}
	c.Permissions = appperm.NewService(enforcer, log.Named("permissions"))

	txManager := db.NewTransactionManager(gdb)
	policy := retry.FromConfig(&cfg.Reconciler)
	certificates := repository.NewCertificateRepository(gdb, log)
	subscriptions := repository.NewSubscriptionRepository(gdb, log)
	c.Owners = repository.NewOwnerRepository(gdb, log)
	c.Products = repository.NewProductRepository(gdb, log)
	c.Pools = repository.NewPoolRepository(gdb, log)

	c.Authority = appentitlement.NewServiceDDD(appentitlement.Dependencies{
		TxManager:    txManager,
		Pools:        c.Pools,
		Certificates: certificates,
		Revocations:  certificates,
		Signer:       signer,
		Publisher:    c.Dispatcher,
		Collab:       entitlementUsecases.Collaborators{Cache: availability, Metrics: c.Metrics},
		RetryPolicy:  policy,
		Logger:       log,
	})

	c.Reconciler = apppool.NewReconciler(apppool.Dependencies{
		TxManager:        txManager,
		Subscriptions:    subscriptions,
		Pools:            c.Pools,
		Certificates:     certificates,
		Catalog:          c.Products,
		Owners:           c.Owners,
		Authority:        c.Authority,
		Publisher:        c.Dispatcher,
		Cache:            availability,
		Metrics:          c.Metrics,
		RetryPolicy:      policy,
		OwnerConcurrency: cfg.Reconciler.OwnerConcurrency,
		Logger:           log,
	})

	c.Subscriptions = appsubscription.NewServiceDDD(appsubscription.Dependencies{
		TxManager:     txManager,
		Subscriptions: subscriptions,
		Owners:        c.Owners,
		Catalog:       c.Products,
		Reconciler:    c.Reconciler,
		Publisher:     c.Dispatcher,
		Metrics:       c.Metrics,
		DefaultTerm:   cfg.Subscription.DefaultTerm(),
		RetryPolicy:   policy,
		Logger:        log,
	})

	c.Mediator = mediator.New(mediator.Dependencies{
		Subscriptions: c.Subscriptions,
		Authority:     c.Authority,
		Pools:         c.Pools,
		Availability:  availability,
		Permissions:   c.Permissions,
		Logger:        log,
	})
	return c, nil
}

func (c *Container) newAvailabilityCache(ctx context.Context) cache.PoolAvailabilityCache {
	if !c.cfg.Redis.Enabled {
		return cache.NopPoolAvailabilityCache{}
	}
	client, err := cache.NewClient(ctx, &c.cfg.Redis)
	if err != nil {
		c.log.Warnw("redis unavailable, pool availability cache disabled", "error", err)
		return cache.NopPoolAvailabilityCache{}
	}
	c.redis = client
	c.log.Infow("redis connection established", "address", c.cfg.Redis.GetAddr())
	return cache.NewRedisPoolAvailabilityCache(client, c.log)
}

// Shutdown stops the dispatcher and closes the Redis client. The database is
// owned by the caller.
func (c *Container) Shutdown() {
	if c.Dispatcher != nil {
		if err := c.Dispatcher.Stop(); err != nil {
			c.log.Warnw("failed to stop event dispatcher", "error", err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warnw("failed to close redis client", "error", err)
		}
	}
}
