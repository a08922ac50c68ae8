// Package mediator is the only external boundary of the engine. Every
// operation is addressed by owner, pool or serial; subscriptions are never
// addressable by id from outside.
package mediator

import (
	"context"
	"fmt"
	"time"

	appentitlement "github.com/cipherboy/candlepin/internal/application/entitlement"
	certdto "github.com/cipherboy/candlepin/internal/application/entitlement/dto"
	appperm "github.com/cipherboy/candlepin/internal/application/permission"
	pooldto "github.com/cipherboy/candlepin/internal/application/pool/dto"
	appsubscription "github.com/cipherboy/candlepin/internal/application/subscription"
	subdto "github.com/cipherboy/candlepin/internal/application/subscription/dto"
	"github.com/cipherboy/candlepin/internal/application/subscription/usecases"
	vo "github.com/cipherboy/candlepin/internal/domain/permission/value_objects"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/infrastructure/cache"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// Dependencies wires a Mediator.
type Dependencies struct {
	Subscriptions *appsubscription.ServiceDDD
	Authority     *appentitlement.ServiceDDD
	Pools         pool.Repository
	Availability  cache.PoolAvailabilityCache
	Permissions   *appperm.Service
	Logger        logger.Interface
}

// Mediator authorizes callers and routes their requests to the subscription
// store and the certificate authority.
type Mediator struct {
	subscriptions *appsubscription.ServiceDDD
	authority     *appentitlement.ServiceDDD
	pools         pool.Repository
	availability  cache.PoolAvailabilityCache
	permissions   *appperm.Service
	logger        logger.Interface
}

// New creates a Mediator. A nil Availability cache disables caching.
func New(d Dependencies) *Mediator {
	if d.Availability == nil {
		d.Availability = cache.NopPoolAvailabilityCache{}
	}
	return &Mediator{
		subscriptions: d.Subscriptions,
		authority:     d.Authority,
		pools:         d.Pools,
		availability:  d.Availability,
		permissions:   d.Permissions,
		logger:        d.Logger.Named("mediator"),
	}
}

// CreateSubscriptionRequest is the create payload. Dates are optional.
type CreateSubscriptionRequest struct {
	OwnerKey           string     `json:"owner_key"`
	ProductID          string     `json:"product_id"`
	Quantity           int64      `json:"quantity"`
	ProvidedProductIDs []string   `json:"provided_product_ids,omitempty"`
	ContractNumber     string     `json:"contract_number,omitempty"`
	AccountNumber      string     `json:"account_number,omitempty"`
	OrderNumber        string     `json:"order_number,omitempty"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	GenerateCert       bool       `json:"generate_cert,omitempty"`
}

// CreateSubscription stores a subscription and returns the pool derived from
// it, which carries the subscription id for correlation.
func (m *Mediator) CreateSubscription(ctx context.Context, caller appperm.Caller, req CreateSubscriptionRequest) (*pooldto.PoolDTO, error) {
	if err := m.permissions.AuthorizeOwner(ctx, caller, vo.ResourceSubscription, vo.ActionCreate, req.OwnerKey); err != nil {
		return nil, err
	}

	result, err := m.subscriptions.Create(ctx, usecases.CreateSubscriptionCommand{
		OwnerKey:           req.OwnerKey,
		ProductID:          req.ProductID,
		Quantity:           req.Quantity,
		ProvidedProductIDs: req.ProvidedProductIDs,
		ContractNumber:     req.ContractNumber,
		AccountNumber:      req.AccountNumber,
		OrderNumber:        req.OrderNumber,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		GenerateCert:       req.GenerateCert,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Pools) == 0 {
		return nil, apperrors.NewInternalError("no pool derived from subscription")
	}
	return pooldto.ToPoolDTO(result.Pools[0]), nil
}

// ListSubscriptions returns an owner's subscriptions in creation order.
func (m *Mediator) ListSubscriptions(ctx context.Context, caller appperm.Caller, ownerKey string) ([]*subdto.SubscriptionDTO, error) {
	if err := m.permissions.AuthorizeOwner(ctx, caller, vo.ResourceSubscription, vo.ActionRead, ownerKey); err != nil {
		return nil, err
	}
	subs, err := m.subscriptions.List(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	return subdto.ToSubscriptionDTOs(subs), nil
}

// GetSubscription is rejected for every id. Subscriptions are reached through
// their pools.
func (m *Mediator) GetSubscription(_ context.Context, _ appperm.Caller, id string) (*subdto.SubscriptionDTO, error) {
	m.logger.Infow("rejected subscription lookup by id", "subscription_id", id)
	return nil, apperrors.NewRoutingError("subscriptions are not addressable by id",
		"use pools/{pool_id} or owners/{owner_key}/subscriptions")
}

// GetSubscriptionCertificate is rejected for every id.
func (m *Mediator) GetSubscriptionCertificate(_ context.Context, _ appperm.Caller, id string) (*certdto.CertificateDTO, error) {
	m.logger.Infow("rejected subscription certificate lookup by id", "subscription_id", id)
	return nil, apperrors.NewRoutingError("subscription certificates are not addressable by id",
		"use pools/{pool_id}/cert")
}

// GetPool returns a pool from the store.
func (m *Mediator) GetPool(ctx context.Context, caller appperm.Caller, poolID uint) (*pooldto.PoolDTO, error) {
	p, err := m.authorizedPool(ctx, caller, poolID, vo.ActionRead)
	if err != nil {
		return nil, err
	}
	return pooldto.ToPoolDTO(p), nil
}

// PoolAvailability returns a pool's capacity through the availability cache.
func (m *Mediator) PoolAvailability(ctx context.Context, caller appperm.Caller, poolID uint) (*pooldto.AvailabilityDTO, error) {
	if err := m.permissions.Authorize(ctx, caller, vo.ResourcePool, vo.ActionRead); err != nil {
		return nil, err
	}
	a, err := cache.LookupAvailability(ctx, m.availability, m.pools, poolID, m.logger)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.NewNotFoundError("pool not found", fmt.Sprintf("pool %d", poolID))
	}
	// scope check needs the owner, which the cached snapshot does not carry
	if _, err := m.authorizedPool(ctx, caller, poolID, vo.ActionRead); err != nil {
		return nil, err
	}
	return pooldto.ToAvailabilityDTO(poolID, a), nil
}

// ListPools returns an owner's pools.
func (m *Mediator) ListPools(ctx context.Context, caller appperm.Caller, ownerKey string) ([]*pooldto.PoolDTO, error) {
	if err := m.permissions.AuthorizeOwner(ctx, caller, vo.ResourcePool, vo.ActionRead, ownerKey); err != nil {
		return nil, err
	}
	pools, err := m.pools.ListByOwner(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	return pooldto.ToPoolDTOs(pools), nil
}

// UpdatePoolRequest amends the subscription behind a pool. Nil fields are
// unchanged.
type UpdatePoolRequest struct {
	Quantity           *int64     `json:"quantity,omitempty"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	ProvidedProductIDs []string   `json:"provided_product_ids,omitempty"`
}

// UpdatePoolResult is the reconciled pool, whether it is over-consumed and
// how many of its certificates were re-signed for a new window.
type UpdatePoolResult struct {
	Pool         *pooldto.PoolDTO `json:"pool"`
	OverConsumed bool             `json:"over_consumed"`
	Regenerated  int              `json:"regenerated"`
}

// UpdatePool applies req to the pool's subscription and reconciles.
func (m *Mediator) UpdatePool(ctx context.Context, caller appperm.Caller, poolID uint, req UpdatePoolRequest) (*UpdatePoolResult, error) {
	p, err := m.authorizedPool(ctx, caller, poolID, vo.ActionUpdate)
	if err != nil {
		return nil, err
	}

	result, err := m.subscriptions.Update(ctx, usecases.UpdateSubscriptionCommand{
		ID:                 p.SubscriptionID(),
		Quantity:           req.Quantity,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		ProvidedProductIDs: req.ProvidedProductIDs,
	})
	if err != nil {
		return nil, err
	}

	for _, rec := range result.Pools {
		if rec.Pool.ID() == poolID && !rec.Deleted {
			return &UpdatePoolResult{
				Pool:         pooldto.ToPoolDTO(rec.Pool),
				OverConsumed: rec.OverConsumed(),
				Regenerated:  rec.Regenerated,
			}, nil
		}
	}
	// the deriver replaced this pool
	return nil, apperrors.NewNotFoundError("pool not found after update", fmt.Sprintf("pool %d", poolID))
}

// DeletePoolResult reports the teardown of a pool and its subscription.
type DeletePoolResult struct {
	SubscriptionID uint   `json:"subscription_id"`
	PoolIDs        []uint `json:"pool_ids"`
	Revoked        int    `json:"revoked"`
}

// DeletePool deletes the subscription behind a pool, tearing down every pool
// derived from it and revoking their certificates.
func (m *Mediator) DeletePool(ctx context.Context, caller appperm.Caller, poolID uint) (*DeletePoolResult, error) {
	p, err := m.authorizedPool(ctx, caller, poolID, vo.ActionDelete)
	if err != nil {
		return nil, err
	}

	result, err := m.subscriptions.Delete(ctx, p.SubscriptionID())
	if err != nil {
		return nil, err
	}

	out := &DeletePoolResult{SubscriptionID: p.SubscriptionID(), Revoked: result.Revoked()}
	for _, rec := range result.Pools {
		out.PoolIDs = append(out.PoolIDs, rec.Pool.ID())
	}
	return out, nil
}

// GetPoolCertificate returns the pool's management certificate with its key.
func (m *Mediator) GetPoolCertificate(ctx context.Context, caller appperm.Caller, poolID uint) (*certdto.CertificateDTO, error) {
	if _, err := m.authorizedPool(ctx, caller, poolID, vo.ActionRead); err != nil {
		return nil, err
	}
	cert, err := m.authority.PoolCertificate(ctx, poolID)
	if err != nil {
		return nil, err
	}
	return certdto.ToCertificateDTO(cert, true), nil
}

// IssueEntitlement grants one unit of a pool to consumerID. The returned
// certificate includes its private key.
func (m *Mediator) IssueEntitlement(ctx context.Context, caller appperm.Caller, poolID uint, consumerID, requestToken string) (*certdto.CertificateDTO, error) {
	if _, err := m.authorizedPoolAs(ctx, caller, poolID, vo.ResourceEntitlement, vo.ActionIssue); err != nil {
		return nil, err
	}

	result, err := m.authority.Issue(ctx, poolID, consumerID, requestToken)
	if err != nil {
		return nil, err
	}
	return certdto.ToCertificateDTO(result.Certificate, true), nil
}

// GetCertificate returns a certificate by serial, without its key.
func (m *Mediator) GetCertificate(ctx context.Context, caller appperm.Caller, serial int64) (*certdto.CertificateDTO, error) {
	if err := m.permissions.Authorize(ctx, caller, vo.ResourceCertificate, vo.ActionRead); err != nil {
		return nil, err
	}
	cert, err := m.authority.Get(ctx, serial)
	if err != nil {
		return nil, err
	}
	if _, err := m.authorizedPoolAs(ctx, caller, cert.PoolID(), vo.ResourceCertificate, vo.ActionRead); err != nil {
		return nil, err
	}
	return certdto.ToCertificateDTO(cert, false), nil
}

// ListCertificates returns a consumer's certificates in a pool.
func (m *Mediator) ListCertificates(ctx context.Context, caller appperm.Caller, poolID uint, consumerID string) ([]*certdto.CertificateDTO, error) {
	if _, err := m.authorizedPoolAs(ctx, caller, poolID, vo.ResourceCertificate, vo.ActionRead); err != nil {
		return nil, err
	}
	certs, err := m.authority.ListForConsumer(ctx, poolID, consumerID)
	if err != nil {
		return nil, err
	}
	return certdto.ToCertificateDTOs(certs), nil
}

// RevokeCertificate revokes a serial and releases its unit. Revoking an
// already revoked serial succeeds without changing anything.
func (m *Mediator) RevokeCertificate(ctx context.Context, caller appperm.Caller, serial int64) (*certdto.CertificateDTO, error) {
	if err := m.permissions.Authorize(ctx, caller, vo.ResourceEntitlement, vo.ActionRevoke); err != nil {
		return nil, err
	}
	cert, err := m.authority.Get(ctx, serial)
	switch {
	case err == nil:
		if _, err := m.authorizedPoolAs(ctx, caller, cert.PoolID(), vo.ResourceEntitlement, vo.ActionRevoke); err != nil {
			return nil, err
		}
	case apperrors.IsNotFoundError(err):
		// the row may be gone with its pool; Revoke decides
	default:
		return nil, err
	}

	result, err := m.authority.Revoke(ctx, serial)
	if err != nil {
		return nil, err
	}
	if result.Certificate == nil {
		return &certdto.CertificateDTO{Serial: serial, Revoked: true}, nil
	}
	return certdto.ToCertificateDTO(result.Certificate, false), nil
}

// RevocationList returns the signed CRL.
func (m *Mediator) RevocationList(ctx context.Context, caller appperm.Caller) (*certdto.RevocationListDTO, error) {
	if err := m.permissions.Authorize(ctx, caller, vo.ResourceCertificate, vo.ActionRead); err != nil {
		return nil, err
	}
	der, n, err := m.authority.RevocationList(ctx)
	if err != nil {
		return nil, err
	}
	return &certdto.RevocationListDTO{DER: der, Entries: n}, nil
}

// CertificateStatus returns the OCSP answer for a serial.
func (m *Mediator) CertificateStatus(ctx context.Context, caller appperm.Caller, serial int64) (*certdto.StatusDTO, error) {
	if err := m.permissions.Authorize(ctx, caller, vo.ResourceCertificate, vo.ActionRead); err != nil {
		return nil, err
	}
	res, err := m.authority.Status(ctx, serial)
	if err != nil {
		return nil, err
	}
	return certdto.ToStatusDTO(serial, res.Status, res.Revocation, res.Response), nil
}

// CACertificate returns the issuing CA in PEM form.
func (m *Mediator) CACertificate() string {
	return m.authority.CACertificatePEM()
}

func (m *Mediator) authorizedPool(ctx context.Context, caller appperm.Caller, poolID uint, action vo.Action) (*pool.Pool, error) {
	return m.authorizedPoolAs(ctx, caller, poolID, vo.ResourcePool, action)
}

// authorizedPoolAs loads a pool and checks action on resource scoped to the
// pool's owner. A missing pool is NotFound only for callers allowed the action.
func (m *Mediator) authorizedPoolAs(ctx context.Context, caller appperm.Caller, poolID uint, resource vo.Resource, action vo.Action) (*pool.Pool, error) {
	if err := m.permissions.Authorize(ctx, caller, resource, action); err != nil {
		return nil, err
	}
	p, err := m.pools.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NewNotFoundError("pool not found", fmt.Sprintf("pool %d", poolID))
	}
	if err := m.permissions.AuthorizeOwner(ctx, caller, resource, action, p.OwnerKey()); err != nil {
		return nil, err
	}
	return p, nil
}
