// Package entitlement is the certificate authority adapter: it issues and
// revokes entitlement certificates against pool capacity.
package entitlement

import (
	"context"

	"github.com/cipherboy/candlepin/internal/application/entitlement/usecases"
	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/shared/db"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

// Dependencies wires the authority service.
type Dependencies struct {
	TxManager    *db.TransactionManager
	Pools        pool.Repository
	Certificates entitlement.Repository
	Revocations  entitlement.RevocationRepository
	Signer       entitlement.Signer
	Publisher    events.EventPublisher
	Collab       usecases.Collaborators
	RetryPolicy  retry.Policy
	Logger       logger.Interface
}

// ServiceDDD exposes the certificate operations to the reconciler and the
// access mediator.
type ServiceDDD struct {
	issueUC      *usecases.IssueEntitlementUseCase
	revokeUC     *usecases.RevokeCertificateUseCase
	revokePoolUC *usecases.RevokePoolCertificatesUseCase
	bundleUC     *usecases.IssuePoolBundleUseCase
	regenUC      *usecases.RegeneratePoolCertificatesUseCase
	getUC        *usecases.GetCertificateUseCase
	statusUC     *usecases.RevocationStatusUseCase
	signer       entitlement.Signer
}

// NewServiceDDD creates the authority service.
func NewServiceDDD(d Dependencies) *ServiceDDD {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	log := d.Logger.Named("authority")
	return &ServiceDDD{
		issueUC: usecases.NewIssueEntitlementUseCase(
			d.TxManager, d.Pools, d.Certificates, d.Signer, d.Publisher, d.Collab, d.RetryPolicy, log),
		revokeUC: usecases.NewRevokeCertificateUseCase(
			d.TxManager, d.Pools, d.Certificates, d.Revocations, d.Publisher, d.Collab, d.RetryPolicy, log),
		revokePoolUC: usecases.NewRevokePoolCertificatesUseCase(
			d.TxManager, d.Pools, d.Certificates, d.Revocations, d.RetryPolicy, log),
		bundleUC: usecases.NewIssuePoolBundleUseCase(
			d.TxManager, d.Certificates, d.Signer, d.Publisher, d.Collab, d.RetryPolicy, log),
		regenUC: usecases.NewRegeneratePoolCertificatesUseCase(
			d.TxManager, d.Certificates, d.Revocations, d.Signer, d.RetryPolicy, log),
		getUC:    usecases.NewGetCertificateUseCase(d.Pools, d.Certificates, log),
		statusUC: usecases.NewRevocationStatusUseCase(d.Certificates, d.Revocations, d.Signer, log),
		signer:   d.Signer,
	}
}

// Issue grants one unit of poolID to consumerID.
func (s *ServiceDDD) Issue(ctx context.Context, poolID uint, consumerID, requestToken string) (*usecases.IssueEntitlementResult, error) {
	return s.issueUC.Execute(ctx, usecases.IssueEntitlementCommand{
		PoolID:       poolID,
		ConsumerID:   consumerID,
		RequestToken: requestToken,
	})
}

// Revoke revokes a single serial.
func (s *ServiceDDD) Revoke(ctx context.Context, serial int64) (*usecases.RevokeCertificateResult, error) {
	return s.revokeUC.Execute(ctx, serial)
}

// RevokeAllForPool revokes every live certificate of a pool, joining the
// caller's transaction when there is one.
func (s *ServiceDDD) RevokeAllForPool(ctx context.Context, poolID uint) ([]*entitlement.Certificate, error) {
	return s.revokePoolUC.Execute(ctx, poolID)
}

// IssuePoolBundle returns the pool's management certificate, signing it on
// first use.
func (s *ServiceDDD) IssuePoolBundle(ctx context.Context, p *pool.Pool) (*entitlement.Certificate, error) {
	return s.bundleUC.Execute(ctx, p)
}

// RegeneratePoolCertificates re-signs the pool's live certificates for its
// current window, joining the caller's transaction when there is one.
func (s *ServiceDDD) RegeneratePoolCertificates(ctx context.Context, p *pool.Pool) ([]*entitlement.Certificate, error) {
	return s.regenUC.Execute(ctx, p)
}

// Get returns a certificate by serial.
func (s *ServiceDDD) Get(ctx context.Context, serial int64) (*entitlement.Certificate, error) {
	return s.getUC.BySerial(ctx, serial)
}

// ListForConsumer returns a consumer's certificates in a pool.
func (s *ServiceDDD) ListForConsumer(ctx context.Context, poolID uint, consumerID string) ([]*entitlement.Certificate, error) {
	return s.getUC.ForConsumer(ctx, poolID, consumerID)
}

// PoolCertificate returns the pool bundle without creating one.
func (s *ServiceDDD) PoolCertificate(ctx context.Context, poolID uint) (*entitlement.Certificate, error) {
	return s.getUC.PoolCertificate(ctx, poolID)
}

// RevocationList returns a DER CRL and its entry count.
func (s *ServiceDDD) RevocationList(ctx context.Context) ([]byte, int, error) {
	return s.statusUC.RevocationList(ctx)
}

// Status returns the OCSP answer for serial.
func (s *ServiceDDD) Status(ctx context.Context, serial int64) (*usecases.StatusResult, error) {
	return s.statusUC.Status(ctx, serial)
}

// CACertificatePEM returns the issuing CA.
func (s *ServiceDDD) CACertificatePEM() string {
	return s.signer.CACertificatePEM()
}
