package usecases

import (
	"context"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

// RegeneratePoolCertificatesUseCase re-signs every live certificate of a pool
// after its window or provided products changed. Each certificate gets a new
// serial clipped to the pool's current window; the old serial is recorded as
// superseded. Consumption is untouched.
type RegeneratePoolCertificatesUseCase struct {
	txManager    *db.TransactionManager
	certificates entitlement.Repository
	revocations  entitlement.RevocationRepository
	signer       entitlement.Signer
	policy       retry.Policy
	logger       logger.Interface
}

// NewRegeneratePoolCertificatesUseCase creates a new regeneration use case
func NewRegeneratePoolCertificatesUseCase(
	txManager *db.TransactionManager,
	certificates entitlement.Repository,
	revocations entitlement.RevocationRepository,
	signer entitlement.Signer,
	policy retry.Policy,
	logger logger.Interface,
) *RegeneratePoolCertificatesUseCase {
	return &RegeneratePoolCertificatesUseCase{
		txManager:    txManager,
		certificates: certificates,
		revocations:  revocations,
		signer:       signer,
		policy:       policy,
		logger:       logger,
	}
}

// Execute returns the regenerated certificates. It joins the caller's
// transaction, so a failed reconcile pass keeps the old certificates.
func (uc *RegeneratePoolCertificatesUseCase) Execute(ctx context.Context, p *pool.Pool) ([]*entitlement.Certificate, error) {
	if p == nil || p.ID() == 0 {
		return nil, apperrors.NewValidationError("pool must be persisted before its certificates are regenerated")
	}

	var regenerated []*entitlement.Certificate
	err := uc.txManager.RunWithRetry(ctx, uc.policy, uc.logger, "entitlement.regenerate_pool", func(ctx context.Context) error {
		regenerated = nil
		active, err := uc.certificates.ListActiveByPool(ctx, p.ID())
		if err != nil {
			return err
		}

		now := biztime.NowUTC()
		notBefore, notAfter := p.CertificateWindow(now)
		if notAfter.Before(notBefore) {
			// pool already ended: the reissued certificate is expired on arrival
			notBefore = notAfter
		}

		for _, cert := range active {
			serial := uc.signer.NextSerial()
			material, err := uc.signer.Sign(entitlement.SigningRequest{
				Serial:             serial,
				Kind:               cert.Kind(),
				PoolID:             p.ID(),
				SubscriptionID:     p.SubscriptionID(),
				OwnerKey:           p.OwnerKey(),
				ProductID:          p.ProductID(),
				ProvidedProductIDs: p.ProvidedProductIDs(),
				ConsumerID:         cert.ConsumerID(),
				Quantity:           quantityFor(cert.Kind(), p),
				NotBefore:          notBefore,
				NotAfter:           notAfter,
			})
			if err != nil {
				return apperrors.NewInternalError("failed to sign certificate", err.Error())
			}

			previous, err := cert.Reissue(serial, notBefore, notAfter, material)
			if err != nil {
				return apperrors.NewInternalError("failed to reissue certificate", err.Error())
			}
			ok, err := uc.certificates.Reissue(ctx, previous, cert)
			if err != nil {
				return err
			}
			if !ok {
				// revoked concurrently; the revocation already released its unit
				continue
			}
			if err := uc.revocations.Record(ctx, entitlement.Revocation{
				Serial:    previous,
				PoolID:    p.ID(),
				Reason:    entitlement.ReasonSuperseded,
				RevokedAt: now,
			}); err != nil {
				return err
			}
			regenerated = append(regenerated, cert)
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to regenerate pool certificates", "pool_id", p.ID(), "error", err)
		return nil, err
	}

	if len(regenerated) > 0 {
		uc.logger.Infow("pool certificates regenerated",
			"pool_id", p.ID(),
			"count", len(regenerated),
			"expires_at", p.EndDate(),
		)
	}
	return regenerated, nil
}

func quantityFor(kind entitlement.Kind, p *pool.Pool) int64 {
	if kind == entitlement.KindPool {
		return p.Quantity()
	}
	return 1
}
