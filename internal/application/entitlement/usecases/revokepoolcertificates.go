package usecases

import (
	"context"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/db"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

// RevokePoolCertificatesUseCase revokes every live certificate of a pool.
// It is the revoke step of pool teardown and normally runs inside the
// teardown transaction, so either all serials are revoked or none.
type RevokePoolCertificatesUseCase struct {
	txManager    *db.TransactionManager
	pools        pool.Repository
	certificates entitlement.Repository
	revocations  entitlement.RevocationRepository
	policy       retry.Policy
	logger       logger.Interface
}

// NewRevokePoolCertificatesUseCase creates a new bulk revoke use case
func NewRevokePoolCertificatesUseCase(
	txManager *db.TransactionManager,
	pools pool.Repository,
	certificates entitlement.Repository,
	revocations entitlement.RevocationRepository,
	policy retry.Policy,
	logger logger.Interface,
) *RevokePoolCertificatesUseCase {
	return &RevokePoolCertificatesUseCase{
		txManager:    txManager,
		pools:        pools,
		certificates: certificates,
		revocations:  revocations,
		policy:       policy,
		logger:       logger,
	}
}

// Execute returns the certificates it revoked. Events and metrics are left to
// the caller, which knows when the surrounding transaction commits.
func (uc *RevokePoolCertificatesUseCase) Execute(ctx context.Context, poolID uint) ([]*entitlement.Certificate, error) {
	var revoked []*entitlement.Certificate
	err := uc.txManager.RunWithRetry(ctx, uc.policy, uc.logger, "entitlement.revoke_pool", func(ctx context.Context) error {
		revoked = nil
		active, err := uc.certificates.ListActiveByPool(ctx, poolID)
		if err != nil {
			return err
		}

		now := biztime.NowUTC()
		var units int64
		for _, cert := range active {
			changed, err := uc.certificates.MarkRevoked(ctx, cert.Serial(), now)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			cert.Revoke(now)
			if err := uc.revocations.Record(ctx, entitlement.Revocation{
				Serial:    cert.Serial(),
				PoolID:    poolID,
				Reason:    entitlement.ReasonCessationOfOperation,
				RevokedAt: now,
			}); err != nil {
				return err
			}
			if cert.Kind().Consumes() {
				units++
			}
			revoked = append(revoked, cert)
		}

		if units > 0 {
			if _, err := uc.pools.Release(ctx, poolID, units); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to revoke pool certificates", "pool_id", poolID, "error", err)
		return nil, err
	}

	uc.logger.Infow("pool certificates revoked", "pool_id", poolID, "count", len(revoked))
	return revoked, nil
}
