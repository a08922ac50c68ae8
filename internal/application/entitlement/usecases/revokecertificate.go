package usecases

import (
	"context"
	"fmt"

	"github.com/cipherboy/candlepin/internal/application/common"
	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/db"
	"github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

// RevokeCertificateResult describes what a revoke call changed.
type RevokeCertificateResult struct {
	Serial int64
	// Certificate is nil when the row was already removed with its pool.
	Certificate *entitlement.Certificate
	// Revoked is false when the serial had been revoked before.
	Revoked bool
}

// RevokeCertificateUseCase revokes a single serial.
type RevokeCertificateUseCase struct {
	txManager    *db.TransactionManager
	pools        pool.Repository
	certificates entitlement.Repository
	revocations  entitlement.RevocationRepository
	publisher    events.EventPublisher
	collab       Collaborators
	policy       retry.Policy
	logger       logger.Interface
}

// NewRevokeCertificateUseCase creates a new revoke certificate use case
func NewRevokeCertificateUseCase(
	txManager *db.TransactionManager,
	pools pool.Repository,
	certificates entitlement.Repository,
	revocations entitlement.RevocationRepository,
	publisher events.EventPublisher,
	collab Collaborators,
	policy retry.Policy,
	logger logger.Interface,
) *RevokeCertificateUseCase {
	return &RevokeCertificateUseCase{
		txManager:    txManager,
		pools:        pools,
		certificates: certificates,
		revocations:  revocations,
		publisher:    publisher,
		collab:       collab.withDefaults(),
		policy:       policy,
		logger:       logger,
	}
}

// Execute revokes serial and releases its unit. Revoking an already revoked
// serial, including one whose row went away with its pool, changes nothing.
func (uc *RevokeCertificateUseCase) Execute(ctx context.Context, serial int64) (*RevokeCertificateResult, error) {
	if serial <= 0 {
		return nil, errors.NewValidationError("serial must be positive")
	}

	uc.logger.Infow("executing revoke certificate use case", "serial", serial)

	var result *RevokeCertificateResult
	err := uc.txManager.RunWithRetry(ctx, uc.policy, uc.logger, "entitlement.revoke", func(ctx context.Context) error {
		var err error
		result, err = uc.revoke(ctx, serial)
		return err
	})
	if err != nil {
		if !errors.IsNotFoundError(err) {
			uc.logger.Errorw("failed to revoke certificate", "serial", serial, "error", err)
		}
		return nil, err
	}

	if !result.Revoked {
		uc.logger.Infow("certificate already revoked", "serial", serial)
		return result, nil
	}

	uc.collab.Metrics.AddRevoked(1)
	refreshAvailability(ctx, uc.collab, uc.pools, result.Certificate.PoolID(), uc.logger)
	common.Publish(uc.publisher, uc.logger,
		entitlement.NewCertificateEvent(entitlement.EventCertificateRevoked, result.Certificate, biztime.NowUTC()))

	uc.logger.Infow("certificate revoked successfully",
		"serial", serial,
		"pool_id", result.Certificate.PoolID(),
	)
	return result, nil
}

func (uc *RevokeCertificateUseCase) revoke(ctx context.Context, serial int64) (*RevokeCertificateResult, error) {
	cert, err := uc.certificates.GetBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		rev, err := uc.revocations.Get(ctx, serial)
		if err != nil {
			return nil, err
		}
		if rev == nil {
			return nil, errors.NewNotFoundError("certificate not found", fmt.Sprintf("serial %d", serial))
		}
		return &RevokeCertificateResult{Serial: serial}, nil
	}
	if cert.IsRevoked() {
		return &RevokeCertificateResult{Serial: serial, Certificate: cert}, nil
	}

	now := biztime.NowUTC()
	changed, err := uc.certificates.MarkRevoked(ctx, serial, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		// lost a race with another revoke of the same serial
		return &RevokeCertificateResult{Serial: serial, Certificate: cert}, nil
	}
	cert.Revoke(now)

	if err := uc.revocations.Record(ctx, entitlement.Revocation{
		Serial:    serial,
		PoolID:    cert.PoolID(),
		Reason:    entitlement.ReasonUnspecified,
		RevokedAt: now,
	}); err != nil {
		return nil, err
	}

	if cert.Kind().Consumes() {
		released, err := uc.pools.Release(ctx, cert.PoolID(), 1)
		if err != nil {
			return nil, err
		}
		if !released {
			uc.logger.Warnw("pool consumption already at zero on revoke",
				"serial", serial,
				"pool_id", cert.PoolID(),
			)
		}
	}

	return &RevokeCertificateResult{Serial: serial, Certificate: cert, Revoked: true}, nil
}
