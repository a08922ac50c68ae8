package usecases

import (
	"context"
	"fmt"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// GetCertificateUseCase answers certificate lookups.
type GetCertificateUseCase struct {
	pools        pool.Repository
	certificates entitlement.Repository
	logger       logger.Interface
}

// NewGetCertificateUseCase creates a new get certificate use case
func NewGetCertificateUseCase(
	pools pool.Repository,
	certificates entitlement.Repository,
	logger logger.Interface,
) *GetCertificateUseCase {
	return &GetCertificateUseCase{
		pools:        pools,
		certificates: certificates,
		logger:       logger,
	}
}

// BySerial returns the certificate row for serial.
func (uc *GetCertificateUseCase) BySerial(ctx context.Context, serial int64) (*entitlement.Certificate, error) {
	cert, err := uc.certificates.GetBySerial(ctx, serial)
	if err != nil {
		uc.logger.Errorw("failed to get certificate", "serial", serial, "error", err)
		return nil, err
	}
	if cert == nil {
		return nil, errors.NewNotFoundError("certificate not found", fmt.Sprintf("serial %d", serial))
	}
	return cert, nil
}

// ForConsumer lists a consumer's certificates in a pool, oldest first.
func (uc *GetCertificateUseCase) ForConsumer(ctx context.Context, poolID uint, consumerID string) ([]*entitlement.Certificate, error) {
	if consumerID == "" {
		return nil, errors.NewValidationError("consumer ID is required")
	}
	if _, err := uc.requirePool(ctx, poolID); err != nil {
		return nil, err
	}

	certs, err := uc.certificates.ListByPoolAndConsumer(ctx, poolID, consumerID)
	if err != nil {
		uc.logger.Errorw("failed to list consumer certificates",
			"pool_id", poolID,
			"consumer_id", consumerID,
			"error", err,
		)
		return nil, err
	}
	return certs, nil
}

// PoolCertificate returns the management bundle of a pool.
func (uc *GetCertificateUseCase) PoolCertificate(ctx context.Context, poolID uint) (*entitlement.Certificate, error) {
	if _, err := uc.requirePool(ctx, poolID); err != nil {
		return nil, err
	}

	cert, err := uc.certificates.GetByRequest(ctx, poolID, entitlement.PoolBundleConsumer, entitlement.PoolBundleToken)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, errors.NewNotFoundError("pool has no certificate", fmt.Sprintf("pool %d", poolID))
	}
	return cert, nil
}

func (uc *GetCertificateUseCase) requirePool(ctx context.Context, poolID uint) (*pool.Pool, error) {
	p, err := uc.pools.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.NewNotFoundError("pool not found", fmt.Sprintf("pool %d", poolID))
	}
	return p, nil
}
