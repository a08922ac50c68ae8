package usecases

import (
	"context"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// RevocationStatusUseCase publishes revocation state as a CRL or per-serial
// OCSP answers. Serials stay listed after their certificate rows are gone.
type RevocationStatusUseCase struct {
	certificates entitlement.Repository
	revocations  entitlement.RevocationRepository
	signer       entitlement.Signer
	logger       logger.Interface
}

// NewRevocationStatusUseCase creates a new revocation status use case
func NewRevocationStatusUseCase(
	certificates entitlement.Repository,
	revocations entitlement.RevocationRepository,
	signer entitlement.Signer,
	logger logger.Interface,
) *RevocationStatusUseCase {
	return &RevocationStatusUseCase{
		certificates: certificates,
		revocations:  revocations,
		signer:       signer,
		logger:       logger,
	}
}

// RevocationList signs a CRL over every recorded revocation. It also returns
// the number of entries.
func (uc *RevocationStatusUseCase) RevocationList(ctx context.Context) ([]byte, int, error) {
	revs, err := uc.revocations.List(ctx)
	if err != nil {
		uc.logger.Errorw("failed to list revocations", "error", err)
		return nil, 0, err
	}

	der, err := uc.signer.RevocationList(revs, biztime.NowUTC())
	if err != nil {
		uc.logger.Errorw("failed to sign revocation list", "entries", len(revs), "error", err)
		return nil, 0, errors.NewInternalError("failed to sign revocation list", err.Error())
	}
	return der, len(revs), nil
}

// StatusResult is the decided status and its signed OCSP response.
type StatusResult struct {
	Status     entitlement.OCSPStatus
	Revocation *entitlement.Revocation
	Response   []byte
}

// Status answers for one serial. Unknown serials get an OCSP unknown
// response rather than an error.
func (uc *RevocationStatusUseCase) Status(ctx context.Context, serial int64) (*StatusResult, error) {
	if serial <= 0 {
		return nil, errors.NewValidationError("serial must be positive")
	}

	rev, err := uc.revocations.Get(ctx, serial)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{Status: entitlement.OCSPUnknown, Revocation: rev}
	if rev != nil {
		result.Status = entitlement.OCSPRevoked
	} else {
		cert, err := uc.certificates.GetBySerial(ctx, serial)
		if err != nil {
			return nil, err
		}
		switch {
		case cert == nil:
		case cert.IsRevoked():
			// row flipped without a record, which only a partial write could cause
			at := biztime.NowUTC()
			if cert.RevokedAt() != nil {
				at = *cert.RevokedAt()
			}
			result.Status = entitlement.OCSPRevoked
			result.Revocation = &entitlement.Revocation{Serial: serial, PoolID: cert.PoolID(), RevokedAt: at}
		default:
			result.Status = entitlement.OCSPGood
		}
	}

	der, err := uc.signer.OCSPResponse(serial, result.Status, result.Revocation, biztime.NowUTC())
	if err != nil {
		uc.logger.Errorw("failed to sign ocsp response", "serial", serial, "error", err)
		return nil, errors.NewInternalError("failed to sign ocsp response", err.Error())
	}
	result.Response = der
	return result, nil
}
