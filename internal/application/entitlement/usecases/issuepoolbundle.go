package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/cipherboy/candlepin/internal/application/common"
	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

// IssuePoolBundleUseCase signs the management certificate of a pool. There
// is at most one per pool and it consumes no capacity.
type IssuePoolBundleUseCase struct {
	txManager    *db.TransactionManager
	certificates entitlement.Repository
	signer       entitlement.Signer
	publisher    events.EventPublisher
	collab       Collaborators
	policy       retry.Policy
	logger       logger.Interface
}

// NewIssuePoolBundleUseCase creates a new pool bundle use case
func NewIssuePoolBundleUseCase(
	txManager *db.TransactionManager,
	certificates entitlement.Repository,
	signer entitlement.Signer,
	publisher events.EventPublisher,
	collab Collaborators,
	policy retry.Policy,
	logger logger.Interface,
) *IssuePoolBundleUseCase {
	return &IssuePoolBundleUseCase{
		txManager:    txManager,
		certificates: certificates,
		signer:       signer,
		publisher:    publisher,
		collab:       collab.withDefaults(),
		policy:       policy,
		logger:       logger,
	}
}

// Execute returns the existing bundle or signs a new one. Called inside a
// transaction, the bundle commits or rolls back with it and the event is only
// published when this call owns the transaction.
func (uc *IssuePoolBundleUseCase) Execute(ctx context.Context, p *pool.Pool) (*entitlement.Certificate, error) {
	if p == nil || p.ID() == 0 {
		return nil, apperrors.NewValidationError("pool must be persisted before its bundle is issued")
	}

	owned := !db.InTransaction(ctx)
	var (
		cert  *entitlement.Certificate
		fresh bool
	)
	err := uc.txManager.RunWithRetry(ctx, uc.policy, uc.logger, "entitlement.issue_pool_bundle", func(ctx context.Context) error {
		existing, err := uc.certificates.GetByRequest(ctx, p.ID(), entitlement.PoolBundleConsumer, entitlement.PoolBundleToken)
		if err != nil {
			return err
		}
		if existing != nil {
			cert, fresh = existing, false
			return nil
		}

		now := biztime.NowUTC()
		notBefore, notAfter := p.CertificateWindow(now)
		if notAfter.Before(notBefore) {
			return apperrors.NewValidationError("pool has expired", fmt.Sprintf("pool %d", p.ID()))
		}

		serial := uc.signer.NextSerial()
		material, err := uc.signer.Sign(entitlement.SigningRequest{
			Serial:             serial,
			Kind:               entitlement.KindPool,
			PoolID:             p.ID(),
			SubscriptionID:     p.SubscriptionID(),
			OwnerKey:           p.OwnerKey(),
			ProductID:          p.ProductID(),
			ProvidedProductIDs: p.ProvidedProductIDs(),
			Quantity:           p.Quantity(),
			NotBefore:          notBefore,
			NotAfter:           notAfter,
		})
		if err != nil {
			return apperrors.NewInternalError("failed to sign pool certificate", err.Error())
		}

		c, err := entitlement.NewCertificate(serial, p.ID(), entitlement.PoolBundleConsumer,
			entitlement.PoolBundleToken, entitlement.KindPool, now, notAfter, material)
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		if err := uc.certificates.Create(ctx, c); err != nil {
			return err
		}
		cert, fresh = c, true
		return nil
	})
	if errors.Is(err, entitlement.ErrDuplicateRequest) {
		existing, gerr := uc.certificates.GetByRequest(ctx, p.ID(), entitlement.PoolBundleConsumer, entitlement.PoolBundleToken)
		if gerr != nil {
			return nil, gerr
		}
		cert, fresh, err = existing, false, nil
		if cert == nil {
			err = apperrors.NewConflictError("pool certificate is being issued", fmt.Sprintf("pool %d", p.ID()))
		}
	}
	if err != nil {
		uc.logger.Errorw("failed to issue pool certificate", "pool_id", p.ID(), "error", err)
		return nil, err
	}

	if fresh {
		uc.collab.Metrics.IncrementIssued(entitlement.KindPool.String())
		if owned {
			common.Publish(uc.publisher, uc.logger,
				entitlement.NewCertificateEvent(entitlement.EventCertificateIssued, cert, biztime.NowUTC()))
		}
		uc.logger.Infow("pool certificate issued", "pool_id", p.ID(), "serial", cert.Serial())
	}
	return cert, nil
}
