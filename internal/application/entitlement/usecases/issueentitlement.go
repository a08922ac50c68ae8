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
	"github.com/cipherboy/candlepin/internal/shared/id"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
	"github.com/cipherboy/candlepin/internal/shared/utils"
)

// IssueEntitlementCommand requests one unit of a pool for a consumer.
type IssueEntitlementCommand struct {
	PoolID     uint   `json:"pool_id" validate:"required"`
	ConsumerID string `json:"consumer_id" validate:"required,max=255"`
	// RequestToken makes re-drives idempotent. Empty means a fresh token.
	RequestToken string `json:"request_token" validate:"omitempty,max=64"`
}

// IssueEntitlementResult reports whether an earlier issuance was returned.
type IssueEntitlementResult struct {
	Certificate *entitlement.Certificate
	Reused      bool
}

// IssueEntitlementUseCase consumes one unit and signs a certificate for it.
type IssueEntitlementUseCase struct {
	txManager    *db.TransactionManager
	pools        pool.Repository
	certificates entitlement.Repository
	signer       entitlement.Signer
	publisher    events.EventPublisher
	collab       Collaborators
	policy       retry.Policy
	logger       logger.Interface
}

// NewIssueEntitlementUseCase creates a new issue entitlement use case
func NewIssueEntitlementUseCase(
	txManager *db.TransactionManager,
	pools pool.Repository,
	certificates entitlement.Repository,
	signer entitlement.Signer,
	publisher events.EventPublisher,
	collab Collaborators,
	policy retry.Policy,
	logger logger.Interface,
) *IssueEntitlementUseCase {
	return &IssueEntitlementUseCase{
		txManager:    txManager,
		pools:        pools,
		certificates: certificates,
		signer:       signer,
		publisher:    publisher,
		collab:       collab.withDefaults(),
		policy:       policy,
		logger:       logger,
	}
}

// Execute issues the certificate. The capacity check, the consumed increment
// and the certificate insert share one transaction.
func (uc *IssueEntitlementUseCase) Execute(ctx context.Context, cmd IssueEntitlementCommand) (*IssueEntitlementResult, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		uc.logger.Warnw("invalid issue entitlement command", "error", err)
		return nil, err
	}

	token := cmd.RequestToken
	if token == "" {
		var err error
		if token, err = id.NewRequestToken(); err != nil {
			uc.logger.Errorw("failed to generate request token", "error", err)
			return nil, apperrors.NewInternalError("failed to generate request token")
		}
	}

	uc.logger.Infow("executing issue entitlement use case",
		"pool_id", cmd.PoolID,
		"consumer_id", cmd.ConsumerID,
	)

	var result *IssueEntitlementResult
	err := uc.txManager.RunWithRetry(ctx, uc.policy, uc.logger, "entitlement.issue", func(ctx context.Context) error {
		var err error
		result, err = uc.issue(ctx, cmd.PoolID, cmd.ConsumerID, token)
		return err
	})
	if errors.Is(err, entitlement.ErrDuplicateRequest) {
		// a concurrent request with the same token committed first
		existing, gerr := uc.certificates.GetByRequest(ctx, cmd.PoolID, cmd.ConsumerID, token)
		if gerr != nil {
			return nil, gerr
		}
		if existing == nil {
			return nil, apperrors.NewConflictError("certificate request is in flight", token)
		}
		result, err = &IssueEntitlementResult{Certificate: existing, Reused: true}, nil
	}
	if err != nil {
		if apperrors.IsCapacityExceededError(err) {
			uc.collab.Metrics.IncrementCapacityRejection()
		}
		uc.logger.Warnw("entitlement issuance refused",
			"pool_id", cmd.PoolID,
			"consumer_id", cmd.ConsumerID,
			"error", err,
		)
		return nil, err
	}

	if result.Reused {
		uc.logger.Infow("returning previously issued certificate",
			"serial", result.Certificate.Serial(),
			"pool_id", cmd.PoolID,
		)
		return result, nil
	}

	uc.collab.Metrics.IncrementIssued(entitlement.KindEntitlement.String())
	refreshAvailability(ctx, uc.collab, uc.pools, cmd.PoolID, uc.logger)
	common.Publish(uc.publisher, uc.logger,
		entitlement.NewCertificateEvent(entitlement.EventCertificateIssued, result.Certificate, biztime.NowUTC()))

	uc.logger.Infow("entitlement issued successfully",
		"serial", result.Certificate.Serial(),
		"pool_id", cmd.PoolID,
		"consumer_id", cmd.ConsumerID,
	)
	return result, nil
}

func (uc *IssueEntitlementUseCase) issue(ctx context.Context, poolID uint, consumerID, token string) (*IssueEntitlementResult, error) {
	existing, err := uc.certificates.GetByRequest(ctx, poolID, consumerID, token)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &IssueEntitlementResult{Certificate: existing, Reused: true}, nil
	}

	p, err := uc.pools.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NewNotFoundError("pool not found", fmt.Sprintf("pool %d", poolID))
	}

	now := biztime.NowUTC()
	if err := p.CheckIssuable(now); err != nil {
		return nil, issuanceError(p, err)
	}

	consumed, err := uc.pools.TryConsume(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, apperrors.NewCapacityExceededError("pool capacity exceeded",
			fmt.Sprintf("pool %d has no free capacity", p.ID()))
	}

	notBefore, notAfter := p.CertificateWindow(now)
	serial := uc.signer.NextSerial()
	material, err := uc.signer.Sign(entitlement.SigningRequest{
		Serial:             serial,
		Kind:               entitlement.KindEntitlement,
		PoolID:             p.ID(),
		SubscriptionID:     p.SubscriptionID(),
		OwnerKey:           p.OwnerKey(),
		ProductID:          p.ProductID(),
		ProvidedProductIDs: p.ProvidedProductIDs(),
		ConsumerID:         consumerID,
		Quantity:           1,
		NotBefore:          notBefore,
		NotAfter:           notAfter,
	})
	if err != nil {
		uc.logger.Errorw("failed to sign entitlement certificate", "pool_id", p.ID(), "error", err)
		return nil, apperrors.NewInternalError("failed to sign certificate", err.Error())
	}

	cert, err := entitlement.NewCertificate(serial, p.ID(), consumerID, token,
		entitlement.KindEntitlement, now, notAfter, material)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := uc.certificates.Create(ctx, cert); err != nil {
		return nil, err
	}
	return &IssueEntitlementResult{Certificate: cert}, nil
}

// issuanceError maps a pool refusal onto the error taxonomy. A draining
// pool is already gone as far as callers are concerned.
func issuanceError(p *pool.Pool, err error) error {
	detail := fmt.Sprintf("pool %d", p.ID())
	switch {
	case errors.Is(err, pool.ErrPoolUnavailable):
		return apperrors.NewNotFoundError("pool not available", detail)
	case errors.Is(err, pool.ErrPoolExpired):
		return apperrors.NewValidationError("pool has expired", detail)
	case errors.Is(err, pool.ErrCapacityExceeded):
		return apperrors.NewCapacityExceededError("pool capacity exceeded",
			fmt.Sprintf("pool %d: %d of %d consumed", p.ID(), p.Consumed(), p.Quantity()))
	default:
		return err
	}
}
