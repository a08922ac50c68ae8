package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/mappers"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// CertificateRepositoryImpl implements entitlement.Repository and
// entitlement.RevocationRepository with gorm
type CertificateRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.CertificateMapper
	logger logger.Interface
}

// NewCertificateRepository creates a new certificate repository instance
func NewCertificateRepository(db *gorm.DB, logger logger.Interface) *CertificateRepositoryImpl {
	return &CertificateRepositoryImpl{
		db:     db,
		mapper: mappers.NewCertificateMapper(),
		logger: logger,
	}
}

var (
	_ entitlement.Repository           = (*CertificateRepositoryImpl)(nil)
	_ entitlement.RevocationRepository = (*CertificateRepositoryImpl)(nil)
)

func (r *CertificateRepositoryImpl) Create(ctx context.Context, c *entitlement.Certificate) error {
	model := r.mapper.ToModel(c)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return entitlement.ErrDuplicateRequest
		}
		r.logger.Errorw("failed to create certificate",
			"pool_id", c.PoolID(),
			"consumer_id", c.ConsumerID(),
			"error", err)
		return apperrors.FromDB("failed to create certificate", err)
	}
	return c.SetID(model.ID)
}

func (r *CertificateRepositoryImpl) first(ctx context.Context, query string, args ...any) (*entitlement.Certificate, error) {
	var model models.EntitlementCertificateModel
	if err := db.GetTxFromContext(ctx, r.db).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get certificate", "query", query, "error", err)
		return nil, apperrors.FromDB("failed to get certificate", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *CertificateRepositoryImpl) GetBySerial(ctx context.Context, serial int64) (*entitlement.Certificate, error) {
	return r.first(ctx, "serial = ?", serial)
}

func (r *CertificateRepositoryImpl) GetByRequest(ctx context.Context, poolID uint, consumerID, requestToken string) (*entitlement.Certificate, error) {
	return r.first(ctx, "pool_id = ? AND consumer_id = ? AND request_token = ?", poolID, consumerID, requestToken)
}

func (r *CertificateRepositoryImpl) find(ctx context.Context, query string, args ...any) ([]*entitlement.Certificate, error) {
	var rows []*models.EntitlementCertificateModel
	if err := db.GetTxFromContext(ctx, r.db).Where(query, args...).Scopes(db.OrderByID()).Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list certificates", "query", query, "error", err)
		return nil, apperrors.FromDB("failed to list certificates", err)
	}
	return r.mapper.ToEntities(rows)
}

func (r *CertificateRepositoryImpl) ListByPoolAndConsumer(ctx context.Context, poolID uint, consumerID string) ([]*entitlement.Certificate, error) {
	return r.find(ctx, "pool_id = ? AND consumer_id = ? AND kind = ?", poolID, consumerID, entitlement.KindEntitlement.String())
}

func (r *CertificateRepositoryImpl) ListActiveByPool(ctx context.Context, poolID uint) ([]*entitlement.Certificate, error) {
	return r.find(ctx, "pool_id = ? AND revoked = ?", poolID, false)
}

func (r *CertificateRepositoryImpl) MarkRevoked(ctx context.Context, serial int64, at time.Time) (bool, error) {
	at = at.UTC()
	result := db.GetTxFromContext(ctx, r.db).Model(&models.EntitlementCertificateModel{}).
		Where("serial = ? AND revoked = ?", serial, false).
		Updates(map[string]any{"revoked": true, "revoked_at": at})
	if result.Error != nil {
		r.logger.Errorw("failed to mark certificate revoked", "serial", serial, "error", result.Error)
		return false, apperrors.FromDB("failed to revoke certificate", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *CertificateRepositoryImpl) Reissue(ctx context.Context, previousSerial int64, c *entitlement.Certificate) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.EntitlementCertificateModel{}).
		Where("serial = ? AND revoked = ?", previousSerial, false).
		Updates(map[string]any{
			"serial":          c.Serial(),
			"issued_at":       c.IssuedAt(),
			"expires_at":      c.ExpiresAt(),
			"certificate_pem": c.CertificatePEM(),
			"private_key_pem": c.PrivateKeyPEM(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to reissue certificate",
			"previous_serial", previousSerial,
			"serial", c.Serial(),
			"error", result.Error)
		return false, apperrors.FromDB("failed to reissue certificate", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *CertificateRepositoryImpl) DeleteByPool(ctx context.Context, poolID uint) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).Where("pool_id = ?", poolID).Delete(&models.EntitlementCertificateModel{})
	if result.Error != nil {
		r.logger.Errorw("failed to delete pool certificates", "pool_id", poolID, "error", result.Error)
		return 0, apperrors.FromDB("failed to delete certificates", result.Error)
	}
	return result.RowsAffected, nil
}

// Record stores a revocation, ignoring a serial that is already recorded.
func (r *CertificateRepositoryImpl) Record(ctx context.Context, rev entitlement.Revocation) error {
	if err := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(r.mapper.RevocationToModel(rev)).Error; err != nil {
		r.logger.Errorw("failed to record revocation", "serial", rev.Serial, "error", err)
		return apperrors.FromDB("failed to record revocation", err)
	}
	return nil
}

func (r *CertificateRepositoryImpl) Get(ctx context.Context, serial int64) (*entitlement.Revocation, error) {
	var model models.RevocationModel
	if err := db.GetTxFromContext(ctx, r.db).Where("serial = ?", serial).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get revocation", "serial", serial, "error", err)
		return nil, apperrors.FromDB("failed to get revocation", err)
	}
	rev := r.mapper.RevocationToEntity(&model)
	return &rev, nil
}

func (r *CertificateRepositoryImpl) List(ctx context.Context) ([]entitlement.Revocation, error) {
	var rows []*models.RevocationModel
	if err := db.GetTxFromContext(ctx, r.db).Order("serial ASC").Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list revocations", "error", err)
		return nil, apperrors.FromDB("failed to list revocations", err)
	}
	out := make([]entitlement.Revocation, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.mapper.RevocationToEntity(row))
	}
	return out, nil
}
