package mappers

import (
	"fmt"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
	"github.com/cipherboy/candlepin/internal/shared/mapper"
)

// CertificateMapper handles the conversion between certificate entities and persistence models
type CertificateMapper interface {
	ToEntity(model *models.EntitlementCertificateModel) (*entitlement.Certificate, error)
	ToModel(entity *entitlement.Certificate) *models.EntitlementCertificateModel
	ToEntities(models []*models.EntitlementCertificateModel) ([]*entitlement.Certificate, error)
	RevocationToModel(r entitlement.Revocation) *models.RevocationModel
	RevocationToEntity(model *models.RevocationModel) entitlement.Revocation
}

type certificateMapper struct{}

// NewCertificateMapper creates a new certificate mapper
func NewCertificateMapper() CertificateMapper {
	return &certificateMapper{}
}

func (m *certificateMapper) ToEntity(model *models.EntitlementCertificateModel) (*entitlement.Certificate, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := entitlement.ReconstructCertificate(
		model.ID,
		model.Serial,
		model.PoolID,
		model.ConsumerID,
		model.RequestToken,
		entitlement.Kind(model.Kind),
		model.IssuedAt,
		model.ExpiresAt,
		model.Revoked,
		model.RevokedAt,
		entitlement.Material{
			CertificatePEM: model.CertificatePEM,
			PrivateKeyPEM:  model.PrivateKeyPEM,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct certificate entity: %w", err)
	}
	return entity, nil
}

func (m *certificateMapper) ToModel(entity *entitlement.Certificate) *models.EntitlementCertificateModel {
	if entity == nil {
		return nil
	}
	return &models.EntitlementCertificateModel{
		ID:             entity.ID(),
		Serial:         entity.Serial(),
		PoolID:         entity.PoolID(),
		ConsumerID:     entity.ConsumerID(),
		RequestToken:   entity.RequestToken(),
		Kind:           entity.Kind().String(),
		IssuedAt:       entity.IssuedAt(),
		ExpiresAt:      entity.ExpiresAt(),
		Revoked:        entity.IsRevoked(),
		RevokedAt:      entity.RevokedAt(),
		CertificatePEM: entity.CertificatePEM(),
		PrivateKeyPEM:  entity.PrivateKeyPEM(),
	}
}

func (m *certificateMapper) ToEntities(items []*models.EntitlementCertificateModel) ([]*entitlement.Certificate, error) {
	return mapper.MapSlicePtrWithID(items, m.ToEntity, func(model *models.EntitlementCertificateModel) int64 { return model.Serial })
}

func (m *certificateMapper) RevocationToModel(r entitlement.Revocation) *models.RevocationModel {
	return &models.RevocationModel{
		Serial:    r.Serial,
		PoolID:    r.PoolID,
		Reason:    int(r.Reason),
		RevokedAt: r.RevokedAt.UTC(),
	}
}

func (m *certificateMapper) RevocationToEntity(model *models.RevocationModel) entitlement.Revocation {
	return entitlement.Revocation{
		Serial:    model.Serial,
		PoolID:    model.PoolID,
		Reason:    entitlement.RevocationReason(model.Reason),
		RevokedAt: model.RevokedAt.UTC(),
	}
}
