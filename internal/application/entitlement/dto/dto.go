package dto

import (
	"time"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/shared/mapper"
)

// CertificateDTO is the outward view of an issued certificate.
type CertificateDTO struct {
	Serial         int64      `json:"serial" yaml:"serial"`
	PoolID         uint       `json:"pool_id" yaml:"pool_id"`
	ConsumerID     string     `json:"consumer_id,omitempty" yaml:"consumer_id,omitempty"`
	RequestToken   string     `json:"request_token,omitempty" yaml:"request_token,omitempty"`
	Kind           string     `json:"kind" yaml:"kind"`
	IssuedAt       time.Time  `json:"issued_at" yaml:"issued_at"`
	ExpiresAt      time.Time  `json:"expires_at" yaml:"expires_at"`
	Revoked        bool       `json:"revoked" yaml:"revoked"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty" yaml:"revoked_at,omitempty"`
	CertificatePEM string     `json:"certificate" yaml:"certificate"`
	PrivateKeyPEM  string     `json:"private_key,omitempty" yaml:"private_key,omitempty"`
}

// ToCertificateDTO converts a domain certificate. The private key is only
// included when withKey is set.
func ToCertificateDTO(c *entitlement.Certificate, withKey bool) *CertificateDTO {
	if c == nil {
		return nil
	}
	d := &CertificateDTO{
		Serial:         c.Serial(),
		PoolID:         c.PoolID(),
		ConsumerID:     c.ConsumerID(),
		RequestToken:   c.RequestToken(),
		Kind:           c.Kind().String(),
		IssuedAt:       c.IssuedAt(),
		ExpiresAt:      c.ExpiresAt(),
		Revoked:        c.IsRevoked(),
		RevokedAt:      c.RevokedAt(),
		CertificatePEM: c.CertificatePEM(),
	}
	if withKey {
		d.PrivateKeyPEM = c.PrivateKeyPEM()
	}
	return d
}

// ToCertificateDTOs converts a list without private keys.
func ToCertificateDTOs(certs []*entitlement.Certificate) []*CertificateDTO {
	return mapper.MapSlice(certs, func(c *entitlement.Certificate) *CertificateDTO {
		return ToCertificateDTO(c, false)
	})
}

// RevocationListDTO carries a DER encoded CRL.
type RevocationListDTO struct {
	DER     []byte `json:"der" yaml:"der"`
	Entries int    `json:"entries" yaml:"entries"`
}

// StatusDTO is an OCSP answer for one serial.
type StatusDTO struct {
	Serial    int64      `json:"serial" yaml:"serial"`
	Status    string     `json:"status" yaml:"status"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" yaml:"revoked_at,omitempty"`
	Response  []byte     `json:"response" yaml:"response"`
}

// ToStatusDTO converts an OCSP decision for serial.
func ToStatusDTO(serial int64, status entitlement.OCSPStatus, rev *entitlement.Revocation, response []byte) *StatusDTO {
	d := &StatusDTO{
		Serial:   serial,
		Status:   status.String(),
		Response: response,
	}
	if rev != nil {
		at := rev.RevokedAt
		d.RevokedAt = &at
	}
	return d
}
