package entitlement

import (
	"fmt"
	"time"
)

// Certificate is an issued X.509 entitlement bound to a pool.
type Certificate struct {
	id             uint
	serial         int64
	poolID         uint
	consumerID     string
	requestToken   string
	kind           Kind
	issuedAt       time.Time
	expiresAt      time.Time
	revoked        bool
	revokedAt      *time.Time
	certificatePEM string
	privateKeyPEM  string
}

// Material is the signed certificate and its key, both PEM encoded.
type Material struct {
	CertificatePEM string
	PrivateKeyPEM  string
}

// NewCertificate creates an unrevoked certificate.
func NewCertificate(
	serial int64,
	poolID uint,
	consumerID, requestToken string,
	kind Kind,
	issuedAt, expiresAt time.Time,
	material Material,
) (*Certificate, error) {
	if serial <= 0 {
		return nil, fmt.Errorf("serial must be positive")
	}
	if poolID == 0 {
		return nil, fmt.Errorf("pool ID is required")
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}
	if kind == KindEntitlement && consumerID == "" {
		return nil, ErrConsumerIDRequired
	}
	if expiresAt.Before(issuedAt) {
		return nil, fmt.Errorf("certificate expires before it is issued")
	}
	return &Certificate{
		serial:         serial,
		poolID:         poolID,
		consumerID:     consumerID,
		requestToken:   requestToken,
		kind:           kind,
		issuedAt:       issuedAt.UTC(),
		expiresAt:      expiresAt.UTC(),
		certificatePEM: material.CertificatePEM,
		privateKeyPEM:  material.PrivateKeyPEM,
	}, nil
}

// ReconstructCertificate rebuilds a certificate from persistence.
func ReconstructCertificate(
	id uint,
	serial int64,
	poolID uint,
	consumerID, requestToken string,
	kind Kind,
	issuedAt, expiresAt time.Time,
	revoked bool,
	revokedAt *time.Time,
	material Material,
) (*Certificate, error) {
	if id == 0 {
		return nil, fmt.Errorf("certificate ID cannot be zero")
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}
	return &Certificate{
		id:             id,
		serial:         serial,
		poolID:         poolID,
		consumerID:     consumerID,
		requestToken:   requestToken,
		kind:           kind,
		issuedAt:       issuedAt.UTC(),
		expiresAt:      expiresAt.UTC(),
		revoked:        revoked,
		revokedAt:      revokedAt,
		certificatePEM: material.CertificatePEM,
		privateKeyPEM:  material.PrivateKeyPEM,
	}, nil
}

func (c *Certificate) ID() uint               { return c.id }
func (c *Certificate) Serial() int64          { return c.serial }
func (c *Certificate) PoolID() uint           { return c.poolID }
func (c *Certificate) ConsumerID() string     { return c.consumerID }
func (c *Certificate) RequestToken() string   { return c.requestToken }
func (c *Certificate) Kind() Kind             { return c.kind }
func (c *Certificate) IssuedAt() time.Time    { return c.issuedAt }
func (c *Certificate) ExpiresAt() time.Time   { return c.expiresAt }
func (c *Certificate) IsRevoked() bool        { return c.revoked }
func (c *Certificate) RevokedAt() *time.Time  { return c.revokedAt }
func (c *Certificate) CertificatePEM() string { return c.certificatePEM }
func (c *Certificate) PrivateKeyPEM() string  { return c.privateKeyPEM }

// SetID sets the certificate ID (only for persistence layer use)
func (c *Certificate) SetID(id uint) error {
	if c.id != 0 {
		return fmt.Errorf("certificate ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("certificate ID cannot be zero")
	}
	c.id = id
	return nil
}

// Revoke marks the certificate revoked. It returns false when it already was.
func (c *Certificate) Revoke(at time.Time) bool {
	if c.revoked {
		return false
	}
	at = at.UTC()
	c.revoked = true
	c.revokedAt = &at
	return true
}

// Reissue replaces the signed material under a new serial and window. The
// request identity and consumption are kept; the previous serial is returned
// so the caller can record it as superseded.
func (c *Certificate) Reissue(serial int64, issuedAt, expiresAt time.Time, material Material) (int64, error) {
	if c.revoked {
		return 0, ErrCertificateRevoked
	}
	if serial <= 0 || serial == c.serial {
		return 0, fmt.Errorf("reissue needs a fresh serial")
	}
	if expiresAt.Before(issuedAt) {
		return 0, fmt.Errorf("certificate expires before it is issued")
	}
	previous := c.serial
	c.serial = serial
	c.issuedAt = issuedAt.UTC()
	c.expiresAt = expiresAt.UTC()
	c.certificatePEM = material.CertificatePEM
	c.privateKeyPEM = material.PrivateKeyPEM
	return previous, nil
}

// IsValidAt reports whether the certificate is unrevoked and inside its window.
func (c *Certificate) IsValidAt(now time.Time) bool {
	return !c.revoked && !now.Before(c.issuedAt) && !now.After(c.expiresAt)
}

// Revocation is the durable record of a revoked serial. It outlives the
// certificate row, which is removed with its pool.
type Revocation struct {
	Serial    int64
	PoolID    uint
	Reason    RevocationReason
	RevokedAt time.Time
}
