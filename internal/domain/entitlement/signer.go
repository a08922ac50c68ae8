package entitlement

import "time"

// SigningRequest carries everything encoded into an issued certificate.
type SigningRequest struct {
	Serial             int64
	Kind               Kind
	PoolID             uint
	SubscriptionID     uint
	OwnerKey           string
	ProductID          string
	ProvidedProductIDs []string
	ConsumerID         string
	Quantity           int64
	NotBefore          time.Time
	NotAfter           time.Time
}

// OCSPStatus is the answer given for a serial.
type OCSPStatus int

const (
	OCSPGood OCSPStatus = iota
	OCSPRevoked
	OCSPUnknown
)

func (s OCSPStatus) String() string {
	switch s {
	case OCSPGood:
		return "good"
	case OCSPRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Signer is the certificate authority backing issuance.
type Signer interface {
	NextSerial() int64
	Sign(req SigningRequest) (Material, error)
	// RevocationList returns a DER encoded CRL covering revs.
	RevocationList(revs []Revocation, now time.Time) ([]byte, error)
	// OCSPResponse returns a DER encoded response. rev is required for OCSPRevoked.
	OCSPResponse(serial int64, status OCSPStatus, rev *Revocation, now time.Time) ([]byte, error)
	CACertificatePEM() string
}
