// Package entitlement models the certificates that prove a consumer holds a
// unit of capacity from a pool.
package entitlement

// Kind distinguishes consumer entitlements from pool-level bundles.
type Kind string

const (
	// KindEntitlement is issued to a consumer and consumes one unit.
	KindEntitlement Kind = "entitlement"
	// KindPool is the management bundle for a pool; it consumes nothing.
	KindPool Kind = "pool"
)

// IsValid checks if the kind is valid
func (k Kind) IsValid() bool {
	switch k {
	case KindEntitlement, KindPool:
		return true
	default:
		return false
	}
}

// Consumes reports whether certificates of this kind count against pool capacity.
func (k Kind) Consumes() bool {
	return k == KindEntitlement
}

func (k Kind) String() string {
	return string(k)
}

// PoolBundleConsumer and PoolBundleToken key the single bundle per pool
// in the (pool, consumer, token) uniqueness constraint.
const (
	PoolBundleConsumer = ""
	PoolBundleToken    = "pool-bundle"
)

// RevocationReason follows the RFC 5280 CRLReason codes used on the CRL.
type RevocationReason int

const (
	ReasonUnspecified          RevocationReason = 0
	ReasonSuperseded           RevocationReason = 4
	ReasonCessationOfOperation RevocationReason = 5
)
