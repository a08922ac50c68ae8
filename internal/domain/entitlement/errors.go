package entitlement

import "errors"

var (
	// ErrCertificateNotFound is returned when no certificate or revocation exists for a serial
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrDuplicateRequest is returned when a (pool, consumer, token) triple was already issued
	ErrDuplicateRequest = errors.New("certificate already issued for request")

	// ErrInvalidKind is returned when an unknown certificate kind is provided
	ErrInvalidKind = errors.New("invalid certificate kind")

	// ErrConsumerIDRequired is returned when an entitlement has no consumer
	ErrConsumerIDRequired = errors.New("consumer ID is required")

	// ErrCertificateRevoked is returned when a revoked certificate would be reissued
	ErrCertificateRevoked = errors.New("certificate is revoked")
)
