package pool

import "errors"

var (
	ErrPoolNotFound     = errors.New("pool not found")
	ErrPoolUnavailable  = errors.New("pool not available for issuance")
	ErrPoolExpired      = errors.New("pool has expired")
	ErrCapacityExceeded = errors.New("pool capacity exceeded")
	ErrInvalidQuantity  = errors.New("pool quantity must be positive")
)
