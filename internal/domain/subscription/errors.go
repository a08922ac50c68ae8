package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrInvalidQuantity         = errors.New("quantity must be a positive integer")
	ErrInvalidValidityWindow   = errors.New("end date must not be before start date")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrSubscriptionDeleted     = errors.New("subscription deleted")
)

func ErrInvalidTransition(from, to Status) error {
	return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, from, to)
}
