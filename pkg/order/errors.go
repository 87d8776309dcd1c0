package order

import "errors"

var (
	// ErrUnknownOrder is returned when no ledger entry carries the requested identifier.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrAlreadyDelivered guards the delivered flag: completing twice is an error, not a no-op.
	ErrAlreadyDelivered = errors.New("order already delivered")
)
