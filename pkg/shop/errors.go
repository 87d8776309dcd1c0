package shop

import "errors"

var (
	// ErrStoreClosed rejects every submission while the stand is not taking orders.
	ErrStoreClosed = errors.New("store is closed")
	// ErrInvalidName rejects submissions whose customer name is empty after sanitizing.
	ErrInvalidName = errors.New("a name or table number is required")
	// ErrEmptyCart rejects carts that contain no orderable entries after filtering.
	ErrEmptyCart = errors.New("cart is empty")
)
