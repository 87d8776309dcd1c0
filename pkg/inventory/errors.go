package inventory

import "errors"

// Errors the ordering workflow maps to request rejections.
var (
	// ErrItemNotFound is returned when an order references a snack that is not on the menu.
	ErrItemNotFound = errors.New("item not found")
	// ErrInsufficientStock is returned when a cart asks for more units than remain.
	ErrInsufficientStock = errors.New("not enough stock")
	// ErrOutOfStock is returned when a single-item order hits a zero count.
	ErrOutOfStock = errors.New("item out of stock")
)
