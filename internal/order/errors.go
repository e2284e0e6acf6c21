package order

import "errors"

var (
	ErrNotFound             = errors.New("order not found")
	ErrNotOwner             = errors.New("order does not belong to user")
	ErrInvalidOrderState    = errors.New("invalid order state transition")
	ErrOrderNumberCollision = errors.New("order number already exists")
	ErrTrackingRequired     = errors.New("tracking number is required")
	ErrInvalidAddress       = errors.New("shipping address is incomplete")
)
