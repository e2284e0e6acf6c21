package cart

import "errors"

var (
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrProductUnavailable = errors.New("product is not available")
	ErrCartNotFound       = errors.New("cart not found")
	ErrItemNotFound       = errors.New("cart item not found")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrNotOwner           = errors.New("cart item does not belong to user")
)
