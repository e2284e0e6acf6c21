package checkout

import (
	"context"

	"github.com/shopcore/storefront/internal/cart"
	"github.com/shopcore/storefront/internal/catalog"
)

// Validator re-runs the cart's checkout validation against a product reader.
// During order placement the reader is bound to the placement transaction,
// so validation and reservation are never separated by a commit boundary.
type Validator struct {
	products cart.Products
}

func NewValidator(products cart.Products) *Validator {
	return &Validator{products: products}
}

// Validate checks every line for product availability and sufficient stock,
// returning the product rows read so the order can freeze name/SKU/price.
func (v *Validator) Validate(ctx context.Context, c *cart.Cart) (map[string]catalog.Product, error) {
	return cart.ValidateLines(ctx, v.products, c)
}
