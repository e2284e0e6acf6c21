package order

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/storefront/internal/cart"
	"github.com/shopcore/storefront/internal/catalog"
	"github.com/shopcore/storefront/internal/stock"
)

// Line is an immutable snapshot of a purchased cart line. Name, SKU and
// price are frozen at purchase time and never follow later product edits.
type Line struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"name"`
	ProductSKU  string  `json:"sku"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Subtotal    float64 `json:"subtotal"`
}

type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a ShippingAddress) Complete() bool {
	return a.Line1 != "" && a.City != "" && a.State != "" && a.PostalCode != "" && a.Country != ""
}

type Order struct {
	ID              string          `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          string          `json:"userId"`
	Status          Status          `json:"status"`
	OrderDate       time.Time       `json:"orderDate"`
	TotalItems      int             `json:"totalItems"`
	TotalAmount     float64         `json:"totalAmount"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	TrackingNumber  string          `json:"trackingNumber,omitempty"`
	ShippedAt       *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	Lines           []Line          `json:"items"`
}

// NewOrderNumber generates a human-facing order number. Uniqueness is
// enforced by the database; a collision surfaces as ErrOrderNumberCollision
// and the caller retries with a fresh number.
func NewOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

// NewFromCart builds the immutable order snapshot from a validated cart.
// products holds the catalog rows read during validation, keyed by id.
func NewFromCart(c *cart.Cart, products map[string]catalog.Product, addr ShippingAddress) *Order {
	o := &Order{
		ID:              uuid.NewString(),
		OrderNumber:     NewOrderNumber(),
		UserID:          c.UserID,
		Status:          StatusPending,
		OrderDate:       time.Now().UTC(),
		ShippingAddress: addr,
		Lines:           make([]Line, 0, len(c.Lines)),
	}

	for _, ln := range c.Lines {
		p := products[ln.ProductID]
		o.Lines = append(o.Lines, Line{
			ProductID:   ln.ProductID,
			ProductName: p.Name,
			ProductSKU:  p.SKU,
			Quantity:    ln.Quantity,
			UnitPrice:   ln.UnitPrice,
			Subtotal:    float64(ln.Quantity) * ln.UnitPrice,
		})
	}

	for _, ln := range o.Lines {
		o.TotalItems += ln.Quantity
		o.TotalAmount += ln.Subtotal
	}
	return o
}

func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusProcessing
}

// StockLines maps the order's lines to ledger lines for reserve/release.
func (o *Order) StockLines() []stock.Line {
	lines := make([]stock.Line, 0, len(o.Lines))
	for _, ln := range o.Lines {
		lines = append(lines, stock.Line{ProductID: ln.ProductID, Quantity: ln.Quantity})
	}
	return lines
}
