package cart

import (
	"time"

	"github.com/google/uuid"
)

type Line struct {
	ID        string  `json:"itemId"`
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

// Cart is the aggregate root for a user's shopping cart. Lines are mutated
// only through the methods below; every mutation recomputes the stored
// totals so they are always readable without side effects.
type Cart struct {
	ID          string    `json:"cartId"`
	UserID      string    `json:"userId"`
	Lines       []Line    `json:"items"`
	TotalItems  int       `json:"totalItems"`
	TotalAmount float64   `json:"totalAmount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func New(userID string) *Cart {
	return &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Lines:     []Line{},
		UpdatedAt: time.Now().UTC(),
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// AddLine merges into the existing line for the product, or appends a new
// one. At most one line per product exists in a cart.
func (c *Cart) AddLine(productID string, unitPrice float64, qty int) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity += qty
			c.Lines[i].UnitPrice = unitPrice
			c.recalcTotals()
			return &c.Lines[i]
		}
	}

	c.Lines = append(c.Lines, Line{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: unitPrice,
	})
	c.recalcTotals()
	return &c.Lines[len(c.Lines)-1]
}

func (c *Cart) UpdateLineQuantity(lineID string, qty int) error {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines[i].Quantity = qty
			c.recalcTotals()
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) RemoveLine(lineID string) error {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.recalcTotals()
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) Clear() {
	c.Lines = c.Lines[:0]
	c.recalcTotals()
}

func (c *Cart) LineByID(lineID string) *Line {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i]
		}
	}
	return nil
}

func (c *Cart) LineByProduct(productID string) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

func (c *Cart) recalcTotals() {
	items := 0
	amount := 0.0
	for i := range c.Lines {
		c.Lines[i].Subtotal = float64(c.Lines[i].Quantity) * c.Lines[i].UnitPrice
		items += c.Lines[i].Quantity
		amount += c.Lines[i].Subtotal
	}
	c.TotalItems = items
	c.TotalAmount = amount
	c.UpdatedAt = time.Now().UTC()
}
