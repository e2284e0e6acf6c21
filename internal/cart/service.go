package cart

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopcore/storefront/internal/catalog"
	"github.com/shopcore/storefront/internal/stock"
)

// Products is the read side of the catalog collaborator.
type Products interface {
	Get(ctx context.Context, productID string) (catalog.Product, error)
}

// Service orchestrates cart mutations against the catalog's live stock
// counters. Adding to a cart only checks availability; nothing is reserved
// until checkout, so a cart is non-binding intent.
type Service struct {
	carts    Repository
	products Products
	logger   *log.Logger
}

func NewService(carts Repository, products Products, logger *log.Logger) *Service {
	return &Service{carts: carts, products: products, logger: logger}
}

// GetOrCreate returns the user's cart, lazily creating an empty one.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	c = New(userID)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return c, nil
}

func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrProductUnavailable
	}

	c, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	requested := qty
	if ln := c.LineByProduct(productID); ln != nil {
		requested += ln.Quantity
	}
	if p.StockQuantity < requested {
		return nil, &stock.InsufficientStockError{
			ProductID: productID,
			Requested: requested,
			Available: p.StockQuantity,
		}
	}

	c.AddLine(productID, p.Price, qty)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.Printf("cart item added user=%s product=%s qty=%d", userID, productID, qty)
	return c, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID string, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	ln, ownerID, err := s.carts.FindLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrNotOwner
	}

	p, err := s.products.Get(ctx, ln.ProductID)
	if err != nil {
		return nil, err
	}
	if p.StockQuantity < qty {
		return nil, &stock.InsufficientStockError{
			ProductID: ln.ProductID,
			Requested: qty,
			Available: p.StockQuantity,
		}
	}

	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateLineQuantity(lineID, qty); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, lineID string) (*Cart, error) {
	_, ownerID, err := s.carts.FindLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrNotOwner
	}

	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveLine(lineID); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Clear rejects an already-empty cart so a double submit surfaces to the
// caller instead of silently succeeding.
func (s *Service) Clear(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrCartEmpty
	}

	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

func (s *Service) ItemCount(ctx context.Context, userID string) (int, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return c.TotalItems, nil
}

// ValidateForCheckout re-verifies every line against current product state.
// Read-only: stock is not reserved here. A race between this check and the
// checkout reservation remains possible; the ledger's conditional decrement
// is the enforcement point.
func (s *Service) ValidateForCheckout(ctx context.Context, userID string) error {
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	_, err = ValidateLines(ctx, s.products, c)
	return err
}

// ValidateLines checks every cart line against current product state and
// returns the products read, keyed by id, so callers can freeze name/SKU/
// price into an order without a second read.
func ValidateLines(ctx context.Context, products Products, c *Cart) (map[string]catalog.Product, error) {
	if c.IsEmpty() {
		return nil, ErrCartEmpty
	}

	read := make(map[string]catalog.Product, len(c.Lines))
	for _, ln := range c.Lines {
		p, err := products.Get(ctx, ln.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, fmt.Errorf("%s: %w", p.Name, ErrProductUnavailable)
		}
		if p.StockQuantity < ln.Quantity {
			return nil, &stock.InsufficientStockError{
				ProductID: ln.ProductID,
				Requested: ln.Quantity,
				Available: p.StockQuantity,
			}
		}
		read[p.ID] = p
	}
	return read, nil
}
