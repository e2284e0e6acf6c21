package checkout

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shopcore/storefront/internal/cart"
	"github.com/shopcore/storefront/internal/catalog"
	"github.com/shopcore/storefront/internal/order"
	"github.com/shopcore/storefront/internal/stock"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Repository performs the cart-to-order conversion as one transaction:
// re-validate the cart, reserve every line through the stock ledger, insert
// the order, clear the cart. Any failure rolls the whole thing back, so a
// partial reservation is never observable outside the transaction.
type Repository struct {
	pool     DBPool
	carts    *cart.PostgresRepository
	products *catalog.Repository
	ledger   *stock.Ledger
	orders   *order.PostgresRepository
}

func NewRepository(pool DBPool, carts *cart.PostgresRepository, products *catalog.Repository, ledger *stock.Ledger, orders *order.PostgresRepository) *Repository {
	return &Repository{pool: pool, carts: carts, products: products, ledger: ledger, orders: orders}
}

func (r *Repository) PlaceOrder(ctx context.Context, userID string, addr order.ShippingAddress) (*order.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialize against concurrent cart mutations and checkouts by the
	// same user.
	if err := cart.LockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	c, err := r.carts.GetByUserWithTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	validator := NewValidator(r.products.WithTx(tx))
	products, err := validator.Validate(ctx, c)
	if err != nil {
		return nil, err
	}

	lines := make([]stock.Line, 0, len(c.Lines))
	for _, ln := range c.Lines {
		lines = append(lines, stock.Line{ProductID: ln.ProductID, Quantity: ln.Quantity})
	}
	if err := r.ledger.WithTx(tx).ReserveLines(ctx, lines); err != nil {
		return nil, err
	}

	o := order.NewFromCart(c, products, addr)
	if err := r.orders.CreateWithTx(ctx, tx, o); err != nil {
		return nil, err
	}

	if err := r.carts.ClearWithTx(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return o, nil
}
