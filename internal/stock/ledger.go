package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrProductNotFound = errors.New("product not found")

// InsufficientStockError reports how far a reservation fell short.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// DB matches the methods shared by *pgxpool.Pool and pgx.Tx that we use.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Ledger owns every mutation of a product's stock counter. Reserve and
// Release are the only paths that touch the counter; both are single
// conditional statements, so a reserve can never drive stock negative
// regardless of how many callers race on the same product.
type Ledger struct {
	db DB
}

func NewLedger(db DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a copy of the ledger bound to the given transaction.
// ReserveLines is only all-or-nothing when run through a transaction the
// caller rolls back on failure.
func (l *Ledger) WithTx(tx pgx.Tx) *Ledger {
	return &Ledger{db: tx}
}

func (l *Ledger) Available(ctx context.Context, productID string) (int, error) {
	var available int
	err := l.db.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id=$1`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, err
	}
	return available, nil
}

// Reserve decrements the product's stock by qty only if enough is available.
// The check-then-decrement is one conditional UPDATE, never a read followed
// by a write.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}

	tag, err := l.db.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at=now()
		WHERE id=$1 AND stock_quantity >= $2
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing matched: either the product is gone or stock is short.
	// Re-read for diagnostics only; the conditional update above already
	// decided the outcome.
	available, err := l.Available(ctx, productID)
	if err != nil {
		return err
	}
	return &InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
}

// ReserveLines reserves every line or reports the first shortfall. Run it
// inside a transaction and roll back on error to keep the reservation
// all-or-nothing.
func (l *Ledger) ReserveLines(ctx context.Context, lines []Line) error {
	for _, ln := range lines {
		if err := l.Reserve(ctx, ln.ProductID, ln.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Release returns qty units to the product's stock unconditionally.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", qty)
	}

	tag, err := l.db.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at=now()
		WHERE id=$1
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (l *Ledger) ReleaseLines(ctx context.Context, lines []Line) error {
	for _, ln := range lines {
		if err := l.Release(ctx, ln.ProductID, ln.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// SetAvailable overwrites a product's stock counter. Admin-only restock path.
func (l *Ledger) SetAvailable(ctx context.Context, productID string, available int) error {
	if available < 0 {
		return fmt.Errorf("stock quantity cannot be negative, got %d", available)
	}

	tag, err := l.db.Exec(ctx, `
		UPDATE products
		SET stock_quantity = $2, updated_at=now()
		WHERE id=$1
	`, productID, available)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
