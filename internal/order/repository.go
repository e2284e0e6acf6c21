package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopcore/storefront/internal/stock"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PostgresRepository struct {
	pool   DBPool
	ledger *stock.Ledger
}

func NewPostgresRepository(pool DBPool, ledger *stock.Ledger) *PostgresRepository {
	return &PostgresRepository{pool: pool, ledger: ledger}
}

// CreateWithTx inserts the order and its lines inside the caller's
// transaction. A duplicate order number maps to ErrOrderNumberCollision so
// the service can retry with a fresh one.
func (r *PostgresRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, user_id, status, order_date, total_items, total_amount,
			shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_postal_code, shipping_country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, o.ID, o.OrderNumber, o.UserID, o.Status, o.OrderDate, o.TotalItems, o.TotalAmount,
		o.ShippingAddress.Line1, o.ShippingAddress.Line2, o.ShippingAddress.City,
		o.ShippingAddress.State, o.ShippingAddress.PostalCode, o.ShippingAddress.Country)
	if err != nil {
		if isOrderNumberCollision(err) {
			return ErrOrderNumberCollision
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, ln := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, product_sku, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.NewString(), o.ID, ln.ProductID, ln.ProductName, ln.ProductSKU, ln.Quantity, ln.UnitPrice, ln.Subtotal); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

func isOrderNumberCollision(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "order_number")
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const orderColumns = `id, order_number, user_id, status, order_date, total_items, total_amount,
	shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_postal_code, shipping_country,
	COALESCE(tracking_number, ''), shipped_at, delivered_at`

func (r *PostgresRepository) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return getOrder(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID)
}

func (r *PostgresRepository) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return getOrder(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE order_number=$1`, orderNumber)
}

func getOrder(ctx context.Context, q querier, query string, arg any) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := loadLines(ctx, q, o); err != nil {
		return nil, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.OrderDate, &o.TotalItems, &o.TotalAmount,
		&o.ShippingAddress.Line1, &o.ShippingAddress.Line2, &o.ShippingAddress.City,
		&o.ShippingAddress.State, &o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.TrackingNumber, &o.ShippedAt, &o.DeliveredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	return &o, nil
}

func loadLines(ctx context.Context, q querier, o *Order) error {
	rows, err := q.Query(ctx, `
		SELECT product_id, product_name, product_sku, quantity, unit_price, subtotal
		FROM order_items WHERE order_id=$1
	`, o.ID)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ProductID, &ln.ProductName, &ln.ProductSKU, &ln.Quantity, &ln.UnitPrice, &ln.Subtotal); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		o.Lines = append(o.Lines, ln)
	}
	return rows.Err()
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY order_date DESC`, userID)
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE status=$1 ORDER BY order_date DESC`, status)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := loadLines(ctx, r.pool, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// Cancel transitions the order to CANCELLED and releases every line's
// quantity back to the stock ledger, all in one transaction. This is the
// only path that returns stock after reservation.
func (r *PostgresRepository) Cancel(ctx context.Context, orderID string) (*Order, error) {
	return r.transition(ctx, orderID, StatusCancelled, func(ctx context.Context, tx pgx.Tx, o *Order) error {
		if err := r.ledger.WithTx(tx).ReleaseLines(ctx, o.StockLines()); err != nil {
			return fmt.Errorf("release stock: %w", err)
		}
		_, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, o.ID, StatusCancelled)
		return err
	})
}

func (r *PostgresRepository) MarkProcessing(ctx context.Context, orderID string) (*Order, error) {
	return r.transition(ctx, orderID, StatusProcessing, func(ctx context.Context, tx pgx.Tx, o *Order) error {
		_, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, o.ID, StatusProcessing)
		return err
	})
}

func (r *PostgresRepository) MarkShipped(ctx context.Context, orderID, trackingNumber string) (*Order, error) {
	o, err := r.transition(ctx, orderID, StatusShipped, func(ctx context.Context, tx pgx.Tx, o *Order) error {
		now := time.Now().UTC()
		o.TrackingNumber = trackingNumber
		o.ShippedAt = &now
		_, err := tx.Exec(ctx,
			`UPDATE orders SET status=$2, tracking_number=$3, shipped_at=$4, updated_at=now() WHERE id=$1`,
			o.ID, StatusShipped, trackingNumber, now)
		return err
	})
	return o, err
}

func (r *PostgresRepository) MarkDelivered(ctx context.Context, orderID string) (*Order, error) {
	return r.transition(ctx, orderID, StatusDelivered, func(ctx context.Context, tx pgx.Tx, o *Order) error {
		now := time.Now().UTC()
		o.DeliveredAt = &now
		_, err := tx.Exec(ctx,
			`UPDATE orders SET status=$2, delivered_at=$3, updated_at=now() WHERE id=$1`,
			o.ID, StatusDelivered, now)
		return err
	})
}

// transition locks the order row, checks the state machine, applies the
// update, and commits. An illegal transition rolls back with no mutation.
func (r *PostgresRepository) transition(ctx context.Context, orderID string, to Status, apply func(context.Context, pgx.Tx, *Order) error) (*Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, err
	}
	if err := loadLines(ctx, tx, o); err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, to, ErrInvalidOrderState)
	}

	if err := apply(ctx, tx, o); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	o.Status = to
	return o, nil
}
