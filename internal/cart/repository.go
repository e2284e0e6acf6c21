package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repository interface {
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	// FindLine resolves a cart line by id, returning the line and the id of
	// the user whose cart owns it. Callers enforce the tenant boundary.
	FindLine(ctx context.Context, lineID string) (Line, string, error)
	Save(ctx context.Context, c *Cart) error
}

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (*Cart, error) {
	return getByUser(ctx, r.pool, userID)
}

// GetByUserWithTx loads the cart inside the caller's transaction. Checkout
// uses this so validation and reservation see the same snapshot.
func (r *PostgresRepository) GetByUserWithTx(ctx context.Context, tx pgx.Tx, userID string) (*Cart, error) {
	return getByUser(ctx, tx, userID)
}

func getByUser(ctx context.Context, q querier, userID string) (*Cart, error) {
	var c Cart
	err := q.QueryRow(ctx,
		`SELECT id, user_id, total_items, total_amount, updated_at FROM carts WHERE user_id=$1`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.TotalItems, &c.TotalAmount, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT id, product_id, quantity, unit_price, subtotal FROM cart_items WHERE cart_id=$1 ORDER BY created_at`,
		c.ID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	c.Lines = []Line{}
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ID, &ln.ProductID, &ln.Quantity, &ln.UnitPrice, &ln.Subtotal); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		c.Lines = append(c.Lines, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cart items rows: %w", err)
	}

	return &c, nil
}

func (r *PostgresRepository) FindLine(ctx context.Context, lineID string) (Line, string, error) {
	var ln Line
	var ownerID string
	err := r.pool.QueryRow(ctx, `
		SELECT ci.id, ci.product_id, ci.quantity, ci.unit_price, ci.subtotal, c.user_id
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id=$1
	`, lineID).Scan(&ln.ID, &ln.ProductID, &ln.Quantity, &ln.UnitPrice, &ln.Subtotal, &ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, "", ErrItemNotFound
		}
		return Line{}, "", fmt.Errorf("select cart item: %w", err)
	}
	return ln, ownerID, nil
}

// Save writes the whole aggregate: upsert the cart row, then replace its
// lines. The per-user advisory lock serializes concurrent mutations of the
// same cart, including a mutation racing a checkout.
func (r *PostgresRepository) Save(ctx context.Context, c *Cart) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := LockUser(ctx, tx, c.UserID); err != nil {
		return err
	}

	if err := saveWithTx(ctx, tx, c); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func saveWithTx(ctx context.Context, tx pgx.Tx, c *Cart) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, total_items, total_amount, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET total_items = EXCLUDED.total_items, total_amount = EXCLUDED.total_amount, updated_at = now()
		RETURNING id, updated_at
	`, c.ID, c.UserID, c.TotalItems, c.TotalAmount).Scan(&c.ID, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, c.ID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}

	for _, ln := range c.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO cart_items (id, cart_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ln.ID, c.ID, ln.ProductID, ln.Quantity, ln.UnitPrice, ln.Subtotal); err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}

	return nil
}

// ClearWithTx empties the cart inside the caller's transaction. The cart row
// survives with zeroed totals; an empty cart is a valid entity.
func (r *PostgresRepository) ClearWithTx(ctx context.Context, tx pgx.Tx, c *Cart) error {
	c.Clear()
	return saveWithTx(ctx, tx, c)
}

// LockUser takes the per-user advisory lock for the duration of the
// transaction. Everything that mutates one user's cart goes through it.
func LockUser(ctx context.Context, tx pgx.Tx, userID string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("lock user %s: %w", userID, err)
	}
	return nil
}
