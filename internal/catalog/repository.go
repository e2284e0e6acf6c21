package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("product not found")

// DB matches the methods shared by *pgxpool.Pool and pgx.Tx that we use.
// This allows us to bind the repository to a transaction and to mock the
// database in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

const productColumns = `id, name, description, sku, category, brand, price, stock_quantity, active, created_at, updated_at`

func (r *Repository) Get(ctx context.Context, productID string) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, productID)
	return scanProduct(row)
}

func (r *Repository) GetBySKU(ctx context.Context, sku string) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku=$1`, sku)
	return scanProduct(row)
}

// ListActive returns all active products, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE active ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

// ListLowStock returns active products whose stock is below the threshold.
func (r *Repository) ListLowStock(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE active AND stock_quantity < $1 ORDER BY stock_quantity ASC`,
		threshold)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r *Repository) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO products (id, name, description, sku, category, brand, price, stock_quantity, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.SKU, p.Category, p.Brand, p.Price, p.StockQuantity, p.Active)
	return row.Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repository) Update(ctx context.Context, p *Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, sku=$4, category=$5, brand=$6, price=$7, active=$8, updated_at=now()
		WHERE id=$1
	`, p.ID, p.Name, p.Description, p.SKU, p.Category, p.Brand, p.Price, p.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.Category, &p.Brand,
		&p.Price, &p.StockQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.Category, &p.Brand,
			&p.Price, &p.StockQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
