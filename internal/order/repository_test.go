package order

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/shopcore/storefront/internal/stock"
)

func orderRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "order_number", "user_id", "status", "order_date", "total_items", "total_amount",
		"shipping_line1", "shipping_line2", "shipping_city", "shipping_state", "shipping_postal_code", "shipping_country",
		"tracking_number", "shipped_at", "delivered_at",
	})
}

func addOrderRow(rows *pgxmock.Rows, id string, status Status) *pgxmock.Rows {
	return rows.AddRow(
		id, "ORD-AAAA1111", "user-1", status, time.Now(), 2, 20.0,
		"1 Main St", "", "Springfield", "IL", "62701", "US",
		"", nil, nil,
	)
}

func lineRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"product_id", "product_name", "product_sku", "quantity", "unit_price", "subtotal"})
}

func TestRepositoryCreateWithTx_Collision(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"})

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	repo := NewPostgresRepository(mock, stock.NewLedger(mock))
	o := &Order{ID: "order-1", OrderNumber: "ORD-AAAA1111", UserID: "user-1", Status: StatusPending, OrderDate: time.Now()}
	require.ErrorIs(t, repo.CreateWithTx(ctx, tx, o), ErrOrderNumberCollision)
}

func TestRepositoryCreateWithTx_OtherUniqueViolationIsNotACollision(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"})

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	repo := NewPostgresRepository(mock, stock.NewLedger(mock))
	o := &Order{ID: "order-1", OrderNumber: "ORD-AAAA1111", Status: StatusPending, OrderDate: time.Now()}
	err = repo.CreateWithTx(ctx, tx, o)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrOrderNumberCollision)
}

func TestRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM orders WHERE id=").
		WithArgs("order-1").
		WillReturnRows(addOrderRow(orderRows(), "order-1", StatusPending))
	mock.ExpectQuery("FROM order_items WHERE order_id=").
		WithArgs("order-1").
		WillReturnRows(lineRows().AddRow("p1", "Widget", "W-1", 2, 10.0, 20.0))

	repo := NewPostgresRepository(mock, stock.NewLedger(mock))
	o, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, StatusPending, o.Status)
	require.Len(t, o.Lines, 1)
	require.Equal(t, "Widget", o.Lines[0].ProductName)
}

func TestRepositoryGetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM orders WHERE id=").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock, stock.NewLedger(mock))
	_, err = repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryCancel_ReleasesStock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id=.+FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(addOrderRow(orderRows(), "order-1", StatusPending))
	mock.ExpectQuery("FROM order_items WHERE order_id=").
		WithArgs("order-1").
		WillReturnRows(lineRows().
			AddRow("p1", "Widget", "W-1", 2, 10.0, 20.0).
			AddRow("p2", "Gadget", "G-1", 1, 5.5, 5.5))
	mock.ExpectExec("UPDATE products").
		WithArgs("p1", 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE products").
		WithArgs("p2", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE orders SET status=").
		WithArgs("order-1", StatusCancelled).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock, stock.NewLedger(mock))
	o, err := repo.Cancel(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, o.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCancel_ShippedOrderIsRejected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id=.+FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(addOrderRow(orderRows(), "order-1", StatusShipped))
	mock.ExpectQuery("FROM order_items WHERE order_id=").
		WithArgs("order-1").
		WillReturnRows(lineRows())
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock, stock.NewLedger(mock))
	_, err = repo.Cancel(context.Background(), "order-1")
	require.ErrorIs(t, err, ErrInvalidOrderState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarkShipped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id=.+FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(addOrderRow(orderRows(), "order-1", StatusProcessing))
	mock.ExpectQuery("FROM order_items WHERE order_id=").
		WithArgs("order-1").
		WillReturnRows(lineRows())
	mock.ExpectExec("UPDATE orders SET status=.+tracking_number=").
		WithArgs("order-1", StatusShipped, "TRK-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock, stock.NewLedger(mock))
	o, err := repo.MarkShipped(context.Background(), "order-1", "TRK-1")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, o.Status)
	require.Equal(t, "TRK-1", o.TrackingNumber)
	require.NotNil(t, o.ShippedAt)
}

func TestRepositoryMarkDelivered_RequiresShipped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id=.+FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(addOrderRow(orderRows(), "order-1", StatusPending))
	mock.ExpectQuery("FROM order_items WHERE order_id=").
		WithArgs("order-1").
		WillReturnRows(lineRows())
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock, stock.NewLedger(mock))
	_, err = repo.MarkDelivered(context.Background(), "order-1")
	require.ErrorIs(t, err, ErrInvalidOrderState)
}
