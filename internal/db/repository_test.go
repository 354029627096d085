package db

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
)

var createdAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &PostgresDB{Conn: conn}, mock
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "price", "stock_quantity", "created_at"})
}

func literal(s string) string { return regexp.QuoteMeta(s) }

func TestProductRepository_GetForUpdateLocksRow(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectQuery(literal("SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(productRows().AddRow(7, "Lamp", "", "19.99", 4, createdAt))

	p, err := NewProductRepository(database).GetForUpdate(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Lamp", p.Name)
	assert.True(t, decimal.RequireFromString("19.99").Equal(p.Price))
	assert.Equal(t, 4, p.StockQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByIDMissing(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectQuery(literal("FROM products WHERE id = $1")).WithArgs(3).WillReturnRows(productRows())

	p, err := NewProductRepository(database).GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_AdjustStockGuardsNegative(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectQuery(literal("UPDATE products SET stock_quantity = stock_quantity + $1 WHERE id = $2 AND stock_quantity + $1 >= 0")).
		WithArgs(-5, 1).
		WillReturnRows(productRows())

	p, err := NewProductRepository(database).AdjustStock(context.Background(), 1, -5)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListPagedOffsetPastEnd(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectQuery(literal("SELECT COUNT(*) FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(literal("FROM products ORDER BY price DESC, id ASC LIMIT $1 OFFSET $2")).
		WithArgs(20, math.MaxInt).
		WillReturnRows(productRows())

	page := models.PageRequest{Page: 922337203685477580, Size: 20, Sort: []models.SortKey{{Field: "price", Desc: true}}}
	got, total, err := NewProductRepository(database).ListPaged(context.Background(), page)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.EqualValues(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_SearchPlaceholderOrder(t *testing.T) {
	database, mock := newMockDB(t)
	prefix, email := "An_n", "ann@example.com"
	after := createdAt.Add(-time.Hour)
	filter := models.CustomerFilter{NamePrefix: &prefix, Email: &email, CreatedAfter: &after}

	where := " WHERE LOWER(name) LIKE $1 AND email = $2 AND created_at > $3"
	mock.ExpectQuery(literal("SELECT COUNT(*) FROM customers"+where)).
		WithArgs(`an\_n%`, email, after).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(literal("FROM customers"+where+" ORDER BY id ASC LIMIT $4 OFFSET $5")).
		WithArgs(`an\_n%`, email, after, 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone_number", "created_at"}).
			AddRow(4, "An_na", email, "", createdAt))

	got, total, err := NewCustomerRepository(database).Search(context.Background(), filter, models.PageRequest{Page: 2, Size: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].ID)
	assert.EqualValues(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_SearchWithoutFilters(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM customers$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(literal("FROM customers ORDER BY id ASC LIMIT $1 OFFSET $2")).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone_number", "created_at"}))

	got, total, err := NewCustomerRepository(database).Search(context.Background(), models.CustomerFilter{}, models.PageRequest{Size: 20})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_CreateDuplicateEmail(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectQuery(literal("INSERT INTO customers (name, email, phone_number)")).
		WithArgs("Ann", "ann@example.com", "").
		WillReturnError(&pq.Error{Code: codeUniqueViolation, Constraint: "customers_email_key"})

	err := NewCustomerRepository(database).Create(context.Background(), &models.Customer{Name: "Ann", Email: "ann@example.com"})

	var ce *models.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "email already registered", ce.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateInsertsItems(t *testing.T) {
	database, mock := newMockDB(t)
	order := &models.Order{
		CustomerID: 2,
		OrderDate:  createdAt,
		Status:     models.OrderStatusPlaced,
		Items: []models.OrderItem{
			{ProductID: 5, Quantity: 3, PriceAtPurchase: decimal.RequireFromString("2.50")},
		},
	}

	mock.ExpectQuery(literal("INSERT INTO orders (customer_id, order_date, status)")).
		WithArgs(2, createdAt, "PLACED").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(literal("INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)")).
		WithArgs(11, 5, 3, "2.5").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(30))

	require.NoError(t, NewOrderRepository(database).Create(context.Background(), order))
	assert.Equal(t, int64(11), order.ID)
	assert.Equal(t, int64(11), order.Items[0].OrderID)
	assert.Equal(t, int64(30), order.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByIDLoadsItems(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectQuery(literal("SELECT "+orderColumns+" FROM orders WHERE id = $1")).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "order_date", "status"}).
			AddRow(11, 2, createdAt, "SHIPPED"))
	mock.ExpectQuery(literal("FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id")).
		WithArgs("{11}").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price_at_purchase"}).
			AddRow(30, 11, 5, 3, "2.50").
			AddRow(31, 11, 6, 1, "10.00"))

	o, err := NewOrderRepository(database).GetByID(context.Background(), 11)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, models.OrderStatusShipped, o.Status)
	require.Len(t, o.Items, 2)
	assert.Equal(t, int64(6), o.Items[1].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatusMissing(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectExec(literal("UPDATE orders SET status = $1 WHERE id = $2")).
		WithArgs("CANCELLED", 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewOrderRepository(database).UpdateStatus(context.Background(), 99, models.OrderStatusCancelled)

	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Order", nf.Entity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxCommits(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(literal("FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(productRows().AddRow(1, "Desk", "", "120.00", 3, createdAt))
	mock.ExpectCommit()

	err := NewStore(database, nil).WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		p, err := tx.Products().GetForUpdate(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Desk", p.Name)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("insufficient stock")
	err := NewStore(database, nil).WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxCommitConflict(t *testing.T) {
	database, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: codeSerializationFailure, Message: "could not serialize access"})

	err := NewStore(database, nil).WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return nil
	})
	assert.ErrorIs(t, err, models.ErrTxConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
