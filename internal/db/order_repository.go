package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
)

const orderColumns = "id, customer_id, order_date, status"

type OrderRepository struct {
	db querier
}

func NewOrderRepository(database *PostgresDB) *OrderRepository {
	return &OrderRepository{db: database.Conn}
}

// Create inserts a new order with items. Callers run it inside a transaction.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	orderQuery := `
		INSERT INTO orders (customer_id, order_date, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, orderQuery, order.CustomerID, order.OrderDate, order.Status).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", mapError(err))
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		err = r.db.QueryRowContext(ctx, itemQuery,
			order.ID,
			order.Items[i].ProductID,
			order.Items[i].Quantity,
			order.Items[i].PriceAtPurchase,
		).Scan(&order.Items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", mapError(err))
		}
	}

	return nil
}

// GetByID returns a single order with items
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	return r.get(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

// GetForUpdate returns a single order with items and row-locks the order
func (r *OrderRepository) GetForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return r.get(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
}

func (r *OrderRepository) get(ctx context.Context, query string, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&order.ID, &order.CustomerID, &order.OrderDate, &order.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", mapError(err))
	}

	orders := []models.Order{order}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByCustomer returns the customer's orders, oldest first
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE customer_id = $1 ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", mapError(err))
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListPaged returns one page of orders with items and the total order count
func (r *OrderRepository) ListPaged(ctx context.Context, page models.PageRequest) ([]models.Order, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", mapError(err))
	}

	query := "SELECT " + orderColumns + " FROM orders " +
		store.OrderSortColumns.OrderBy(page.Sort) + " LIMIT $1 OFFSET $2"
	rows, err := r.db.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", mapError(err))
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus updates order status
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	result, err := r.db.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", mapError(err))
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return &models.NotFoundError{Entity: "Order", ID: id}
	}
	return nil
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &o.Status); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", mapError(err))
	}
	return orders, nil
}

// loadItems fetches the items of all given orders with one query.
func (r *OrderRepository) loadItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, price_at_purchase
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id
	`
	rows, err := r.db.QueryContext(ctx, itemsQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", mapError(err))
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate order items: %w", mapError(err))
	}
	return nil
}
