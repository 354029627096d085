// Package store declares the persistence contracts used by the services.
// Implementations live in internal/db (PostgreSQL) and internal/store/memstore.
package store

import (
	"context"

	"github.com/prudhivi99/order-management/internal/models"
)

// Lookups return (nil, nil) when no row matches.

type CustomerRepository interface {
	Create(ctx context.Context, c *models.Customer) error
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	List(ctx context.Context) ([]models.Customer, error)
	Search(ctx context.Context, filter models.CustomerFilter, page models.PageRequest) ([]models.Customer, int64, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	ListPaged(ctx context.Context, page models.PageRequest) ([]models.Product, int64, error)
	// SetStock replaces the stock quantity and returns the updated row.
	SetStock(ctx context.Context, id int64, quantity int) (*models.Product, error)
}

// LockingProductRepository is the transactional view of products.
type LockingProductRepository interface {
	ProductRepository
	// GetForUpdate reads a product and holds a write lock on it until the
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Product, error)
	// AdjustStock adds delta to the stock quantity. It returns (nil, nil)
	// when the product is missing or the result would be negative.
	AdjustStock(ctx context.Context, id int64, delta int) (*models.Product, error)
}

type OrderRepository interface {
	// Create inserts the order and its items, filling in generated ids.
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]models.Order, error)
	ListPaged(ctx context.Context, page models.PageRequest) ([]models.Order, int64, error)
}

type LockingOrderRepository interface {
	OrderRepository
	GetForUpdate(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error
}

// Tx exposes repositories bound to one transaction.
type Tx interface {
	Customers() CustomerRepository
	Products() LockingProductRepository
	Orders() LockingOrderRepository
}

// TxRunner runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Store bundles non-transactional repositories with a TxRunner.
type Store interface {
	TxRunner
	Customers() CustomerRepository
	Products() ProductRepository
	Orders() OrderRepository
	Close() error
}
