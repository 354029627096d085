package db

import (
	"context"
	"fmt"

	"github.com/prudhivi99/order-management/internal/store"
)

// Store is the PostgreSQL implementation of store.Store.
type Store struct {
	db        *PostgresDB
	customers *CustomerRepository
	products  store.ProductRepository
	orders    *OrderRepository
}

// NewStore wraps database. products overrides the non-transactional product
// repository (for example with a cached one); nil uses the plain repository.
func NewStore(database *PostgresDB, products store.ProductRepository) *Store {
	if products == nil {
		products = NewProductRepository(database)
	}
	return &Store{
		db:        database,
		customers: NewCustomerRepository(database),
		products:  products,
		orders:    NewOrderRepository(database),
	}
}

func (s *Store) Customers() store.CustomerRepository { return s.customers }
func (s *Store) Products() store.ProductRepository   { return s.products }
func (s *Store) Orders() store.OrderRepository       { return s.orders }
func (s *Store) Close() error                        { return s.db.Close() }

// WithinTx runs fn in a READ COMMITTED transaction. Stock consistency relies
// on the row locks taken by GetForUpdate.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	// Start transaction
	sqlTx, err := s.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer sqlTx.Rollback()

	if err := fn(ctx, &txRepos{q: sqlTx}); err != nil {
		return err
	}

	// Commit transaction
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

type txRepos struct {
	q querier
}

func (t *txRepos) Customers() store.CustomerRepository       { return &CustomerRepository{db: t.q} }
func (t *txRepos) Products() store.LockingProductRepository { return &ProductRepository{db: t.q} }
func (t *txRepos) Orders() store.LockingOrderRepository     { return &OrderRepository{db: t.q} }
