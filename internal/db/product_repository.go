package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
)

const productColumns = "id, name, description, price, stock_quantity, created_at"

type ProductRepository struct {
	db querier
}

func NewProductRepository(database *PostgresDB) *ProductRepository {
	return &ProductRepository{db: database.Conn}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new product and fills in its id and created_at
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock_quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Description, p.Price, p.StockQuantity).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", mapError(err))
	}
	return nil
}

// GetByID returns a single product
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	return r.get(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
}

// GetForUpdate returns a single product and row-locks it for the rest of the transaction
func (r *ProductRepository) GetForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return r.get(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id)
}

func (r *ProductRepository) get(ctx context.Context, query string, id int64) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get product: %w", mapError(err))
	}
	return p, nil
}

// List returns all products
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", mapError(err))
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListPaged returns one page of products and the total product count
func (r *ProductRepository) ListPaged(ctx context.Context, page models.PageRequest) ([]models.Product, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", mapError(err))
	}

	query := "SELECT " + productColumns + " FROM products " +
		store.ProductSortColumns.OrderBy(page.Sort) + " LIMIT $1 OFFSET $2"
	rows, err := r.db.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", mapError(err))
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", mapError(err))
	}
	return products, nil
}

// SetStock replaces the stock quantity of a product
func (r *ProductRepository) SetStock(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	query := "UPDATE products SET stock_quantity = $1 WHERE id = $2 RETURNING " + productColumns
	return r.update(ctx, query, quantity, id)
}

// AdjustStock adds delta to the stock quantity unless the result would go negative
func (r *ProductRepository) AdjustStock(ctx context.Context, id int64, delta int) (*models.Product, error) {
	query := `
		UPDATE products SET stock_quantity = stock_quantity + $1
		WHERE id = $2 AND stock_quantity + $1 >= 0
		RETURNING ` + productColumns
	return r.update(ctx, query, delta, id)
}

func (r *ProductRepository) update(ctx context.Context, query string, args ...any) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update product stock: %w", mapError(err))
	}
	return p, nil
}
