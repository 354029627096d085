package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
)

const customerColumns = "id, name, email, phone_number, created_at"

type CustomerRepository struct {
	db querier
}

func NewCustomerRepository(database *PostgresDB) *CustomerRepository {
	return &CustomerRepository{db: database.Conn}
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PhoneNumber, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new customer. A duplicate email yields *models.ConflictError.
func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (name, email, phone_number)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, c.Name, c.Email, c.PhoneNumber).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", mapError(err))
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	query := "SELECT " + customerColumns + " FROM customers WHERE id = $1"
	c, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get customer: %w", mapError(err))
	}
	return c, nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]models.Customer, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", mapError(err))
	}
	defer rows.Close()
	return scanCustomers(rows)
}

// Search applies the non-nil filters with AND and returns one page plus the
// number of matching customers.
func (r *CustomerRepository) Search(ctx context.Context, filter models.CustomerFilter, page models.PageRequest) ([]models.Customer, int64, error) {
	var (
		conds []string
		args  []any
	)
	if filter.NamePrefix != nil {
		args = append(args, strings.ToLower(escapeLike(*filter.NamePrefix))+"%")
		conds = append(conds, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	if filter.Email != nil {
		args = append(args, *filter.Email)
		conds = append(conds, fmt.Sprintf("email = $%d", len(args)))
	}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		conds = append(conds, fmt.Sprintf("created_at > $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", mapError(err))
	}

	query := fmt.Sprintf("SELECT %s FROM customers%s %s LIMIT $%d OFFSET $%d",
		customerColumns, where, store.CustomerSortColumns.OrderBy(page.Sort), len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search customers: %w", mapError(err))
	}
	defer rows.Close()

	customers, err := scanCustomers(rows)
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func scanCustomers(rows *sql.Rows) ([]models.Customer, error) {
	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", mapError(err))
	}
	return customers, nil
}
