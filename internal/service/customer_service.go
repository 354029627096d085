package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
	"github.com/prudhivi99/order-management/internal/validation"
)

// CustomerService is the customer directory.
type CustomerService struct {
	customers store.CustomerRepository
	validate  *validation.Validator
	paging    Paging
	logger    *zap.Logger
}

func NewCustomerService(customers store.CustomerRepository, v *validation.Validator, paging Paging, logger *zap.Logger) *CustomerService {
	return &CustomerService{customers: customers, validate: v, paging: paging, logger: logger}
}

// Register creates a customer. Emails are unique; a second registration
// with the same address fails with a ConflictError.
func (s *CustomerService) Register(ctx context.Context, req models.RegisterCustomerRequest) (*models.Customer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	c := &models.Customer{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("customer registered", zap.Int64("customer_id", c.ID))
	return c, nil
}

func (s *CustomerService) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &models.NotFoundError{Entity: "Customer", ID: id}
	}
	return c, nil
}

func (s *CustomerService) List(ctx context.Context) ([]models.Customer, error) {
	return s.customers.List(ctx)
}

// Search pages through customers matching every non-nil filter field.
func (s *CustomerService) Search(ctx context.Context, filter models.CustomerFilter, req models.PageRequest) (*models.Page[models.Customer], error) {
	req, err := s.paging.normalize(req, store.CustomerSortColumns)
	if err != nil {
		return nil, err
	}
	items, total, err := s.customers.Search(ctx, filter, req)
	if err != nil {
		return nil, err
	}
	page := models.NewPage(items, req, total)
	return &page, nil
}
