package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
	"github.com/prudhivi99/order-management/internal/validation"
)

// ProductService is the product catalog.
type ProductService struct {
	products store.ProductRepository
	validate *validation.Validator
	paging   Paging
	logger   *zap.Logger
}

func NewProductService(products store.ProductRepository, v *validation.Validator, paging Paging, logger *zap.Logger) *ProductService {
	return &ProductService{products: products, validate: v, paging: paging, logger: logger}
}

func (s *ProductService) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		StockQuantity: *req.StockQuantity,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.Int64("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &models.NotFoundError{Entity: "Product", ID: id}
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.products.List(ctx)
}

func (s *ProductService) ListPaged(ctx context.Context, req models.PageRequest) (*models.Page[models.Product], error) {
	req, err := s.paging.normalize(req, store.ProductSortColumns)
	if err != nil {
		return nil, err
	}
	items, total, err := s.products.ListPaged(ctx, req)
	if err != nil {
		return nil, err
	}
	page := models.NewPage(items, req, total)
	return &page, nil
}

// UpdateStock replaces the stock quantity of a product.
func (s *ProductService) UpdateStock(ctx context.Context, id int64, req models.StockUpdateRequest) (*models.Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	p, err := s.products.SetStock(ctx, id, *req.StockQuantity)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &models.NotFoundError{Entity: "Product", ID: id}
	}

	s.logger.Info("stock updated", zap.Int64("product_id", id), zap.Int("stock_quantity", p.StockQuantity))
	return p, nil
}
