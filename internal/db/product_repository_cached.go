package db

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/cache"
	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
)

// Cache is the subset of cache.RedisCache the repository needs.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedProductRepository serves product reads cache-aside and invalidates
// on every write. Cache failures degrade to the underlying repository.
type CachedProductRepository struct {
	repo   store.ProductRepository
	cache  Cache
	logger *zap.Logger
}

func NewCachedProductRepository(repo store.ProductRepository, c Cache, logger *zap.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// Cache key helpers
func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func allProductsKey() string {
	return "products:all"
}

// List returns all products (with caching)
func (r *CachedProductRepository) List(ctx context.Context) ([]models.Product, error) {
	cacheKey := allProductsKey()

	var products []models.Product
	err := r.cache.Get(ctx, cacheKey, &products)
	if err == nil {
		r.logger.Debug("cache hit", zap.String("key", cacheKey))
		return products, nil
	}
	r.logMiss(cacheKey, err)

	products, err = r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, products); err != nil {
		r.logger.Warn("failed to cache products", zap.Error(err))
	}
	return products, nil
}

// GetByID returns a single product (with caching)
func (r *CachedProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	cacheKey := productKey(id)

	var product models.Product
	err := r.cache.Get(ctx, cacheKey, &product)
	if err == nil {
		r.logger.Debug("cache hit", zap.String("key", cacheKey))
		return &product, nil
	}
	r.logMiss(cacheKey, err)

	p, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	if err := r.cache.Set(ctx, cacheKey, p); err != nil {
		r.logger.Warn("failed to cache product", zap.Int64("product_id", id), zap.Error(err))
	}
	return p, nil
}

// ListPaged is not cached; page shapes vary too much to invalidate cheaply.
func (r *CachedProductRepository) ListPaged(ctx context.Context, page models.PageRequest) ([]models.Product, int64, error) {
	return r.repo.ListPaged(ctx, page)
}

// Create inserts a new product and invalidates the list cache
func (r *CachedProductRepository) Create(ctx context.Context, p *models.Product) error {
	if err := r.repo.Create(ctx, p); err != nil {
		return err
	}
	r.delete(ctx, allProductsKey())
	return nil
}

// SetStock updates stock and invalidates the product and list caches
func (r *CachedProductRepository) SetStock(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	p, err := r.repo.SetStock(ctx, id, quantity)
	if err != nil {
		return nil, err
	}
	r.Evict(ctx, id)
	return p, nil
}

// Evict drops cached entries for products whose stock changed elsewhere,
// e.g. in an order transaction.
func (r *CachedProductRepository) Evict(ctx context.Context, ids ...int64) {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	keys = append(keys, allProductsKey())
	r.delete(ctx, keys...)
}

func (r *CachedProductRepository) delete(ctx context.Context, keys ...string) {
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.logger.Warn("failed to invalidate cache", zap.Strings("keys", keys), zap.Error(err))
		return
	}
	r.logger.Debug("cache invalidated", zap.Strings("keys", keys))
}

func (r *CachedProductRepository) logMiss(key string, err error) {
	if errors.Is(err, cache.ErrMiss) {
		r.logger.Debug("cache miss", zap.String("key", key))
		return
	}
	r.logger.Warn("cache error", zap.String("key", key), zap.Error(err))
}
