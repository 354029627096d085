package db

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/cache"
	"github.com/prudhivi99/order-management/internal/models"
)

// mapCache stores JSON like the Redis cache does.
type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}}
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return errors.New("connection refused")
	}
	b, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// countingRepo is an in-memory product repository that counts reads.
type countingRepo struct {
	products map[int64]models.Product
	gets     int
	lists    int
}

func (r *countingRepo) Create(ctx context.Context, p *models.Product) error {
	p.ID = int64(len(r.products) + 1)
	r.products[p.ID] = *p
	return nil
}

func (r *countingRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	r.gets++
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *countingRepo) List(ctx context.Context) ([]models.Product, error) {
	r.lists++
	out := []models.Product{}
	for i := int64(1); i <= int64(len(r.products)); i++ {
		out = append(out, r.products[i])
	}
	return out, nil
}

func (r *countingRepo) ListPaged(ctx context.Context, page models.PageRequest) ([]models.Product, int64, error) {
	return nil, 0, nil
}

func (r *countingRepo) SetStock(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	p.StockQuantity = quantity
	r.products[id] = p
	return &p, nil
}

func newCachedFixture() (*CachedProductRepository, *countingRepo, *mapCache) {
	repo := &countingRepo{products: map[int64]models.Product{
		1: {ID: 1, Name: "Lamp", Price: decimal.RequireFromString("19.99"), StockQuantity: 4},
	}}
	c := newMapCache()
	return NewCachedProductRepository(repo, c, zap.NewNop()), repo, c
}

func TestCachedGetByID_HitAfterMiss(t *testing.T) {
	cached, repo, c := newCachedFixture()
	ctx := context.Background()

	p, err := cached.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, c.has("product:1"))

	p, err = cached.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", p.Name)
	assert.True(t, decimal.RequireFromString("19.99").Equal(p.Price))
	assert.Equal(t, 1, repo.gets)
}

func TestCachedGetByID_MissingIsNotCached(t *testing.T) {
	cached, _, c := newCachedFixture()

	p, err := cached.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.False(t, c.has("product:42"))
}

func TestCachedSetStock_Invalidates(t *testing.T) {
	cached, repo, c := newCachedFixture()
	ctx := context.Background()

	_, err := cached.GetByID(ctx, 1)
	require.NoError(t, err)
	_, err = cached.List(ctx)
	require.NoError(t, err)

	p, err := cached.SetStock(ctx, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, p.StockQuantity)
	assert.False(t, c.has("product:1"))
	assert.False(t, c.has("products:all"))

	p, err = cached.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, p.StockQuantity)
	assert.Equal(t, 2, repo.gets)
}

func TestCachedCreate_InvalidatesList(t *testing.T) {
	cached, repo, c := newCachedFixture()
	ctx := context.Background()

	_, err := cached.List(ctx)
	require.NoError(t, err)
	require.True(t, c.has("products:all"))

	require.NoError(t, cached.Create(ctx, &models.Product{Name: "Desk"}))
	assert.False(t, c.has("products:all"))

	all, err := cached.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, repo.lists)
}

func TestCachedGetByID_CacheDownFallsBack(t *testing.T) {
	cached, repo, c := newCachedFixture()
	c.failGet = true

	p, err := cached.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", p.Name)
	assert.Equal(t, 1, repo.gets)
}

func TestEvict(t *testing.T) {
	cached, _, c := newCachedFixture()
	ctx := context.Background()

	_, err := cached.GetByID(ctx, 1)
	require.NoError(t, err)
	cached.Evict(ctx, 1)
	assert.False(t, c.has("product:1"))
}
