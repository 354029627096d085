package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store/memstore"
	"github.com/prudhivi99/order-management/internal/validation"
)

type fixture struct {
	store     *memstore.Store
	products  *ProductService
	customers *CustomerService
	orders    *OrderService
	cache     *evictRecorder
	events    *eventRecorder
}

type evictRecorder struct {
	mu      sync.Mutex
	evicted []int64
}

func (r *evictRecorder) Evict(ctx context.Context, ids ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted = append(r.evicted, ids...)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) record(kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
	return nil
}

func (r *eventRecorder) PublishOrderPlaced(ctx context.Context, o *models.Order) error {
	return r.record(models.EventOrderPlaced)
}

func (r *eventRecorder) PublishOrderCancelled(ctx context.Context, o *models.Order) error {
	return r.record(models.EventOrderCancelled)
}

func (r *eventRecorder) PublishStatusChanged(ctx context.Context, o *models.Order) error {
	return r.record(models.EventOrderStatusChanged)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	v := validation.New()
	paging := Paging{DefaultSize: 20, MaxSize: 100}
	logger := zap.NewNop()
	f := &fixture{
		store:  st,
		cache:  &evictRecorder{},
		events: &eventRecorder{},
	}
	f.products = NewProductService(st.Products(), v, paging, logger)
	f.customers = NewCustomerService(st.Customers(), v, paging, logger)
	f.orders = NewOrderService(st, v, paging, f.cache, f.events, logger, noop.NewTracerProvider().Tracer("test"))
	return f
}

func (f *fixture) product(t *testing.T, name string, price string, stock int) *models.Product {
	t.Helper()
	pr := decimal.RequireFromString(price)
	p, err := f.products.Create(context.Background(), models.CreateProductRequest{
		Name:          name,
		Price:         &pr,
		StockQuantity: &stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) customer(t *testing.T, email string) *models.Customer {
	t.Helper()
	c, err := f.customers.Register(context.Background(), models.RegisterCustomerRequest{
		Name:  "Test Customer",
		Email: email,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func intPtr(n int) *int { return &n }
