// Package memstore is an in-process implementation of store.Store. A single
// mutex serializes all access; transactions work on a copy of the data that
// replaces the original only on commit.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
)

type data struct {
	customers map[int64]models.Customer
	products  map[int64]models.Product
	orders    map[int64]models.Order
	nextID    map[string]int64
}

func newData() *data {
	return &data{
		customers: map[int64]models.Customer{},
		products:  map[int64]models.Product{},
		orders:    map[int64]models.Order{},
		nextID:    map[string]int64{},
	}
}

func (d *data) clone() *data {
	c := &data{
		customers: make(map[int64]models.Customer, len(d.customers)),
		products:  make(map[int64]models.Product, len(d.products)),
		orders:    make(map[int64]models.Order, len(d.orders)),
		nextID:    make(map[string]int64, len(d.nextID)),
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.orders {
		v.Items = slices.Clone(v.Items)
		c.orders[k] = v
	}
	for k, v := range d.nextID {
		c.nextID[k] = v
	}
	return c
}

func (d *data) id(kind string) int64 {
	d.nextID[kind]++
	return d.nextID[kind]
}

type Store struct {
	mu  sync.Mutex
	d   *data
	now func() time.Time
}

func New() *Store {
	return &Store{d: newData(), now: time.Now}
}

// access binds repositories either to the live data (locking per call) or to
// a transaction's working copy (already locked).
type access struct {
	s      *Store
	txCopy *data
}

func (a access) with(fn func(d *data)) {
	if a.txCopy != nil {
		fn(a.txCopy)
		return
	}
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	fn(a.s.d)
}

func (s *Store) Customers() store.CustomerRepository { return customerRepo{access{s: s}} }
func (s *Store) Products() store.ProductRepository   { return productRepo{access{s: s}} }
func (s *Store) Orders() store.OrderRepository       { return orderRepo{access{s: s}} }
func (s *Store) Close() error                        { return nil }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.d.clone()
	if err := fn(ctx, txRepos{access{s: s, txCopy: working}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.d = working
	return nil
}

type txRepos struct {
	a access
}

func (t txRepos) Customers() store.CustomerRepository       { return customerRepo{t.a} }
func (t txRepos) Products() store.LockingProductRepository { return productRepo{t.a} }
func (t txRepos) Orders() store.LockingOrderRepository     { return orderRepo{t.a} }

// paginate sorts items with less and cuts out the requested page.
func paginate[T any](items []T, page models.PageRequest, less func(a, b T) int) ([]T, int64) {
	slices.SortStableFunc(items, less)
	total := int64(len(items))
	start := page.Offset()
	if start >= len(items) {
		return []T{}, total
	}
	end := min(start+page.Size, len(items))
	return items[start:end], total
}

// comparator builds a multi-key comparison from sort keys, ending with id.
func comparator[T any](keys []models.SortKey, field func(item T, name string) any, id func(T) int64) func(a, b T) int {
	return func(a, b T) int {
		for _, k := range keys {
			c := compareAny(field(a, k.Field), field(b, k.Field))
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(id(a), id(b))
	}
}

func compareAny(a, b any) int {
	switch av := a.(type) {
	case int64:
		return cmp.Compare(av, b.(int64))
	case int:
		return cmp.Compare(av, b.(int))
	case string:
		return strings.Compare(av, b.(string))
	case time.Time:
		return av.Compare(b.(time.Time))
	case decimal.Decimal:
		return av.Cmp(b.(decimal.Decimal))
	}
	return 0
}
