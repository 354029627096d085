package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/prudhivi99/order-management/internal/models"
)

type customerRepo struct{ a access }

func (r customerRepo) Create(ctx context.Context, c *models.Customer) error {
	var err error
	r.a.with(func(d *data) {
		for _, existing := range d.customers {
			if existing.Email == c.Email {
				err = &models.ConflictError{Message: "email already registered"}
				return
			}
		}
		c.ID = d.id("customer")
		c.CreatedAt = r.a.s.now()
		d.customers[c.ID] = *c
	})
	return err
}

func (r customerRepo) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	var out *models.Customer
	r.a.with(func(d *data) {
		if c, ok := d.customers[id]; ok {
			out = &c
		}
	})
	return out, nil
}

func (r customerRepo) List(ctx context.Context) ([]models.Customer, error) {
	var out []models.Customer
	r.a.with(func(d *data) {
		out = sortedValues(d.customers)
	})
	return out, nil
}

func (r customerRepo) Search(ctx context.Context, f models.CustomerFilter, page models.PageRequest) ([]models.Customer, int64, error) {
	var matched []models.Customer
	r.a.with(func(d *data) {
		for _, c := range d.customers {
			if f.NamePrefix != nil && !strings.HasPrefix(strings.ToLower(c.Name), strings.ToLower(*f.NamePrefix)) {
				continue
			}
			if f.Email != nil && c.Email != *f.Email {
				continue
			}
			if f.CreatedAfter != nil && !c.CreatedAt.After(*f.CreatedAfter) {
				continue
			}
			matched = append(matched, c)
		}
	})
	items, total := paginate(matched, page, comparator(page.Sort, customerField, func(c models.Customer) int64 { return c.ID }))
	return items, total, nil
}

func customerField(c models.Customer, name string) any {
	switch name {
	case "id":
		return c.ID
	case "name":
		return c.Name
	case "email":
		return c.Email
	case "createdAt":
		return c.CreatedAt
	}
	return nil
}

type productRepo struct{ a access }

func (r productRepo) Create(ctx context.Context, p *models.Product) error {
	r.a.with(func(d *data) {
		p.ID = d.id("product")
		p.CreatedAt = r.a.s.now()
		d.products[p.ID] = *p
	})
	return nil
}

func (r productRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var out *models.Product
	r.a.with(func(d *data) {
		if p, ok := d.products[id]; ok {
			out = &p
		}
	})
	return out, nil
}

// GetForUpdate needs no extra locking: transactions already hold the store mutex.
func (r productRepo) GetForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return r.GetByID(ctx, id)
}

func (r productRepo) List(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	r.a.with(func(d *data) {
		out = sortedValues(d.products)
	})
	return out, nil
}

func (r productRepo) ListPaged(ctx context.Context, page models.PageRequest) ([]models.Product, int64, error) {
	var all []models.Product
	r.a.with(func(d *data) {
		all = sortedValues(d.products)
	})
	items, total := paginate(all, page, comparator(page.Sort, productField, func(p models.Product) int64 { return p.ID }))
	return items, total, nil
}

func productField(p models.Product, name string) any {
	switch name {
	case "id":
		return p.ID
	case "name":
		return p.Name
	case "price":
		return p.Price
	case "stockQuantity":
		return p.StockQuantity
	case "createdAt":
		return p.CreatedAt
	}
	return nil
}

func (r productRepo) SetStock(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	var out *models.Product
	r.a.with(func(d *data) {
		p, ok := d.products[id]
		if !ok {
			return
		}
		p.StockQuantity = quantity
		d.products[id] = p
		out = &p
	})
	return out, nil
}

func (r productRepo) AdjustStock(ctx context.Context, id int64, delta int) (*models.Product, error) {
	var out *models.Product
	r.a.with(func(d *data) {
		p, ok := d.products[id]
		if !ok || p.StockQuantity+delta < 0 {
			return
		}
		p.StockQuantity += delta
		d.products[id] = p
		out = &p
	})
	return out, nil
}

type orderRepo struct{ a access }

func (r orderRepo) Create(ctx context.Context, o *models.Order) error {
	var err error
	r.a.with(func(d *data) {
		if _, ok := d.customers[o.CustomerID]; !ok {
			err = &models.ConflictError{Message: fmt.Sprintf("referenced record does not exist: customer %d", o.CustomerID)}
			return
		}
		for _, item := range o.Items {
			if _, ok := d.products[item.ProductID]; !ok {
				err = &models.ConflictError{Message: fmt.Sprintf("referenced record does not exist: product %d", item.ProductID)}
				return
			}
		}
		o.ID = d.id("order")
		for i := range o.Items {
			o.Items[i].ID = d.id("order_item")
			o.Items[i].OrderID = o.ID
		}
		stored := *o
		stored.Items = slices.Clone(o.Items)
		d.orders[o.ID] = stored
	})
	return err
}

func (r orderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var out *models.Order
	r.a.with(func(d *data) {
		if o, ok := d.orders[id]; ok {
			o.Items = slices.Clone(o.Items)
			out = &o
		}
	})
	return out, nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return r.GetByID(ctx, id)
}

func (r orderRepo) ListByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	out := []models.Order{}
	r.a.with(func(d *data) {
		for _, o := range sortedValues(d.orders) {
			if o.CustomerID == customerID {
				o.Items = slices.Clone(o.Items)
				out = append(out, o)
			}
		}
	})
	return out, nil
}

func (r orderRepo) ListPaged(ctx context.Context, page models.PageRequest) ([]models.Order, int64, error) {
	var all []models.Order
	r.a.with(func(d *data) {
		all = sortedValues(d.orders)
		for i := range all {
			all[i].Items = slices.Clone(all[i].Items)
		}
	})
	items, total := paginate(all, page, comparator(page.Sort, orderField, func(o models.Order) int64 { return o.ID }))
	return items, total, nil
}

func orderField(o models.Order, name string) any {
	switch name {
	case "id":
		return o.ID
	case "customerId":
		return o.CustomerID
	case "orderDate":
		return o.OrderDate
	case "status":
		return string(o.Status)
	}
	return nil
}

func (r orderRepo) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	var err error
	r.a.with(func(d *data) {
		o, ok := d.orders[id]
		if !ok {
			err = &models.NotFoundError{Entity: "Order", ID: id}
			return
		}
		o.Status = status
		d.orders[id] = o
	})
	return err
}

// sortedValues returns map values ordered by key.
func sortedValues[T any](m map[int64]T) []T {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
