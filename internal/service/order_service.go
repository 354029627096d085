package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
	"github.com/prudhivi99/order-management/internal/validation"
)

// StockCache drops cached product reads after stock changes.
type StockCache interface {
	Evict(ctx context.Context, ids ...int64)
}

// EventPublisher announces committed order lifecycle changes.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.Order) error
	PublishOrderCancelled(ctx context.Context, order *models.Order) error
	PublishStatusChanged(ctx context.Context, order *models.Order) error
}

// OrderService runs the order workflow. Every stock mutation happens inside
// a single store transaction; cache eviction and events follow the commit
// and never fail the call.
type OrderService struct {
	store    store.Store
	validate *validation.Validator
	paging   Paging
	cache    StockCache
	events   EventPublisher
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewOrderService builds the workflow. cache and events may be nil.
func NewOrderService(
	st store.Store,
	v *validation.Validator,
	paging Paging,
	cache StockCache,
	events EventPublisher,
	logger *zap.Logger,
	tracer trace.Tracer,
) *OrderService {
	return &OrderService{
		store:    st,
		validate: v,
		paging:   paging,
		cache:    cache,
		events:   events,
		logger:   logger,
		tracer:   tracer,
		now:      time.Now,
	}
}

// PlaceOrder checks every item against current stock and, only if all
// pass, decrements stock and stores the order with the prices in effect.
// Repeated product ids are checked against their combined quantity.
func (s *OrderService) PlaceOrder(ctx context.Context, req models.PlaceOrderRequest) (order *models.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder",
		trace.WithAttributes(attribute.Int64("customer.id", req.CustomerID)))
	defer func() { endSpan(span, err) }()

	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	requested := make(map[int64]int, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity > models.MaxQuantity-requested[item.ProductID] {
			return nil, models.NewValidationError(fmt.Sprintf("order_items[%d].quantity", i),
				fmt.Sprintf("combined quantity for product %d must be at most %d", item.ProductID, models.MaxQuantity))
		}
		requested[item.ProductID] += item.Quantity
	}
	// lock rows in a fixed order so concurrent orders cannot deadlock
	ids := make([]int64, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		customer, err := tx.Customers().GetByID(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return &models.NotFoundError{Entity: "Customer", ID: req.CustomerID}
		}

		products := make(map[int64]*models.Product, len(ids))
		for _, id := range ids {
			p, err := tx.Products().GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if p == nil {
				return &models.NotFoundError{Entity: "Product", ID: id}
			}
			products[id] = p
		}

		for _, item := range req.Items {
			p := products[item.ProductID]
			if p.StockQuantity < requested[item.ProductID] {
				return insufficient(p, requested[item.ProductID])
			}
		}

		for _, id := range ids {
			updated, err := tx.Products().AdjustStock(ctx, id, -requested[id])
			if err != nil {
				return err
			}
			if updated == nil {
				return insufficient(products[id], requested[id])
			}
		}

		o := &models.Order{
			CustomerID: customer.ID,
			OrderDate:  s.now().UTC(),
			Status:     models.OrderStatusPlaced,
			Items:      make([]models.OrderItem, 0, len(req.Items)),
		}
		for _, item := range req.Items {
			o.Items = append(o.Items, models.OrderItem{
				ProductID:       item.ProductID,
				Quantity:        item.Quantity,
				PriceAtPurchase: products[item.ProductID].Price,
			})
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	s.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", order.CustomerID),
		zap.Int("items", len(order.Items)),
	)
	s.afterCommit(ctx, order, ids, s.publishPlaced)
	return order, nil
}

func insufficient(p *models.Product, requested int) error {
	return &models.InsufficientStockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Available:   p.StockQuantity,
		Requested:   requested,
	}
}

func (s *OrderService) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	o, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, &models.NotFoundError{Entity: "Order", ID: id}
	}
	return o, nil
}

// CancelOrder returns every item's quantity to stock and marks the order
// CANCELLED. Cancelling an already cancelled order changes nothing.
func (s *OrderService) CancelOrder(ctx context.Context, id int64) (order *models.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOrder",
		trace.WithAttributes(attribute.Int64("order.id", id)))
	defer func() { endSpan(span, err) }()

	var restocked []int64
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return &models.NotFoundError{Entity: "Order", ID: id}
		}
		order = o
		if o.Status == models.OrderStatusCancelled {
			return nil
		}

		returned := make(map[int64]int, len(o.Items))
		for _, item := range o.Items {
			returned[item.ProductID] += item.Quantity
		}
		ids := o.ProductIDs()
		slices.Sort(ids)
		for _, pid := range ids {
			updated, err := tx.Products().AdjustStock(ctx, pid, returned[pid])
			if err != nil {
				return err
			}
			if updated == nil {
				return &models.NotFoundError{Entity: "Product", ID: pid}
			}
		}

		if err := tx.Orders().UpdateStatus(ctx, id, models.OrderStatusCancelled); err != nil {
			return err
		}
		o.Status = models.OrderStatusCancelled
		restocked = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	if restocked == nil {
		s.logger.Debug("order already cancelled", zap.Int64("order_id", id))
		return order, nil
	}

	s.logger.Info("order cancelled", zap.Int64("order_id", id), zap.Int64s("restocked_products", restocked))
	s.afterCommit(ctx, order, restocked, s.publishCancelled)
	return order, nil
}

// UpdateStatus moves an order along PLACED -> SHIPPED -> CANCELLED (or
// PLACED -> CANCELLED). Moving to CANCELLED restocks like CancelOrder.
// Setting the current status, or any status on a cancelled order, returns
// the order unchanged. SHIPPED -> PLACED is an InvalidTransitionError.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, req models.OrderStatusUpdateRequest) (order *models.Order, err error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Status == models.OrderStatusCancelled {
		return s.CancelOrder(ctx, id)
	}

	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus",
		trace.WithAttributes(attribute.Int64("order.id", id), attribute.String("order.status", string(req.Status))))
	defer func() { endSpan(span, err) }()

	changed := false
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return &models.NotFoundError{Entity: "Order", ID: id}
		}
		order = o
		// a cancelled order is final; further updates leave it as is
		if o.Status == req.Status || o.Status == models.OrderStatusCancelled {
			return nil
		}
		if !o.Status.CanTransitionTo(req.Status) {
			return &models.InvalidTransitionError{From: o.Status, To: req.Status}
		}
		if err := tx.Orders().UpdateStatus(ctx, id, req.Status); err != nil {
			return err
		}
		o.Status = req.Status
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("order status changed", zap.Int64("order_id", id), zap.String("status", string(order.Status)))
		s.afterCommit(ctx, order, nil, s.publishStatusChanged)
	}
	return order, nil
}

// ListByCustomer returns the customer's orders, oldest first.
func (s *OrderService) ListByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	c, err := s.store.Customers().GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &models.NotFoundError{Entity: "Customer", ID: customerID}
	}
	return s.store.Orders().ListByCustomer(ctx, customerID)
}

func (s *OrderService) ListPaged(ctx context.Context, req models.PageRequest) (*models.Page[models.Order], error) {
	req, err := s.paging.normalize(req, store.OrderSortColumns)
	if err != nil {
		return nil, err
	}
	items, total, err := s.store.Orders().ListPaged(ctx, req)
	if err != nil {
		return nil, err
	}
	page := models.NewPage(items, req, total)
	return &page, nil
}

func (s *OrderService) afterCommit(ctx context.Context, order *models.Order, touched []int64, publish func(context.Context, *models.Order) error) {
	if s.cache != nil && len(touched) > 0 {
		s.cache.Evict(ctx, touched...)
	}
	if s.events == nil {
		return
	}
	if err := publish(ctx, order); err != nil {
		s.logger.Warn("failed to publish order event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func (s *OrderService) publishPlaced(ctx context.Context, o *models.Order) error {
	return s.events.PublishOrderPlaced(ctx, o)
}

func (s *OrderService) publishCancelled(ctx context.Context, o *models.Order) error {
	return s.events.PublishOrderCancelled(ctx, o)
}

func (s *OrderService) publishStatusChanged(ctx context.Context, o *models.Order) error {
	return s.events.PublishStatusChanged(ctx, o)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
