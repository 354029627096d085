package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/client"
	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/observability"
)

// Catalog looks up current product state.
type Catalog interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
}

// RetryPolicy bounds redelivery of events that failed on a transient error.
// MaxAttempts counts deliveries, so 1 means no retry.
type RetryPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

// StockAlertConsumer watches order.placed events and warns when an ordered
// product drops below the configured stock threshold.
type StockAlertConsumer struct {
	catalog   Catalog
	threshold int
	retry     RetryPolicy
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewStockAlertConsumer(catalog Catalog, threshold int, retry RetryPolicy, logger *zap.Logger, tracer trace.Tracer) *StockAlertConsumer {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &StockAlertConsumer{
		catalog:   catalog,
		threshold: threshold,
		retry:     retry,
		logger:    logger,
		tracer:    tracer,
	}
}

// ProcessOrderPlaced handles deliveries until the channel closes or ctx is
// cancelled.
func (c *StockAlertConsumer) ProcessOrderPlaced(ctx context.Context, messages <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *StockAlertConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	ctx = observability.ExtractAMQP(ctx, msg.Headers)
	ctx, span := c.tracer.Start(ctx, "order.placed process", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("failed to parse event", zap.String("message_id", msg.MessageId), zap.Error(err))
		span.SetStatus(codes.Error, "malformed event")
		msg.Nack(false, false) // Don't requeue bad messages
		return
	}
	span.SetAttributes(attribute.Int64("order.id", event.OrderID))

	for _, item := range event.Items {
		product, err := c.catalog.GetProduct(ctx, item.ProductID)
		if errors.Is(err, client.ErrProductNotFound) {
			c.logger.Warn("ordered product no longer exists",
				zap.Int64("order_id", event.OrderID), zap.Int64("product_id", item.ProductID))
			continue
		}
		if err != nil {
			c.logger.Error("failed to fetch product",
				zap.Int64("order_id", event.OrderID), zap.Int64("product_id", item.ProductID), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "catalog lookup failed")
			c.retryLater(ctx, msg, event.OrderID)
			return
		}

		if product.StockQuantity < c.threshold {
			c.logger.Warn("low stock",
				zap.Int64("product_id", product.ID),
				zap.String("product_name", product.Name),
				zap.Int("stock_quantity", product.StockQuantity),
				zap.Int("threshold", c.threshold),
				zap.Int64("order_id", event.OrderID),
			)
		}
	}

	msg.Ack(false)
	c.logger.Debug("order.placed processed", zap.Int64("order_id", event.OrderID))
}

// retryLater requeues msg after the retry delay, or drops it once it has
// been delivered MaxAttempts times.
func (c *StockAlertConsumer) retryLater(ctx context.Context, msg amqp.Delivery, orderID int64) {
	attempt := deliveryAttempt(msg)
	if attempt >= c.retry.MaxAttempts {
		c.logger.Error("giving up on event",
			zap.Int64("order_id", orderID),
			zap.String("message_id", msg.MessageId),
			zap.Int("attempts", attempt),
		)
		msg.Nack(false, false)
		return
	}

	if c.retry.Delay > 0 {
		timer := time.NewTimer(c.retry.Delay)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}
	msg.Nack(false, true)
}

// deliveryAttempt is the 1-based delivery number. Quorum queues report prior
// deliveries in x-delivery-count; elsewhere only the redelivered flag exists.
func deliveryAttempt(msg amqp.Delivery) int {
	switch n := msg.Headers["x-delivery-count"].(type) {
	case int64:
		return int(n) + 1
	case int32:
		return int(n) + 1
	case int:
		return n + 1
	}
	if msg.Redelivered {
		return 2
	}
	return 1
}
