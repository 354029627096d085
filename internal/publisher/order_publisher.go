package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/observability"
)

const (
	OrderPlacedQueue        = models.EventOrderPlaced
	OrderCancelledQueue     = models.EventOrderCancelled
	OrderStatusChangedQueue = models.EventOrderStatusChanged
)

// Broker is the part of messaging.RabbitMQ the publisher uses.
type Broker interface {
	DeclareQueue(name string) error
	Publish(ctx context.Context, queue string, msg amqp.Publishing) error
}

type OrderPublisher struct {
	mq  Broker
	now func() time.Time
}

func NewOrderPublisher(mq Broker) (*OrderPublisher, error) {
	// Declare the queues
	for _, q := range []string{OrderPlacedQueue, OrderCancelledQueue, OrderStatusChangedQueue} {
		if err := mq.DeclareQueue(q); err != nil {
			return nil, err
		}
	}

	return &OrderPublisher{mq: mq, now: time.Now}, nil
}

// PublishOrderPlaced publishes an order.placed event
func (p *OrderPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, OrderPlacedQueue, order)
}

// PublishOrderCancelled publishes an order.cancelled event
func (p *OrderPublisher) PublishOrderCancelled(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, OrderCancelledQueue, order)
}

// PublishStatusChanged publishes an order.status_changed event
func (p *OrderPublisher) PublishStatusChanged(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, OrderStatusChangedQueue, order)
}

func (p *OrderPublisher) publish(ctx context.Context, eventType string, order *models.Order) error {
	event := models.OrderEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		OccurredAt: p.now().UTC(),
		Items:      make([]models.OrderItemEvent, 0, len(order.Items)),
	}

	for _, item := range order.Items {
		event.Items = append(event.Items, models.OrderItemEvent{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := amqp.Table{}
	observability.InjectAMQP(ctx, headers)

	return p.mq.Publish(ctx, eventType, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   event.EventID,
		Type:        eventType,
		Timestamp:   event.OccurredAt,
		Headers:     headers,
		Body:        data,
	})
}
