package models

import "time"

const (
	EventOrderPlaced        = "order.placed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published after an order lifecycle change is committed.
type OrderEvent struct {
	EventID    string           `json:"event_id"`
	Type       string           `json:"type"`
	OrderID    int64            `json:"order_id"`
	CustomerID int64            `json:"customer_id"`
	Status     OrderStatus      `json:"status"`
	OccurredAt time.Time        `json:"occurred_at"`
	Items      []OrderItemEvent `json:"items"`
}

type OrderItemEvent struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
