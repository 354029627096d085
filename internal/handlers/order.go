package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// PlaceOrder creates a new order
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder returns a single order with items
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder cancels an order and restocks its items
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus updates the order status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var req models.OrderStatusUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListCustomerOrders returns every order of one customer
func (h *OrderHandler) ListCustomerOrders(c *gin.Context) {
	customerID, err := parseID(c, "customerId")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	orders, err := h.orders.ListByCustomer(c.Request.Context(), customerID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) ListOrdersPaged(c *gin.Context) {
	req, err := parsePageRequest(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	page, err := h.orders.ListPaged(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
