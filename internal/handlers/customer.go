package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/service"
)

type CustomerHandler struct {
	customers *service.CustomerService
	logger    *zap.Logger
}

func NewCustomerHandler(customers *service.CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{customers: customers, logger: logger}
}

// RegisterCustomer creates a new customer
func (h *CustomerHandler) RegisterCustomer(c *gin.Context) {
	var req models.RegisterCustomerRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	customer, err := h.customers.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// GetCustomer returns a single customer
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	customer, err := h.customers.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// SearchCustomers returns a page of customers filtered by name prefix,
// email and creation time.
func (h *CustomerHandler) SearchCustomers(c *gin.Context) {
	filter, err := parseCustomerFilter(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	req, err := parsePageRequest(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	page, err := h.customers.Search(c.Request.Context(), filter, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
