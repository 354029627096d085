package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API on r.
func RegisterRoutes(r gin.IRouter, health *HealthHandler, products *ProductHandler, customers *CustomerHandler, orders *OrderHandler) {
	r.GET("/health", health.HealthCheck)

	r.POST("/customers", customers.RegisterCustomer)
	r.GET("/customers", customers.SearchCustomers)
	r.GET("/customers/:id", customers.GetCustomer)

	r.POST("/products", products.CreateProduct)
	r.GET("/products", products.ListProducts)
	r.GET("/products/paged", products.ListProductsPaged)
	r.GET("/products/:id", products.GetProduct)
	r.PUT("/products/:id/stock", products.UpdateStock)

	r.POST("/orders", orders.PlaceOrder)
	r.GET("/orders/paged", orders.ListOrdersPaged)
	r.GET("/orders/customers/:customerId", orders.ListCustomerOrders)
	r.GET("/orders/:id", orders.GetOrder)
	r.PUT("/orders/:id/cancel", orders.CancelOrder)
	r.PATCH("/orders/:id/status", orders.UpdateOrderStatus)
}
