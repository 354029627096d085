package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/service"
	"github.com/prudhivi99/order-management/internal/store/memstore"
	"github.com/prudhivi99/order-management/internal/validation"
)

type failingPing struct{}

func (failingPing) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newRouter(t *testing.T, checks map[string]Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	v := validation.New()
	paging := service.Paging{DefaultSize: 20, MaxSize: 100}
	logger := zap.NewNop()

	r := gin.New()
	RegisterRoutes(r,
		NewHealthHandler("order-service", checks),
		NewProductHandler(service.NewProductService(st.Products(), v, paging, logger), logger),
		NewCustomerHandler(service.NewCustomerService(st.Customers(), v, paging, logger), logger),
		NewOrderHandler(service.NewOrderService(st, v, paging, nil, nil, logger, noop.NewTracerProvider().Tracer("test")), logger),
	)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func seed(t *testing.T, r http.Handler) (customerID, productID int64) {
	t.Helper()
	w := do(t, r, http.MethodPost, "/customers", gin.H{"name": "Jane", "email": "jane@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customerID = decode[models.Customer](t, w).ID

	w = do(t, r, http.MethodPost, "/products", gin.H{"name": "Widget", "price": "9.99", "stock_quantity": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	productID = decode[models.Product](t, w).ID
	return customerID, productID
}

func TestHealth(t *testing.T) {
	w := do(t, newRouter(t, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, newRouter(t, map[string]Pinger{"postgres": failingPing{}}), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestCustomerEndpoints(t *testing.T) {
	r := newRouter(t, nil)
	customerID, _ := seed(t, r)

	w := do(t, r, http.MethodPost, "/customers", gin.H{"name": "Jane 2", "email": "jane@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/customers", gin.H{"name": "", "email": "nope"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Equal(t, "invalid email format", body.Fields["email"])

	w = do(t, r, http.MethodGet, "/customers/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Customer not found with id: 999"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/customers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/customers?name=JA&createdAfter=2000-01-01&sort=name,desc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[models.Page[models.Customer]](t, w)
	require.Len(t, page.Content, 1)
	assert.Equal(t, customerID, page.Content[0].ID)

	w = do(t, r, http.MethodGet, "/customers?createdAfter=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/customers?sort=shoeSize", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductEndpoints(t *testing.T) {
	r := newRouter(t, nil)
	_, productID := seed(t, r)

	w := do(t, r, http.MethodPost, "/products", gin.H{"name": "Bad", "price": -1, "stock_quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/products", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Product](t, w), 1)

	w = do(t, r, http.MethodGet, "/products/paged?page=3&size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[models.Page[models.Product]](t, w)
	assert.Empty(t, page.Content)
	assert.EqualValues(t, 1, page.TotalElements)
	assert.Equal(t, 1, page.TotalPages)

	w = do(t, r, http.MethodPut, "/products/999/stock", gin.H{"stock_quantity": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPut, "/products/"+itoa(productID)+"/stock", gin.H{"stock_quantity": 42})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 42, decode[models.Product](t, w).StockQuantity)

	w = do(t, r, http.MethodGet, "/products/"+itoa(productID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9.99", decode[models.Product](t, w).Price.String())
}

func TestOrderLifecycle(t *testing.T) {
	r := newRouter(t, nil)
	customerID, productID := seed(t, r)

	w := do(t, r, http.MethodPost, "/orders", gin.H{
		"customer_id": customerID,
		"order_items": []gin.H{{"product_id": productID, "quantity": 6}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	stockErr := decode[map[string]any](t, w)
	assert.Equal(t, "insufficient stock for product: Widget. Available: 5, Requested: 6", stockErr["error"])
	assert.EqualValues(t, productID, stockErr["product_id"])
	assert.EqualValues(t, 5, stockErr["available"])
	assert.EqualValues(t, 6, stockErr["requested"])

	w = do(t, r, http.MethodPost, "/orders", gin.H{
		"customer_id": customerID,
		"order_items": []gin.H{{"product_id": productID, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "9.99", order.Items[0].PriceAtPurchase.String())

	w = do(t, r, http.MethodGet, "/products/"+itoa(productID), nil)
	assert.Equal(t, 2, decode[models.Product](t, w).StockQuantity)

	w = do(t, r, http.MethodGet, "/orders/"+itoa(order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/orders/customers/"+itoa(customerID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Order](t, w), 1)

	w = do(t, r, http.MethodGet, "/orders/customers/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPatch, "/orders/"+itoa(order.ID)+"/status", gin.H{"status": "SHIPPED"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusShipped, decode[models.Order](t, w).Status)

	w = do(t, r, http.MethodPatch, "/orders/"+itoa(order.ID)+"/status", gin.H{"status": "PLACED"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPatch, "/orders/"+itoa(order.ID)+"/status", gin.H{"status": "LOST"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for i := 0; i < 2; i++ {
		w = do(t, r, http.MethodPut, "/orders/"+itoa(order.ID)+"/cancel", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.OrderStatusCancelled, decode[models.Order](t, w).Status)
	}

	w = do(t, r, http.MethodPatch, "/orders/"+itoa(order.ID)+"/status", gin.H{"status": "SHIPPED"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusCancelled, decode[models.Order](t, w).Status)

	w = do(t, r, http.MethodGet, "/products/"+itoa(productID), nil)
	assert.Equal(t, 5, decode[models.Product](t, w).StockQuantity)

	w = do(t, r, http.MethodGet, "/orders/paged?sort=orderDate,desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[models.Page[models.Order]](t, w).TotalElements)

	w = do(t, r, http.MethodPut, "/orders/999/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	writeError(c, zap.NewNop(), errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestWriteError_TxConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	writeError(c, zap.NewNop(), errors.Join(errors.New("commit"), models.ErrTxConflict))

	assert.Equal(t, http.StatusConflict, w.Code)
}
