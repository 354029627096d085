package store

import (
	"fmt"
	"strings"

	"github.com/prudhivi99/order-management/internal/models"
)

// SortColumns maps public sort field names to column names for one entity.
type SortColumns map[string]string

var (
	ProductSortColumns = SortColumns{
		"id":            "id",
		"name":          "name",
		"price":         "price",
		"stockQuantity": "stock_quantity",
		"createdAt":     "created_at",
	}
	CustomerSortColumns = SortColumns{
		"id":        "id",
		"name":      "name",
		"email":     "email",
		"createdAt": "created_at",
	}
	OrderSortColumns = SortColumns{
		"id":         "id",
		"customerId": "customer_id",
		"orderDate":  "order_date",
		"status":     "status",
	}
)

// Validate reports the first sort key that has no column.
func (c SortColumns) Validate(keys []models.SortKey) error {
	for _, k := range keys {
		if _, ok := c[k.Field]; !ok {
			return models.NewValidationError("sort", fmt.Sprintf("unknown sort field %q", k.Field))
		}
	}
	return nil
}

// OrderBy renders an ORDER BY clause. id ASC is appended as a tiebreaker so
// that pages are stable.
func (c SortColumns) OrderBy(keys []models.SortKey) string {
	parts := make([]string, 0, len(keys)+1)
	hasID := false
	for _, k := range keys {
		col, ok := c[k.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
		if col == "id" {
			hasID = true
		}
	}
	if !hasID {
		parts = append(parts, "id ASC")
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
