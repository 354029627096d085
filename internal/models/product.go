package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest stock or item quantity the INTEGER columns hold.
const MaxQuantity = 2147483647

type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CreateProductRequest struct {
	Name          string           `json:"name" validate:"notblank"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price" validate:"required,gte=0"`
	StockQuantity *int             `json:"stock_quantity" validate:"required,gte=0,max=2147483647"`
}

type StockUpdateRequest struct {
	StockQuantity *int `json:"stock_quantity" validate:"required,gte=0,max=2147483647"`
}
