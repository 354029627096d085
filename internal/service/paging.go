package service

import (
	"github.com/prudhivi99/order-management/internal/models"
	"github.com/prudhivi99/order-management/internal/store"
)

// Paging holds the page size policy shared by the list endpoints.
type Paging struct {
	DefaultSize int
	MaxSize     int
}

// normalize fills in the default size, caps it at MaxSize and rejects
// negative indices and unknown sort fields.
func (p Paging) normalize(req models.PageRequest, cols store.SortColumns) (models.PageRequest, error) {
	if req.Page < 0 {
		return req, models.NewValidationError("page", "must be greater than or equal to 0")
	}
	switch {
	case req.Size <= 0:
		req.Size = p.DefaultSize
	case p.MaxSize > 0 && req.Size > p.MaxSize:
		req.Size = p.MaxSize
	}
	if err := cols.Validate(req.Sort); err != nil {
		return req, err
	}
	return req, nil
}
