package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/models"
)

// writeError is the single place where errors become HTTP responses.
// Unknown errors are logged and answered with a generic 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		notFound     *models.NotFoundError
		validation   *models.ValidationError
		insufficient *models.InsufficientStockError
		conflict     *models.ConflictError
		transition   *models.InvalidTransitionError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": validation.Fields})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        insufficient.Error(),
			"product_id":   insufficient.ProductID,
			"product_name": insufficient.ProductName,
			"available":    insufficient.Available,
			"requested":    insufficient.Requested,
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": transition.Error()})
	case errors.Is(err, models.ErrTxConflict):
		c.JSON(http.StatusConflict, gin.H{"error": models.ErrTxConflict.Error()})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
