package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/order-management/internal/models"
)

func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// bindJSON decodes the request body, reporting decode failures as
// validation errors.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return models.NewValidationError("body", "malformed JSON: "+err.Error())
	}
	return nil
}

// parsePageRequest reads page, size and repeated sort=field[,asc|desc]
// parameters. Missing values are left zero for the service to default.
func parsePageRequest(c *gin.Context) (models.PageRequest, error) {
	var req models.PageRequest

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, models.NewValidationError("page", "must be an integer")
		}
		req.Page = n
	}
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, models.NewValidationError("size", "must be a positive integer")
		}
		req.Size = n
	}

	for _, raw := range c.QueryArray("sort") {
		key, err := parseSortKey(raw)
		if err != nil {
			return req, err
		}
		req.Sort = append(req.Sort, key)
	}
	return req, nil
}

func parseSortKey(raw string) (models.SortKey, error) {
	field, dir, _ := strings.Cut(raw, ",")
	field = strings.TrimSpace(field)
	if field == "" {
		return models.SortKey{}, models.NewValidationError("sort", "field is required")
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return models.SortKey{Field: field}, nil
	case "desc":
		return models.SortKey{Field: field, Desc: true}, nil
	}
	return models.SortKey{}, models.NewValidationError("sort", fmt.Sprintf("direction must be asc or desc, got %q", dir))
}

// parseCustomerFilter reads name, email and createdAfter. createdAfter
// accepts a date (2006-01-02, midnight UTC) or an RFC 3339 timestamp.
func parseCustomerFilter(c *gin.Context) (models.CustomerFilter, error) {
	var f models.CustomerFilter

	if v, ok := c.GetQuery("name"); ok && v != "" {
		f.NamePrefix = &v
	}
	if v, ok := c.GetQuery("email"); ok && v != "" {
		f.Email = &v
	}
	if v := c.Query("createdAfter"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return f, models.NewValidationError("createdAfter", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		f.CreatedAfter = &t
	}
	return f, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}
