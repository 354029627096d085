package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/prudhivi99/order-management/internal/models"
)

// Postgres SQLSTATE codes we translate into domain errors.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeNumericOutOfRange    = "22003"
)

// mapError converts driver errors into domain errors where the meaning is
// known and returns everything else unchanged.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeUniqueViolation:
		if pqErr.Constraint == "customers_email_key" {
			return &models.ConflictError{Message: "email already registered"}
		}
		return &models.ConflictError{Message: "duplicate value violates " + pqErr.Constraint}
	case codeForeignKeyViolation:
		return &models.ConflictError{Message: "referenced record does not exist: " + pqErr.Constraint}
	case codeNumericOutOfRange:
		return models.NewValidationError("quantity", "value out of range")
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", models.ErrTxConflict, pqErr.Message)
	}
	return err
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
