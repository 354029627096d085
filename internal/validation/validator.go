package validation

import (
	"errors"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/prudhivi99/order-management/internal/models"
)

// Validator checks request structs and reports failures as
// *models.ValidationError keyed by json field name.
type Validator struct {
	v *validatorv10.Validate
}

// New returns a validator with the custom tags used by the request types
// registered.
func New() *Validator {
	v := validatorv10.New(validatorv10.WithRequiredStructEnabled())

	// report json names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// lets numeric tags like gte=0 apply to money fields
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("notblank", func(fl validatorv10.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("order_status", func(fl validatorv10.FieldLevel) bool {
		return models.OrderStatus(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

// Struct validates s. It returns nil or a *models.ValidationError.
func (v *Validator) Struct(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return &models.ValidationError{Fields: map[string]string{"request": err.Error()}}
	}
	return &models.ValidationError{Fields: fieldMessages(ve)}
}

func fieldMessages(ve validatorv10.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fieldPath(fe.Namespace())] = message(fe)
	}
	return out
}

// fieldPath strips the struct name from a namespace such as
// "PlaceOrderRequest.order_items[0].quantity".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "invalid email format"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " element(s)"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice {
			return "must contain at most " + fe.Param() + " element(s)"
		}
		return "must be at most " + fe.Param()
	case "order_status":
		return "must be one of PLACED, SHIPPED, CANCELLED"
	}
	return "failed on " + fe.Tag()
}
