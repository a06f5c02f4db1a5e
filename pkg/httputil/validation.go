package httputil

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
	"github.com/maestranza/maestranza-backend/pkg/validation"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("rut", func(fl validator.FieldLevel) bool {
		return validation.IsValidRUT(fl.Field().String())
	})
	_ = v.RegisterValidation("cl_phone", func(fl validator.FieldLevel) bool {
		return validation.ValidatePhone(fl.Field().String()).Valid
	})
	_ = v.RegisterValidation("barcode", func(fl validator.FieldLevel) bool {
		return validation.ValidateBarcode(fl.Field().String()).Valid
	})
	_ = v.RegisterValidation("sku", func(fl validator.FieldLevel) bool {
		return validation.ValidateSKU(fl.Field().String()).Valid
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return permissions.IsValidRole(fl.Field().String())
	})

	return v
}

// Validate validates a struct using go-playground/validator
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.BadRequest(err.Error())
	}

	details := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		details[e.Field()] = formatValidationError(e)
	}

	return errors.Validation(details)
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return "must be at least " + e.Param() + " characters"
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "must be at most " + e.Param() + " characters"
		}
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "rut":
		return "must be a valid RUT"
	case "cl_phone":
		return "must have the format +569XXXXXXXX"
	case "barcode":
		return "must contain at least 8 digits and only digits"
	case "sku":
		return "must have at least 4 characters"
	case "role":
		return "must be one of: " + strings.Join(permissions.Roles, ", ")
	default:
		return "invalid value"
	}
}
