package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct maps failed struct tags to readable messages keyed by the
// lower-cased field name.
func ValidateStruct(payload any) map[string]string {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	out := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		out["_"] = err.Error()
		return out
	}

	for _, fe := range validationErrors {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = fmt.Sprintf("The %s field is required.", field)
		case "gte", "min":
			out[field] = fmt.Sprintf("The %s must be at least %s.", field, fe.Param())
		case "lte", "max":
			out[field] = fmt.Sprintf("The %s may not be greater than %s.", field, fe.Param())
		default:
			out[field] = fmt.Sprintf("The %s field is invalid.", field)
		}
	}

	return out
}
