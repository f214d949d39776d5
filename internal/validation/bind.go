package validation

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
)

// Struct validates s and converts field failures to a validation error.
func Struct(v *validatorv10.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		return apperrors.Validation(fieldErrors(err))
	}
	return nil
}

// BindJSON decodes the request body into out. Only decoding is checked
// here; field rules run in the service.
func BindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return apperrors.Validationf("body", "invalid request body: %v", err)
	}
	return nil
}

// BindQuery binds and validates the query string into out.
func BindQuery(c *gin.Context, out any, v *validatorv10.Validate) error {
	if err := c.ShouldBindQuery(out); err != nil {
		return apperrors.Validationf("query", "invalid query string: %v", err)
	}
	return Struct(v, out)
}

func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		out["error"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "excludes":
		return fmt.Sprintf("must not contain %q", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "isodate", "isodate|len=0":
		return "must be a date in YYYY-MM-DD format"
	case "single_filter":
		return "only one of status, priority, category or due date range may be given"
	case "gtefield":
		return "must not be before due_from"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
