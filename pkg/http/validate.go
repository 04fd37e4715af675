package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ReadAndValidateRequest binds path, query and body into req, applies default tags and
// validates it. It returns nil or a []ValidationError suitable for BadRequestResponse.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, describe(fe))
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprintf("%v", he.Message)
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: msg}}
}

// describe renders the tags used by the request DTOs (pair parameters). Other tags get a
// generic message.
func describe(fe validator.FieldError) ValidationError {
	field := strings.ToLower(fe.Field())
	ve := ValidationError{Code: "ERR_" + strings.ToUpper(fe.Tag()), Field: field}
	switch fe.Tag() {
	case "required":
		ve.Message = field + " is required"
	case "alphanum":
		ve.Message = field + " must contain only letters and digits"
	case "min":
		ve.Message = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		ve.Params = map[string]interface{}{"min": fe.Param()}
	case "max":
		ve.Message = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		ve.Params = map[string]interface{}{"max": fe.Param()}
	default:
		ve.Message = fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
	return ve
}
