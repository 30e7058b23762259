package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/vicemeter/backend/internal/interfaces/http/dto"
)

// SetupValidator makes binding errors report JSON field names, so a bad
// consent payload says "rates" rather than "Rates".
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
}

// FormatValidationErrors turns binding failures into the standard error
// envelope with one detail per offending field.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, e := range fieldErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: fieldMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 with per-field details.
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, c.GetString("request_id")))
}

// fieldMessage covers the binding tags the tick, consent, wallet and
// session DTOs actually use.
func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "min":
		return "Must have at least " + e.Param() + " entries"
	case "max":
		return "Must have at most " + e.Param() + " entries"
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be at least " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	default:
		return "Invalid value"
	}
}
