package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"propflow/api/internal/api/middleware"
	"propflow/api/internal/apperr"
)

// respondError writes {"error": message} with the status of err's kind.
// Upstream failures are logged; outside production their cause is added as
// "detail".
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	body := gin.H{"error": apperr.MessageOf(err, "An unexpected error occurred")}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "Request failed",
			"request_id", c.GetString(middleware.ContextKeyRequestID),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		if c.GetBool(middleware.ContextKeyExposeDetail) {
			if cause := errors.Unwrap(err); cause != nil {
				body["detail"] = cause.Error()
			} else {
				body["detail"] = err.Error()
			}
		}
	}
	c.JSON(status, body)
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// respondBindError reports a request body or parameter that failed binding.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, len(verrs))
		for i, fe := range verrs {
			details[i] = fieldError{Field: fieldName(fe), Message: describe(fe)}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": details})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
}

func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return fe.StructField()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a UUID"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "phone":
		return "must be a valid phone number"
	default:
		if allowed, ok := enumValues[fe.Tag()]; ok {
			return "must be one of " + allowed
		}
		return "is invalid"
	}
}
