// Package handlers contains the HTTP handlers of the query and
// recommendation API
package handlers

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/platewise/engine/internal/infrastructure/http/middleware"
	"github.com/platewise/engine/pkg/errors"
	"go.uber.org/zap"
)

// APIResponse is the standard response envelope
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, APIResponse{Success: true, Data: data})
}

// respondError maps err onto the envelope. Unknown errors become a 500
// without leaking their text.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := errors.Wrap(err, "An unexpected error occurred")
	status := appErr.StatusCode()

	if status >= 500 {
		logger.Error("Request failed",
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
			zap.String("stack", appErr.StackTrace),
		)
	}
	_ = c.Error(err)

	resp := APIResponse{
		Success: false,
		Error:   appErr.Message,
		Code:    string(appErr.Code),
	}
	if status < 500 {
		resp.Message = appErr.Details
		if len(appErr.Metadata) > 0 {
			resp.Details = appErr.Metadata
		}
	}
	c.AbortWithStatusJSON(status, resp)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validateStruct runs struct tags and converts failures to a
// VALIDATION_FAILED error.
func validateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewValidationError(err.Error())
	}

	out := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, errors.ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return errors.NewValidationErrors(out)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
