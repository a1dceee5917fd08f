package respond

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobassist/internal/backend"
	"jobassist/internal/shared/telemetry"
)

// Error codes used in the envelope.
const (
	CodeValidation         = "validation_error"
	CodeBackend            = "backend_error"
	CodeBackendUnavailable = "backend_unavailable"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal"
	CodeRateLimited        = "rate_limited"
	CodeSessionClosed      = "session_closed"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if conversationID := c.GetString("conversationId"); conversationID != "" {
		fields["conversation_id"] = conversationID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Backend maps an error from the assistant backend to the envelope. It
// reports false when err did not come from the backend.
func Backend(c *gin.Context, err error) bool {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, backend.ErrBackendUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		Error(c, http.StatusServiceUnavailable, CodeBackendUnavailable, "The assistant service is unavailable. Please try again shortly.", nil)
	case errors.Is(err, backend.ErrInvalidInput):
		Error(c, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusNotFound {
			Error(c, http.StatusNotFound, CodeNotFound, apiErr.Detail, nil)
			return true
		}
		Error(c, http.StatusBadGateway, CodeBackend, apiErr.Error(), gin.H{"upstreamStatus": apiErr.StatusCode})
	case errors.Is(err, backend.ErrInvalidResponse):
		Error(c, http.StatusBadGateway, CodeBackend, err.Error(), nil)
	case errors.Is(err, backend.ErrTransport):
		Error(c, http.StatusBadGateway, CodeBackend, "Could not reach the assistant service. Please try again.", nil)
	default:
		return false
	}
	return true
}

// Internal sends a 500 without leaking err to the client.
func Internal(c *gin.Context, message string, err error) {
	telemetry.Error("http.internal", map[string]any{
		"request_id": c.GetString("requestId"),
		"path":       c.Request.URL.Path,
		"error":      err,
	})
	Error(c, http.StatusInternalServerError, CodeInternal, message, nil)
}
