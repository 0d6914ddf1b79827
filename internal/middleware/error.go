package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/medscan/medscan-api/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// StatusCode maps an error to the HTTP status reported to clients.
func StatusCode(err error) int {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}

	switch apperrors.CodeOf(err) {
	case apperrors.ErrBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperrors.ErrRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrAIUnavailable, apperrors.ErrAIStatus, apperrors.ErrAIMalformed, apperrors.ErrCircuitOpen:
		return http.StatusBadGateway
	case apperrors.ErrAITimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders the last error attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		traceID := GetRequestID(c)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("trace_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}

		status, body := NewErrorResponse(c, c.Errors.Last().Err)
		c.JSON(status, body)
	}
}

// NewErrorResponse builds the status and body for err. Internal errors are not
// described to the client.
func NewErrorResponse(c *gin.Context, err error) (int, ErrorResponse) {
	status := StatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}

	return status, ErrorResponse{
		Code:    status,
		Message: message,
		TraceID: GetRequestID(c),
	}
}

func abortWithError(c *gin.Context, err error) {
	status, body := NewErrorResponse(c, err)
	c.AbortWithStatusJSON(status, body)
}
