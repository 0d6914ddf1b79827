package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrUnknown ErrorCode = iota + 1000
	ErrBadRequest
	ErrInternal
	ErrPayloadTooLarge
)

// AI extractor error codes
const (
	ErrAIUnavailable ErrorCode = iota + 2000
	ErrAITimeout
	ErrAIStatus
	ErrAIMalformed
	ErrCircuitOpen
	ErrRateLimited
)

var codeNames = map[ErrorCode]string{
	ErrUnknown:         "unknown",
	ErrBadRequest:      "bad_request",
	ErrInternal:        "internal",
	ErrPayloadTooLarge: "payload_too_large",
	ErrAIUnavailable:   "ai_unavailable",
	ErrAITimeout:       "ai_timeout",
	ErrAIStatus:        "ai_status",
	ErrAIMalformed:     "ai_malformed",
	ErrCircuitOpen:     "circuit_open",
	ErrRateLimited:     "rate_limited",
}

// String returns a stable snake_case name, used for metric labels and fallback reasons.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code_%d", int(c))
}

// CodeOf returns the code of the first AppError in err's chain, or ErrUnknown.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrUnknown
}

// Is reports whether err carries code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// New builds an AppError with an explicit code.
func New(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error constructors
func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func PayloadTooLarge(limit int64) *AppError {
	return &AppError{
		Code:    ErrPayloadTooLarge,
		Message: fmt.Sprintf("request body exceeds %d bytes", limit),
	}
}

func AIUnavailable(err error) *AppError {
	return New(ErrAIUnavailable, "ai extractor unavailable", err)
}

func AITimeout(err error) *AppError {
	return New(ErrAITimeout, "ai extractor timed out", err)
}

func AIStatus(status int, body string) *AppError {
	return New(ErrAIStatus, fmt.Sprintf("ai extractor returned status %d", status), fmt.Errorf("%s", body))
}

func AIMalformed(err error) *AppError {
	return New(ErrAIMalformed, "ai extractor returned a malformed response", err)
}

func CircuitOpen(name string) *AppError {
	return New(ErrCircuitOpen, fmt.Sprintf("circuit breaker %s is open", name), nil)
}

func RateLimited(err error) *AppError {
	return New(ErrRateLimited, "ai extractor rate limit exceeded", err)
}
