package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type for clock API operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeControlsHidden indicates an edit was attempted in focused mode.
	ErrCodeControlsHidden ErrorCode = "CONTROLS_HIDDEN"
	// ErrCodeResolverBusy indicates a time resolution is already in flight.
	ErrCodeResolverBusy ErrorCode = "RESOLVER_BUSY"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeServiceUnavailable indicates the service is not available.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

var httpStatus = map[ErrorCode]int{
	ErrCodeInvalidArgument:    http.StatusBadRequest,
	ErrCodeControlsHidden:     http.StatusConflict,
	ErrCodeResolverBusy:       http.StatusConflict,
	ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status for the code.
func (c ErrorCode) HTTPStatus() int {
	if status, ok := httpStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ClockError represents a structured error for clock API operations.
type ClockError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *ClockError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ClockError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *ClockError) WithContext(key string, value any) *ClockError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string, cause error) *ClockError {
	return &ClockError{Code: ErrCodeInvalidArgument, Message: msg, Cause: cause}
}

// ControlsHidden creates a controls hidden error.
func ControlsHidden(cause error) *ClockError {
	return &ClockError{Code: ErrCodeControlsHidden, Message: "exit focused mode to edit the clock", Cause: cause}
}

// ResolverBusy creates a resolver busy error.
func ResolverBusy(cause error) *ClockError {
	return &ClockError{Code: ErrCodeResolverBusy, Message: "a time phrase is already being resolved", Cause: cause}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *ClockError {
	return &ClockError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string, cause error) *ClockError {
	return &ClockError{Code: ErrCodeServiceUnavailable, Message: msg, Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string, cause error) *ClockError {
	return &ClockError{Code: ErrCodeTimeout, Message: msg, Cause: cause}
}

// Internal creates an internal error.
func Internal(cause error) *ClockError {
	return &ClockError{Code: ErrCodeInternal, Message: "internal error", Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *ClockError {
	return &ClockError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error, or any error it wraps, has a specific code.
func IsCode(err error, code ErrorCode) bool {
	var clockErr *ClockError
	if stderrors.As(err, &clockErr) {
		return clockErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a ClockError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var clockErr *ClockError
	if stderrors.As(err, &clockErr) {
		return clockErr.Code
	}
	return defaultCode
}
