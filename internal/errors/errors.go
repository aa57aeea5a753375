// Package errors defines the service error taxonomy shared by all
// marketplace services and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and for HTTP status mapping.
type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeCapacity     Code = "CAPACITY"
	CodeConflict     Code = "CONFLICT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeRateLimit    Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL"
)

// ServiceError is an error with a taxonomy code, an HTTP status and a
// human-readable message suitable for direct display.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithCause attaches an underlying error.
func (e *ServiceError) WithCause(err error) *ServiceError {
	e.cause = err
	return e
}

// WithDetail attaches a structured detail for API responses.
func (e *ServiceError) WithDetail(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code Code, status int, format string, args ...interface{}) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: status,
	}
}

// Validation rejects malformed input before any mutation.
func Validation(format string, args ...interface{}) *ServiceError {
	return newError(CodeValidation, http.StatusBadRequest, format, args...)
}

// Capacity rejects an operation that would exceed a configured limit.
func Capacity(format string, args ...interface{}) *ServiceError {
	return newError(CodeCapacity, http.StatusConflict, format, args...)
}

// Conflict rejects an operation incompatible with current state.
func Conflict(format string, args ...interface{}) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, format, args...)
}

// NotFound reports an absent entity.
func NotFound(format string, args ...interface{}) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, format, args...)
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(format string, args ...interface{}) *ServiceError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, format, args...)
}

// Forbidden reports insufficient privileges.
func Forbidden(format string, args ...interface{}) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, format, args...)
}

// RateLimitExceeded reports request throttling.
func RateLimitExceeded(format string, args ...interface{}) *ServiceError {
	return newError(CodeRateLimit, http.StatusTooManyRequests, format, args...)
}

// Internal reports an unexpected failure.
func Internal(format string, args ...interface{}) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, format, args...)
}

// From extracts a ServiceError from err, wrapping unknown errors as internal.
func From(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return Internal("unexpected error").WithCause(err)
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code Code) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code == code
	}
	return false
}
