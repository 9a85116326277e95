// Package domain provides the event model and canonical error types for the
// serendipity trace engine.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of an engine error.
type ErrorType string

const (
	// ErrorTypeInvalidScore indicates a score field outside [0,1].
	ErrorTypeInvalidScore ErrorType = "invalid_score"

	// ErrorTypeInvalidRequest indicates a malformed or invalid request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeNotFound indicates a resource was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeNoData indicates a query over history that was never recorded.
	ErrorTypeNoData ErrorType = "no_data"

	// ErrorTypeStageOrder indicates a stage logged out of canonical order
	// while strict ordering is enforced.
	ErrorTypeStageOrder ErrorType = "stage_order"
)

// Error is the canonical error returned by engine operations. Callers can
// branch on Type with errors.As; HTTP surfaces map it with HTTPStatusCode.
type Error struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Param is the parameter that caused the error (if applicable)
	Param string `json:"param,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Param, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidScore, ErrorTypeInvalidRequest, ErrorTypeStageOrder:
		return http.StatusBadRequest
	case ErrorTypeNotFound, ErrorTypeNoData:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrInvalidScore creates an invalid_score error for a named score field.
func ErrInvalidScore(param string, value float64) *Error {
	return &Error{
		Type:    ErrorTypeInvalidScore,
		Message: fmt.Sprintf("%s must be in [0,1], got %g", param, value),
		Param:   param,
	}
}

// ErrNotFound creates a not_found error.
func ErrNotFound(format string, args ...any) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ErrNoData creates a no_data error.
func ErrNoData(format string, args ...any) *Error {
	return &Error{Type: ErrorTypeNoData, Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidRequest creates an invalid_request error.
func ErrInvalidRequest(format string, args ...any) *Error {
	return &Error{Type: ErrorTypeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// ErrStageOrder creates a stage_order error.
func ErrStageOrder(format string, args ...any) *Error {
	return &Error{Type: ErrorTypeStageOrder, Message: fmt.Sprintf(format, args...)}
}
