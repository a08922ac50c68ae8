// Package errors provides application-level error types and utilities.
// It defines the error taxonomy surfaced by the access mediator: validation, not found,
// routing, capacity, transient and the generic conflict/forbidden/internal kinds.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation_error"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeRouting          ErrorType = "routing_error"
	ErrorTypeCapacityExceeded ErrorType = "capacity_exceeded"
	ErrorTypeTransient        ErrorType = "transient_error"
	ErrorTypeConflict         ErrorType = "conflict"
	ErrorTypeForbidden        ErrorType = "forbidden"
	ErrorTypeInternal         ErrorType = "internal_error"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`

	cause error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Retryable reports whether the failure may succeed when re-driven.
func (e *AppError) Retryable() bool {
	return e.Type == ErrorTypeTransient
}

func newAppError(t ErrorType, code int, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    t,
		Message: message,
		Code:    code,
		Details: detail,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, details)
}

// NewRoutingError creates an error for an access pattern the boundary never resolves.
func NewRoutingError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeRouting, http.StatusBadRequest, message, details)
}

// NewCapacityExceededError creates an error for an exhausted pool.
func NewCapacityExceededError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeCapacityExceeded, http.StatusConflict, message, details)
}

// NewTransientError wraps a retriable infrastructure fault.
func NewTransientError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeTransient, http.StatusServiceUnavailable, message, nil)
	e.cause = cause
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, message, details)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, message, details)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details)
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func hasType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsRoutingError checks if the error is a routing error
func IsRoutingError(err error) bool {
	return hasType(err, ErrorTypeRouting)
}

// IsCapacityExceededError checks if the error is a capacity error
func IsCapacityExceededError(err error) bool {
	return hasType(err, ErrorTypeCapacityExceeded)
}

// IsTransientError checks if the error is a retriable infrastructure error
func IsTransientError(err error) bool {
	return hasType(err, ErrorTypeTransient)
}

// IsForbiddenError checks if the error is a forbidden error
func IsForbiddenError(err error) bool {
	return hasType(err, ErrorTypeForbidden)
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// MySQL duplicate entry error
	if strings.Contains(errStr, "Duplicate entry") || strings.Contains(errStr, "duplicate key") {
		return true
	}
	// PostgreSQL / SQLite unique violation
	if strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	return false
}

// IsTransientDBError checks if a database error is worth re-driving: lock waits,
// deadlocks, a busy SQLite file or a dropped connection.
func IsTransientDBError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{
		"deadlock",
		"lock wait timeout",
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"bad connection",
		"connection reset",
		"connection refused",
		"broken pipe",
	} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// FromDB classifies a raw database error: transient faults become TransientError,
// anything else is wrapped with the given message.
func FromDB(message string, err error) error {
	if err == nil {
		return nil
	}
	if IsTransientDBError(err) {
		return NewTransientError(message, err)
	}
	return fmt.Errorf("%s: %w", message, err)
}
