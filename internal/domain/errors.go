// Package domain contains domain errors and user-facing message helpers
// used throughout the application.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrSessionInvalid    = errors.New("session is no longer valid")
	ErrInvalidResponse   = errors.New("response format is invalid or empty")
	ErrNoCredential      = errors.New("no stored credential")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrEmptyBarcode      = errors.New("barcode cannot be empty")
	ErrInvalidCommand    = errors.New("invalid command")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrHubNotRunning     = errors.New("event hub is not running")
	ErrSubscriberClosed  = errors.New("subscriber is closed")
	ErrKeystoreClosed    = errors.New("keystore is closed")
	ErrStockMoveInactive = errors.New("no stock move in progress")
)

// Error codes for client responses.
const (
	ErrCodeInvalidCommand   = "INVALID_COMMAND"
	ErrCodeInvalidPayload   = "INVALID_PAYLOAD"
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeBackendError     = "BACKEND_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// StatusError reports an unexpected HTTP status from the warehouse backend.
type StatusError struct {
	Op   string // Operation that failed
	Code int    // HTTP status code
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected response status: %d", e.Op, e.Code)
}

// NewStatusError creates a new StatusError.
func NewStatusError(op string, code int) *StatusError {
	return &StatusError{Op: op, Code: code}
}

// BackendError represents a transport-level error talking to the backend.
type BackendError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a new BackendError.
func NewBackendError(op string, err error) *BackendError {
	return &BackendError{Op: op, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
