package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness. The Code field is
// serialised as "reason" to match the platform's error contract.
type Error struct {
	Code    string `json:"reason"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors matching the platform error taxonomy.
var (
	ErrAuthRequired       = New("auth_required", http.StatusUnauthorized, "authentication required")
	ErrInvalidCredentials = New("auth_required", http.StatusUnauthorized, "invalid email or password")
	ErrForbidden          = New("forbidden", http.StatusForbidden, "forbidden")
	ErrMissingParams      = New("missing_params", http.StatusBadRequest, "missing required parameters")
	ErrInvalidPayload     = New("invalid_payload", http.StatusBadRequest, "invalid payload")
	ErrScopeRequired      = New("scope_required", http.StatusBadRequest, "no tenant scope available for write")
	ErrNotFound           = New("not_found", http.StatusNotFound, "resource not found")
	ErrConflict           = New("conflict", http.StatusConflict, "conflict")
	ErrStorageUnavailable = New("storage_unavailable", http.StatusServiceUnavailable, "backing store unavailable")
	ErrInternal           = New("internal_error", http.StatusInternalServerError, "internal server error")

	// ErrCacheMiss is a sentinel for cache lookups, never returned to clients.
	ErrCacheMiss = errors.New("cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
