package common

import (
	"errors"
	"net/http"
)

// AppError is the error currency of the service: a machine-readable code, a
// client-safe message, and the HTTP status the edge should answer with. The
// wrapped Err is for logs only and never reaches the response body.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError reports whether err carries an AppError anywhere in its chain.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ErrUnauthenticated signals that no verified identity accompanied the request.
func ErrUnauthenticated() *AppError {
	return NewAppError("UNAUTHORIZED", "missing or invalid credentials", http.StatusUnauthorized, nil)
}

// ErrForbidden signals a verified identity without portal access. Distinct
// from ErrUnauthenticated: the caller is known but not allowed in.
func ErrForbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError("FORBIDDEN", message, http.StatusForbidden, nil)
}

// ErrValidation rejects malformed input before any storage call is made.
func ErrValidation(message string, details any) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, HTTPStatus: http.StatusBadRequest, Details: details}
}

// ErrStorage wraps a collaborator failure behind a generic user-facing message.
func ErrStorage(err error) *AppError {
	return NewAppError("INTERNAL", "storage unavailable", http.StatusInternalServerError, err)
}
