// Package errors provides structured error handling with context propagation and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics, logging, and flash rendering.
type ErrorType string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates a referenced guild, category, channel, role or template is absent (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeUnauthenticated indicates a missing or expired session (HTTP 401)
	TypeUnauthenticated ErrorType = "unauthenticated"
	// TypeForbidden indicates the user lacks manage-guild access (HTTP 403)
	TypeForbidden ErrorType = "forbidden"
	// TypeAuth indicates the OAuth exchange failed (HTTP 502)
	TypeAuth ErrorType = "auth"
	// TypeExternal indicates the guild-management API rejected or timed out (HTTP 502)
	TypeExternal ErrorType = "external"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error is a typed failure. Message is for logs; MessageKey and MessageArgs
// name the localized text shown to the user.
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Context     map[string]any
	MessageKey  string
	MessageArgs []any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeUnauthenticated:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeAuth, TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// NotFoundError wraps a domain sentinel such as domain.ErrRoleNotFound so
// callers can still match it with errors.Is.
func NotFoundError(message string, cause error) *Error {
	return newError(TypeNotFound, message, cause)
}

func UnauthenticatedError(message string) *Error {
	return newError(TypeUnauthenticated, message, nil)
}

func ForbiddenError(message string) *Error {
	return newError(TypeForbidden, message, nil)
}

func AuthError(message string, cause error) *Error {
	return newError(TypeAuth, message, cause)
}

func ExternalError(message string, cause error) *Error {
	return newError(TypeExternal, message, cause)
}

func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// WithField adds a context field to the error (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithMessage sets the catalog key and arguments for the user-facing text.
func (e *Error) WithMessage(key string, args ...any) *Error {
	e.MessageKey = key
	e.MessageArgs = args
	return e
}

// Is reports whether err is a structured error of type t.
func Is(err error, t ErrorType) bool {
	var structuredErr *Error
	return errors.As(err, &structuredErr) && structuredErr.Type == t
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}
