package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the OAuth2 server and entitlement sync
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")

	// Token errors
	ErrInvalidAccessToken  = errors.New("invalid or expired access token")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	// Client errors
	ErrInvalidClient      = errors.New("invalid client")
	ErrInvalidRedirectURI = errors.New("invalid redirect URI")

	// Authorization errors
	ErrInvalidGrant    = errors.New("invalid grant")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrForbidden       = errors.New("insufficient permissions")
	ErrInvalidSSOToken = errors.New("invalid SSO token")

	// Store errors
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")

	// General errors
	ErrInternal = errors.New("internal error")
)

// ValidationError is malformed or missing input (400)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// AuthenticationError is bad credentials or a bad token (401)
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

func (e *AuthenticationError) Unwrap() error { return ErrUnauthenticated }

// AuthorizationError is an authenticated caller without the required role (403)
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

// NotFoundError (404)
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError is a user-actionable unique key violation (409).
// The internal enrollment upsert race is never surfaced as one.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrDuplicate }

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func Conflict(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func Authentication(message string) error {
	return &AuthenticationError{Message: message}
}

func Authorization(message string) error {
	return &AuthorizationError{Message: message}
}

// HTTPStatus maps an error chain onto a response status code
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidGrant), errors.Is(err, ErrInvalidRedirectURI):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidAccessToken), errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrInvalidClient), errors.Is(err, ErrInvalidSSOToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
