package common

import (
	"fmt"
	"net/http"
)

// HTTPError is implemented by errors that map onto a specific response status.
// PublicMessage is what the client sees, which may differ from Error().
type HTTPError interface {
	error
	HTTPStatus() int
	PublicMessage() string
}

var (
	_ HTTPError = (*ValidationError)(nil)
	_ HTTPError = (*UnauthorizedError)(nil)
	_ HTTPError = (*UnavailableError)(nil)
	_ HTTPError = (*RateLimitedError)(nil)
)

// ValidationError rejects malformed or incomplete input.
type ValidationError struct {
	Message string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string         { return e.Message }
func (e *ValidationError) HTTPStatus() int       { return http.StatusBadRequest }
func (e *ValidationError) PublicMessage() string { return e.Message }

// UnauthorizedError rejects a caller without a usable API key.
type UnauthorizedError struct {
	Message string
}

// NewUnauthorizedError creates a new UnauthorizedError.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

func (e *UnauthorizedError) HTTPStatus() int       { return http.StatusUnauthorized }
func (e *UnauthorizedError) PublicMessage() string { return e.Error() }

// UnavailableError means a dependency (queue, dispatcher, store) cannot serve
// the request right now. The cause is logged, never returned to the client.
type UnavailableError struct {
	Service string
	Err     error
}

// NewUnavailableError creates a new UnavailableError.
func NewUnavailableError(service string, err error) *UnavailableError {
	return &UnavailableError{Service: service, Err: err}
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UnavailableError) Unwrap() error          { return e.Err }
func (e *UnavailableError) HTTPStatus() int       { return http.StatusServiceUnavailable }
func (e *UnavailableError) PublicMessage() string { return e.Service + " unavailable" }

// RateLimitedError is returned when a caller exhausts its request budget.
type RateLimitedError struct{}

func (*RateLimitedError) Error() string         { return "rate limit exceeded" }
func (*RateLimitedError) HTTPStatus() int       { return http.StatusTooManyRequests }
func (*RateLimitedError) PublicMessage() string { return "rate limit exceeded" }
