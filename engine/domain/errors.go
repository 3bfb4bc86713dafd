package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for client input failures.
var (
	ErrMissingEmbedding = errors.New("missing or invalid 'embedding' in request body")
	ErrInvalidLimit     = errors.New("invalid 'limit'")
	ErrMissingQuery     = errors.New("missing query parameter 'q'")
	ErrInvalidBody      = errors.New("invalid request body")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Sentinel errors for backing-data failures.
var (
	ErrIndexLoad    = errors.New("index load failed")
	ErrIndexSearch  = errors.New("index search failed")
	ErrCatalogFetch = errors.New("catalog fetch failed")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return e.Wrapped.Error()
	}
	return fmt.Sprintf("%s (%s=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// StatusCode maps an error to the HTTP status reported to the caller.
func StatusCode(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.As(err, &ve),
		errors.Is(err, ErrMissingEmbedding),
		errors.Is(err, ErrMissingQuery),
		errors.Is(err, ErrInvalidLimit),
		errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
