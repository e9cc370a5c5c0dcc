package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller's identity token is missing,
	// malformed, expired or otherwise fails verification. Callers never learn
	// which of those it was.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotConnected is returned when the user has no active exchange credentials.
	ErrNotConnected = errors.New("not connected")

	// ErrIntegrity is returned when stored credential ciphertext fails
	// authentication. It indicates tampering or a wrong master key and is never retried.
	ErrIntegrity = errors.New("credential integrity check failed")

	// ErrPersistence is returned when the credential or trade store fails.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError reports a missing or malformed input field. It is raised
// before any side effect takes place.
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

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ExchangeRejectedError is returned when the exchange declines an order.
// Message carries the exchange's own text verbatim.
type ExchangeRejectedError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ExchangeRejectedError) Error() string {
	return e.Message
}
