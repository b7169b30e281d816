package errors

import (
	"errors"
	"fmt"
)

// Domain error types for the scoring engine

var (
	// ErrMalformedInput indicates a structurally invalid profile record or identifier
	ErrMalformedInput = errors.New("malformed input")

	// ErrInvalidInput indicates invalid parameters passed by a caller
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrCanceled indicates work was not started because the caller canceled
	ErrCanceled = errors.New("canceled")
)

// Fetch-specific errors, surfaced by the profile fetch capability

var (
	// ErrNotFound indicates the profile does not exist on the platform
	ErrNotFound = errors.New("profile not found")

	// ErrRateLimited indicates the upstream API refused the request due to rate limits
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrAuth indicates the upstream API rejected our credentials
	ErrAuth = errors.New("authentication failed")

	// ErrTransient indicates a temporary upstream failure that may succeed on retry
	ErrTransient = errors.New("transient upstream failure")
)

// Model-specific errors

var (
	// ErrModelUnavailable indicates the scoring model is missing or inference failed
	ErrModelUnavailable = errors.New("scoring model unavailable")
)

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets callers match validation failures against ErrMalformedInput
func (e *ValidationError) Unwrap() error {
	return ErrMalformedInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Unwrap exposes all wrapped errors to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}
