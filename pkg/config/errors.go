package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredField indicates a required setting is absent
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidValue indicates a setting has an unusable value
	ErrInvalidValue = errors.New("invalid field value")
)

// ValidationError wraps configuration validation errors with the
// offending field.
type ValidationError struct {
	Field string
	Err   error
}

// Error returns the formatted error message
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field '%s': %v", e.Field, e.Err)
}

// Unwrap returns the underlying error
func (e *ValidationError) Unwrap() error {
	return e.Err
}
