package ir

import (
	"errors"
	"fmt"
)

// SerializationError indicates that canonical hashing was given input
// that has no canonical encoding (unsupported Go type, NaN, Inf).
type SerializationError struct {
	Reason string
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("not canonically serializable: %s", e.Reason)
}

// IsSerializationError reports whether err is a SerializationError.
// Uses errors.As to handle wrapped errors.
func IsSerializationError(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}

// ValidationError indicates a malformed record or command payload.
// Always surfaced to the caller, never retried silently.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation: %s", e.Message)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
