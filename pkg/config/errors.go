package config

import (
	"errors"
	"fmt"
)

// ErrorKind classifies configuration failures. Both kinds are fatal: a run
// aborts before any artifact is written or process invoked.
type ErrorKind string

const (
	// ErrorMalformed indicates a structurally invalid document.
	ErrorMalformed ErrorKind = "malformed"

	// ErrorUnknownEnvironment indicates a lookup for an environment name
	// absent from the document.
	ErrorUnknownEnvironment ErrorKind = "unknown_environment"
)

// Error is a classified configuration error.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[config:%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[config:%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewMalformedError wraps a parse or validation failure.
func NewMalformedError(message string, err error) *Error {
	return &Error{Kind: ErrorMalformed, Message: message, Err: err}
}

// NewUnknownEnvironmentError reports a lookup miss.
func NewUnknownEnvironmentError(name string) *Error {
	return &Error{
		Kind:    ErrorUnknownEnvironment,
		Message: fmt.Sprintf("environment %q not found in configuration document", name),
	}
}

// IsMalformed returns true for malformed-document errors.
func IsMalformed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorMalformed
}

// IsUnknownEnvironment returns true for unknown-environment errors.
func IsUnknownEnvironment(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorUnknownEnvironment
}
