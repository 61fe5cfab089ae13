package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for propagation policy. Configuration
// errors abort the run before any side effect; artifact, execution and
// policy errors are fatal to their cell only; the aggregate error is
// surfaced once at the end of a run with at least one failed cell.
type ErrorKind string

const (
	// ErrorKindMalformed indicates a structurally invalid configuration
	// document.
	ErrorKindMalformed ErrorKind = "malformed"

	// ErrorKindUnknownEnvironment indicates a lookup for an environment
	// name absent from the configuration document.
	ErrorKindUnknownEnvironment ErrorKind = "unknown_environment"

	// ErrorKindArtifact indicates a filesystem failure while writing a
	// variable file or backend descriptor.
	ErrorKindArtifact ErrorKind = "artifact"

	// ErrorKindExecution indicates a lifecycle stage that exited non-zero.
	ErrorKindExecution ErrorKind = "execution"

	// ErrorKindPolicy indicates a blocking policy violation.
	ErrorKindPolicy ErrorKind = "policy"

	// ErrorKindAggregate indicates that one or more cells failed.
	ErrorKindAggregate ErrorKind = "aggregate"
)

// Error is the classified error type used throughout the engine.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind

	// Message is the human-readable error message.
	Message string

	// Cloud and Module identify the failing cell, when applicable.
	Cloud  string
	Module string

	// Stage is the stage that failed, when applicable.
	Stage Stage

	// ExitCode is the child-process exit code for execution errors.
	ExitCode int

	// Output is captured child-process output for execution errors.
	Output string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Cloud != "" && e.Stage != "":
		return fmt.Sprintf("[%s] %s/%s stage %s: %s", e.Kind, e.Cloud, e.Module, e.Stage, e.message())
	case e.Cloud != "":
		return fmt.Sprintf("[%s] %s/%s: %s", e.Kind, e.Cloud, e.Module, e.message())
	default:
		return fmt.Sprintf("[%s] %s", e.Kind, e.message())
	}
}

func (e *Error) message() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can compare against sentinel kinds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewMalformedError creates a configuration error for an unparseable or
// structurally invalid document.
func NewMalformedError(message string, err error) *Error {
	return &Error{Kind: ErrorKindMalformed, Message: message, Err: err}
}

// NewUnknownEnvironmentError creates a configuration error for a lookup of
// an environment absent from the document.
func NewUnknownEnvironmentError(name string) *Error {
	return &Error{
		Kind:    ErrorKindUnknownEnvironment,
		Message: fmt.Sprintf("environment %q not found in configuration document", name),
	}
}

// NewArtifactError creates a cell-fatal error for a failed artifact write.
func NewArtifactError(cloud, module, message string, err error) *Error {
	return &Error{
		Kind:    ErrorKindArtifact,
		Message: message,
		Cloud:   cloud,
		Module:  module,
		Stage:   StageArtifacts,
		Err:     err,
	}
}

// NewExecutionError creates a cell-fatal error for a lifecycle stage that
// exited non-zero.
func NewExecutionError(cloud, module string, stage Stage, exitCode int, output string, err error) *Error {
	return &Error{
		Kind:     ErrorKindExecution,
		Message:  fmt.Sprintf("exit code %d", exitCode),
		Cloud:    cloud,
		Module:   module,
		Stage:    stage,
		ExitCode: exitCode,
		Output:   output,
		Err:      err,
	}
}

// NewPolicyError creates a cell-fatal error for a blocking policy violation.
func NewPolicyError(cloud, module, message string) *Error {
	return &Error{
		Kind:    ErrorKindPolicy,
		Message: message,
		Cloud:   cloud,
		Module:  module,
		Stage:   StagePolicy,
	}
}

// NewAggregateError creates the end-of-run error that drives the non-zero
// process exit code.
func NewAggregateError(failed, total int) *Error {
	return &Error{
		Kind:    ErrorKindAggregate,
		Message: fmt.Sprintf("%d of %d cells failed", failed, total),
	}
}

// IsConfiguration returns true for both configuration error kinds.
func IsConfiguration(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == ErrorKindMalformed || e.Kind == ErrorKindUnknownEnvironment
	}
	return false
}

// IsArtifact returns true if the error is an artifact error.
func IsArtifact(err error) bool {
	return hasKind(err, ErrorKindArtifact)
}

// IsExecution returns true if the error is an execution error.
func IsExecution(err error) bool {
	return hasKind(err, ErrorKindExecution)
}

// IsPolicy returns true if the error is a policy error.
func IsPolicy(err error) bool {
	return hasKind(err, ErrorKindPolicy)
}

// IsAggregate returns true if the error is the end-of-run aggregate.
func IsAggregate(err error) bool {
	return hasKind(err, ErrorKindAggregate)
}

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
