// Package errors provides the classified error type used across docwright.
// Categories drive CLI exit codes; fatal severity marks errors that abort
// the whole build invocation (graph update, consistency check, worker-task
// failure).
package errors

import (
	"errors"
	"fmt"
)

// Category is the broad classification of a build error.
type Category string

const (
	// CategoryConfig represents user-facing configuration errors.
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"

	// CategoryGraph represents dependency-graph update and persistence
	// failures.
	CategoryGraph       Category = "graph"
	CategoryConsistency Category = "consistency"

	// CategoryWrite represents writer and worker-task failures during the
	// write phase.
	CategoryWrite  Category = "write"
	CategoryFinish Category = "finish"

	CategoryInternal Category = "internal"
)

// Severity indicates the impact level of an error.
type Severity string

const (
	SeverityFatal Severity = "fatal" // aborts the invocation
	SeverityError Severity = "error" // fails the current operation
)

// BuildError is a classified error with an optional wrapped cause.
type BuildError struct {
	Category Category
	Severity Severity
	Message  string
	Cause    error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Severity, e.Message)
}

func (e *BuildError) Unwrap() error { return e.Cause }

// New creates a classified error.
func New(category Category, severity Severity, message string) *BuildError {
	return &BuildError{Category: category, Severity: severity, Message: message}
}

// Fatal creates a fatal classified error wrapping cause.
func Fatal(category Category, message string, cause error) *BuildError {
	return &BuildError{Category: category, Severity: SeverityFatal, Message: message, Cause: cause}
}

// AsBuildError extracts a BuildError from err's chain.
func AsBuildError(err error) (*BuildError, bool) {
	var be *BuildError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsFatal reports whether err carries fatal severity.
func IsFatal(err error) bool {
	if be, ok := AsBuildError(err); ok {
		return be.Severity == SeverityFatal
	}
	return false
}
