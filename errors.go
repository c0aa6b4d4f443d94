package perfrun

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include a malformed comparison table, unreadable results or missing tools.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// BuildFailureError is returned when the integration test build failed and
// failures are enforced (exit code 1).
type BuildFailureError struct {
	BuildTarget string
	ExitCode    int
}

func (e *BuildFailureError) Error() string {
	return fmt.Sprintf("build failure: %s exited with code %d", e.BuildTarget, e.ExitCode)
}

// NewBuildFailureError creates a new BuildFailureError
func NewBuildFailureError(buildTarget string, exitCode int) *BuildFailureError {
	return &BuildFailureError{BuildTarget: buildTarget, ExitCode: exitCode}
}

// IsBuildFailureError checks if the error is or wraps a BuildFailureError
func IsBuildFailureError(err error) bool {
	var buildErr *BuildFailureError
	return err != nil && errors.As(err, &buildErr)
}
