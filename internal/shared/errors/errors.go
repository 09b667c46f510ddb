package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	ErrMissingParameter = errors.New("missing mandatory parameter")
	ErrMissingFiles     = errors.New("required input files missing")
	ErrAlreadyRunning   = errors.New("another provisioning run holds the lock")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// UsageError reports a missing or invalid invocation parameter.
// The CLI prints the usage text when it sees one of these.
type UsageError struct {
	Parameter string
	Message   string
}

func (e *UsageError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("usage error: %s: %s", e.Parameter, e.Message)
	}
	return fmt.Sprintf("usage error: %s is required", e.Parameter)
}

func (e *UsageError) Unwrap() error {
	return ErrMissingParameter
}

// NewUsageError creates a new usage error
func NewUsageError(parameter, message string) *UsageError {
	return &UsageError{Parameter: parameter, Message: message}
}

// PreconditionError lists every required input file that is absent.
// It is raised before any mutation happens.
type PreconditionError struct {
	Missing []string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("missing required files:\n  %s\nplace them in the invocation directory and re-run",
		strings.Join(e.Missing, "\n  "))
}

func (e *PreconditionError) Unwrap() error {
	return ErrMissingFiles
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(missing []string) *PreconditionError {
	return &PreconditionError{Missing: missing}
}

// StepError represents a failure in a provisioning step
type StepError struct {
	Step    string // e.g. "server-config", "vpn-service"
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %s failed: %s: %v", e.Step, e.Message, e.Err)
	}
	return fmt.Sprintf("step %s failed: %s", e.Step, e.Message)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError creates a new step error
func NewStepError(step, message string, err error) *StepError {
	return &StepError{Step: step, Message: message, Err: err}
}

// RenderError reports placeholder tokens left unresolved after template substitution
type RenderError struct {
	Path       string
	Unresolved []string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("template %s: unresolved tokens: %s", e.Path, strings.Join(e.Unresolved, ", "))
}

// NewRenderError creates a new render error
func NewRenderError(path string, unresolved []string) *RenderError {
	return &RenderError{Path: path, Unresolved: unresolved}
}

// IsUsage reports whether err is a usage/validation error
func IsUsage(err error) bool {
	return errors.Is(err, ErrMissingParameter)
}

// IsPrecondition reports whether err is a missing-input-files error
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrMissingFiles)
}
