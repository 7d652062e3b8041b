package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoRemedy marks a step that has no automatic fix for an unsatisfied state.
	ErrNoRemedy = errors.New("no automatic remedy available")
	// ErrNotConverged reports that verification observed a state that still differs from the desired one.
	ErrNotConverged = errors.New("state did not converge")
)

// ParseError represents a plan file parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConfigurationError captures invalid step declarations or plan documents.
// It is always raised before any system state is touched.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

// NewConfigurationError constructs a ConfigurationError.
func NewConfigurationError(field, message string, err error) error {
	return &ConfigurationError{Field: field, Message: message, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProbeError represents a failure while observing the current state of a step.
type ProbeError struct {
	StepID string
	Err    error
}

// NewProbeError constructs a ProbeError.
func NewProbeError(stepID string, err error) error {
	return &ProbeError{StepID: stepID, Err: err}
}

func (e *ProbeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("probe failed for step %s: %v", e.StepID, e.Err)
}

// Unwrap exposes the root error.
func (e *ProbeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTimeout reports whether the probe exceeded its deadline.
func (e *ProbeError) IsTimeout() bool {
	return e != nil && errors.Is(e.Err, context.DeadlineExceeded)
}

// ApplyError represents a failure while mutating system state.
type ApplyError struct {
	StepID string
	Err    error
}

// NewApplyError constructs an ApplyError.
func NewApplyError(stepID string, err error) error {
	return &ApplyError{StepID: stepID, Err: err}
}

func (e *ApplyError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("apply failed for step %s: %v", e.StepID, e.Err)
}

// Unwrap exposes the root error.
func (e *ApplyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTimeout reports whether the apply exceeded its deadline.
func (e *ApplyError) IsTimeout() bool {
	return e != nil && errors.Is(e.Err, context.DeadlineExceeded)
}

// VerifyError represents a failed post-apply verification, either because
// re-observation errored or because the state did not converge.
type VerifyError struct {
	StepID string
	Err    error
}

// NewVerifyError constructs a VerifyError.
func NewVerifyError(stepID string, err error) error {
	return &VerifyError{StepID: stepID, Err: err}
}

func (e *VerifyError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("verify failed for step %s: %v", e.StepID, e.Err)
}

// Unwrap exposes the root error.
func (e *VerifyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTimeout reports whether verification exceeded its deadline.
func (e *VerifyError) IsTimeout() bool {
	return e != nil && errors.Is(e.Err, context.DeadlineExceeded)
}

// Kind names the error class for rendering. Unknown errors report "internal".
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var (
		cfgErr    *ConfigurationError
		parseErr  *ParseError
		probeErr  *ProbeError
		applyErr  *ApplyError
		verifyErr *VerifyError
	)

	switch {
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &probeErr):
		return "probe"
	case errors.As(err, &applyErr):
		return "apply"
	case errors.As(err, &verifyErr):
		return "verify"
	default:
		return "internal"
	}
}
