// pkg/vmid_err/classification.go
//
// Error classification with exit codes for the rename workflow.

package vmid_err

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/shared"
)

// ErrorCategory classifies errors for appropriate handling
type ErrorCategory int

const (
	// CategoryInternal - bugs and unexpected system failures (exit 1)
	CategoryInternal ErrorCategory = iota
	// CategoryInvalidInput - bad menu choice or identifier (exit 1)
	CategoryInvalidInput
	// CategoryUserDeclined - operator did not confirm (exit 0)
	CategoryUserDeclined
	// CategoryMissingConfiguration - no config file for the old identifier (exit 1)
	CategoryMissingConfiguration
	// CategoryTargetExists - a config file for the new identifier already exists (exit 1)
	CategoryTargetExists
	// CategoryCommandFailure - a control plane command failed where policy makes it fatal (exit 1)
	CategoryCommandFailure
	// CategoryPartialFailure - the sequence completed but some steps failed (exit 3)
	CategoryPartialFailure
	// CategoryConfig - unreadable or invalid vmidctl configuration (exit 1)
	CategoryConfig
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryInvalidInput:
		return "invalid_input"
	case CategoryUserDeclined:
		return "user_declined"
	case CategoryMissingConfiguration:
		return "missing_configuration"
	case CategoryTargetExists:
		return "target_exists"
	case CategoryCommandFailure:
		return "command_failure"
	case CategoryPartialFailure:
		return "partial_failure"
	case CategoryConfig:
		return "config"
	default:
		return "internal"
	}
}

// ClassifiedError wraps an error with category and remediation info
type ClassifiedError struct {
	Category    ErrorCategory
	Message     string
	Cause       error
	Remediation []string
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Cause != nil && e.Cause.Error() != e.Message {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Remediation) > 0 {
		sb.WriteString("\n\nHow to fix:")
		for i, step := range e.Remediation {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}
	return sb.String()
}

// Unwrap returns the underlying error
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error category
func (e *ClassifiedError) ExitCode() int {
	switch e.Category {
	case CategoryUserDeclined:
		return shared.ExitOK
	case CategoryPartialFailure:
		return shared.ExitPartialFailure
	default:
		return shared.ExitFailure
	}
}

// GetExitCode extracts the exit code from any error chain.
// Returns 0 for nil and for expected user errors, 1 for unclassified errors.
func GetExitCode(err error) int {
	if err == nil {
		return shared.ExitOK
	}

	if IsExpectedUserError(err) {
		return shared.ExitOK
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.ExitCode()
	}
	return shared.ExitFailure
}

// CategoryOf returns the category of the first classified error in the chain.
func CategoryOf(err error) (ErrorCategory, bool) {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Category, true
	}
	return CategoryInternal, false
}

// Is reports whether err carries the given category.
func Is(err error, category ErrorCategory) bool {
	c, ok := CategoryOf(err)
	return ok && c == category
}

// NewInvalidInputError creates an error for a rejected menu choice or identifier
func NewInvalidInputError(message string, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryInvalidInput,
		Message:     message,
		Remediation: remediation,
	}
}

// NewUserDeclinedError marks an operation the operator chose not to run.
// It is an expected user error, so the process exits 0.
func NewUserDeclinedError(operation string) error {
	return NewExpectedError(&ClassifiedError{
		Category: CategoryUserDeclined,
		Message:  fmt.Sprintf("operation cancelled by user: %s", operation),
	})
}

// NewMissingConfigurationError reports that the old identifier has no config file.
func NewMissingConfigurationError(path string) error {
	return &ClassifiedError{
		Category: CategoryMissingConfiguration,
		Message:  fmt.Sprintf("configuration file %s not found", path),
		Remediation: []string{
			"Check the identifier with: vmidctl list",
			"Renaming resources on other cluster nodes is not supported",
		},
	}
}

// NewTargetExistsError reports that the new identifier is already taken.
func NewTargetExistsError(path string) error {
	return &ClassifiedError{
		Category:    CategoryTargetExists,
		Message:     fmt.Sprintf("configuration file %s already exists", path),
		Remediation: []string{"Choose an identifier that is not in use"},
	}
}

// NewCommandFailureError wraps a control plane failure that policy treats as fatal.
func NewCommandFailureError(message string, cause error) error {
	return &ClassifiedError{
		Category: CategoryCommandFailure,
		Message:  message,
		Cause:    cause,
	}
}

// NewPartialFailureError reports that the sequence ran to completion with failed steps.
func NewPartialFailureError(message string, cause error) error {
	return &ClassifiedError{
		Category:    CategoryPartialFailure,
		Message:     message,
		Cause:       cause,
		Remediation: []string{"Review the journal with: vmidctl logs"},
	}
}

// NewConfigError creates an error for unreadable or invalid configuration.
func NewConfigError(message string, cause error) error {
	return &ClassifiedError{
		Category: CategoryConfig,
		Message:  message,
		Cause:    cause,
	}
}
