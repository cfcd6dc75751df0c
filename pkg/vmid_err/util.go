// pkg/vmid_err/util.go

package vmid_err

import (
	"errors"
	"strings"
)

// UserError marks an error as expected: the operator caused it and nothing is broken.
type UserError struct {
	cause error
}

func (e *UserError) Error() string { return e.cause.Error() }

func (e *UserError) Unwrap() error { return e.cause }

// NewExpectedError wraps an error for softer UX handling.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &UserError{cause: err}
}

// IsExpectedUserError checks if the error is marked as expected.
func IsExpectedUserError(err error) bool {
	var e *UserError
	return errors.As(err, &e)
}

// ExtractSummary extracts a concise error summary from full command output.
func ExtractSummary(output string, maxCandidates int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "no output"
	}

	lines := strings.Split(trimmed, "\n")
	var candidates []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") ||
			strings.Contains(lower, "failed") ||
			strings.Contains(lower, "cannot") ||
			strings.Contains(lower, "unable") ||
			strings.Contains(lower, "does not exist") ||
			strings.Contains(lower, "timeout") {
			candidates = append(candidates, line)
		}
	}

	if len(candidates) > 0 {
		if len(candidates) > maxCandidates {
			candidates = candidates[:maxCandidates]
		}
		return strings.Join(candidates, " - ")
	}

	// fall back to the last non-empty line, which is where qm/pct put their verdict
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
