package contract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrClassification  = errors.New("classification failed")
	ErrHandler         = errors.New("handler failed")
	ErrSynthesis       = errors.New("synthesis failed")
)

// ValidationIssue describes one rejected assignment.
type ValidationIssue struct {
	Index  int
	Agent  string
	Reason string
}

// ValidationError reports every invalid assignment of a set at once.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("assignments[%d] agent=%q: %s", issue.Index, issue.Agent, issue.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Agents returns the offending agent names in assignment order.
func (e *ValidationError) Agents() []string {
	names := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		names = append(names, issue.Agent)
	}
	return names
}

// HandlerError wraps a failure raised by a single handler call.
type HandlerError struct {
	Agent string
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: agent=%s: %v", ErrHandler, e.Agent, e.Err)
}

func (e *HandlerError) Unwrap() []error {
	return []error{ErrHandler, e.Err}
}
