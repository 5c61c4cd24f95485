package domain

import (
	"fmt"
	"strings"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ConflictError represents a uniqueness violation: a draft or published
// variant that already exists for the targeted (document, locale, status).
type ConflictError struct {
	Resource string
}

func (e ConflictError) Error() string {
	if e.Resource == "" {
		return "already exists"
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e ConflictError) Is(target error) bool {
	_, ok := target.(ConflictError)
	if ok {
		return true
	}
	_, ok = target.(*ConflictError)
	return ok
}

// ErrConflict is the sentinel error for uniqueness violations.
var ErrConflict = ConflictError{}

// ValidationError carries per-problem messages from schema validation or
// snapshot envelope checks.
type ValidationError struct {
	Problems []string
}

func (e ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ErrValidation is the sentinel error for payload validation failures.
var ErrValidation = ValidationError{}

// PolicyViolationError signals an operation blocked by the versioning
// policy, e.g. publishing without approval when approval is required.
type PolicyViolationError struct {
	Reason string
}

func (e PolicyViolationError) Error() string {
	if e.Reason == "" {
		return "policy violation"
	}
	return fmt.Sprintf("policy violation: %s", e.Reason)
}

func (e PolicyViolationError) Is(target error) bool {
	_, ok := target.(PolicyViolationError)
	if ok {
		return true
	}
	_, ok = target.(*PolicyViolationError)
	return ok
}

// ErrPolicyViolation is the sentinel error for policy-blocked operations.
var ErrPolicyViolation = PolicyViolationError{}

// DriverError wraps a persistence failure with the operation and document it
// happened on. It is never retried at this layer.
type DriverError struct {
	Op         string
	DocumentID string
	Err        error
}

func (e DriverError) Error() string {
	if e.DocumentID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: document %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e DriverError) Unwrap() error { return e.Err }

func (e DriverError) Is(target error) bool {
	_, ok := target.(DriverError)
	if ok {
		return true
	}
	_, ok = target.(*DriverError)
	return ok
}

// ErrDriver is the sentinel error for persistence failures.
var ErrDriver = DriverError{}
