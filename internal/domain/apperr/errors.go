// Package apperr defines the error taxonomy surfaced by claim operations.
// Every type matches one sentinel via errors.Is so callers can branch on the
// category without type assertions.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermission is matched by PermissionError
	ErrPermission = errors.New("permission denied")

	// ErrInvalidTransition is matched by InvalidTransitionError
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrValidation is matched by ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrConcurrentModification is matched by ConcurrentModificationError
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrNotFound is matched by NotFoundError
	ErrNotFound = errors.New("not found")

	// ErrDependencyUnavailable is matched by DependencyUnavailableError
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// PermissionError is returned when the role or ownership check fails.
// It is never retried automatically.
type PermissionError struct {
	Transition string
	ActorID    string
	Role       string
	Required   []string
	Reason     string
}

func (e *PermissionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "permission denied: actor %q (role %q) may not %s", e.ActorID, e.Role, e.Transition)
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if len(e.Required) > 0 {
		fmt.Fprintf(&b, " (requires one of: %s)", strings.Join(e.Required, ", "))
	}
	return b.String()
}

// Is reports whether target is ErrPermission
func (e *PermissionError) Is(target error) bool {
	return target == ErrPermission
}

// InvalidTransitionError is returned when the requested edge does not exist
// from the claim's current state.
type InvalidTransitionError struct {
	Transition string
	From       string
	Reason     string
	Cause      error
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition: cannot %s from state %s", e.Transition, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is reports whether target is ErrInvalidTransition
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Unwrap exposes the state machine error, if any
func (e *InvalidTransitionError) Unwrap() error {
	return e.Cause
}

// FieldError names one failing field and why
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError collects every domain rule a payload broke.
type ValidationError struct {
	Fields []FieldError
}

// NewValidation creates a ValidationError with a single field
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

// Add appends a field failure
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// Merge appends the fields of another validation error
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	e.Fields = append(e.Fields, other.Fields...)
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns e as an error when it holds failures, nil otherwise
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConcurrentModificationError is returned when the snapshot changed between
// read and write. Callers should re-read and retry; the core never retries.
type ConcurrentModificationError struct {
	ClaimID         string
	ExpectedVersion int64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification: claim %s is no longer at version %d", e.ClaimID, e.ExpectedVersion)
}

// Is reports whether target is ErrConcurrentModification
func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// NotFoundError is returned when a claim, questionnaire, section or
// document id does not resolve. Unknown actors are a PermissionError.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DependencyUnavailableError wraps a failure of an upstream collaborator
// (claim store, document store, directory). The outcome of the attempted
// operation is unknown to the caller and must be re-queried.
type DependencyUnavailableError struct {
	Dependency string
	Err        error
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

// Is reports whether target is ErrDependencyUnavailable
func (e *DependencyUnavailableError) Is(target error) bool {
	return target == ErrDependencyUnavailable
}

// Unwrap returns the underlying failure
func (e *DependencyUnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a DependencyUnavailableError for dependency
func Unavailable(dependency string, err error) error {
	return &DependencyUnavailableError{Dependency: dependency, Err: err}
}
