// Package apperr defines the error taxonomy shared by the gateway's domain
// packages and the conversion of those errors into HTTP responses.
//
// Every failure reaching a handler is classified as one of four kinds:
// not found, validation, unauthorized or backend. None of them is fatal to
// the process and none of them is retried.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error for presentation.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindUnauthorized
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// kinded is implemented by every error type that knows its own Kind,
// including domain errors defined outside this package.
type kinded interface {
	Kind() Kind
}

// KindOf walks the error chain and returns the first Kind it finds.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// NotFoundError reports a lookup miss. It is recovered locally and shown
// as a message.
type NotFoundError struct {
	Resource string
	ID       string
	Message  string
}

func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Kind() Kind { return KindNotFound }

// ValidationError blocks a submission before it reaches the backend.
// Fields maps an input key to the problem found with it.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Add records a problem for a single field.
func (e *ValidationError) Add(field, problem string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = problem
}

// HasProblems reports whether any field problem was recorded.
func (e *ValidationError) HasProblems() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Kind() Kind { return KindValidation }

// UnauthorizedError reports a missing, expired or revoked session.
type UnauthorizedError struct {
	Reason string
}

func Unauthorized(reason string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason}
}

func (e *UnauthorizedError) Error() string {
	if e.Reason == "" {
		return "session expired"
	}
	return "session expired: " + e.Reason
}

func (e *UnauthorizedError) Kind() Kind { return KindUnauthorized }

// BackendError wraps any other non-2xx answer or transport failure from
// the hospital backend. Status is zero for transport failures.
type BackendError struct {
	Op     string
	Status int
	Err    error
}

func (e *BackendError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("backend %s: status %d: %v", e.Op, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("backend %s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("backend %s failed", e.Op)
	}
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Kind() Kind { return KindBackend }

// PartialError reports a multi-step action whose first backend write was
// accepted before a later step failed. Resubmitting the action would
// repeat the saved write.
type PartialError struct {
	Saved string
	Err   error
}

func Partial(saved string, err error) *PartialError {
	return &PartialError{Saved: saved, Err: err}
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s saved, then: %v", e.Saved, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

func (e *PartialError) Kind() Kind { return KindBackend }
