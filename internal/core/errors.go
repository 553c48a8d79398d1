package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the assistant's failure taxonomy. Typed errors below
// match these through errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrAuth        = errors.New("authentication failed")
	ErrUpstream    = errors.New("upstream service failed")
	ErrSearch      = errors.New("web search failed")
	ErrPersistence = errors.New("persistence failed")
)

// ValidationError reports input that was rejected before any state changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a lookup that matched nothing.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AuthError reports a missing or rejected language-model credential.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Op + ": credential missing"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error        { return e.Err }
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// UpstreamError reports a non-success response or malformed body from a
// remote service.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error        { return e.Err }
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// SearchError reports that no search source produced a usable answer.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("searching %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error        { return e.Err }
func (e *SearchError) Is(target error) bool { return target == ErrSearch }

// PersistenceError reports a failed load or save against the key-value store.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error        { return e.Err }
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
