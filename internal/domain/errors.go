package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrValidation        = errors.New("validation failed")
	ErrCircularHierarchy = errors.New("would create circular hierarchy")
	ErrConcurrency       = errors.New("concurrent modification")
	ErrStorage           = errors.New("storage failure")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found or is not owned by the caller
	NotFoundError struct {
		Message      string
		ResourceType string
		ResourceID   string
	}

	// ValidationError indicates invalid input. Field is empty for whole-request errors.
	ValidationError struct {
		Message string
		Field   string
	}

	// CircularHierarchyError indicates a reparent that would make a node its own ancestor
	CircularHierarchyError struct {
		Message  string
		ID       string
		ParentID string
	}

	// ConcurrencyError indicates lock contention, lock timeout or a serialization failure
	ConcurrencyError struct {
		Message string
		Err     error
	}

	// StorageError wraps an I/O or integrity failure not otherwise classified
	StorageError struct {
		Op  string
		Err error
	}

	// InvalidStateError indicates an operation called outside of its valid lifecycle state
	InvalidStateError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string          { return e.Message }
func (e *ValidationError) Error() string        { return e.Message }
func (e *CircularHierarchyError) Error() string { return e.Message }
func (e *InvalidStateError) Error() string      { return e.Message }

func (e *ConcurrencyError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConcurrencyError) Unwrap() error { return e.Err }
func (e *StorageError) Unwrap() error     { return e.Err }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int          { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int        { return http.StatusBadRequest }
func (e *CircularHierarchyError) StatusCode() int { return http.StatusConflict }
func (e *ConcurrencyError) StatusCode() int       { return http.StatusConflict }
func (e *StorageError) StatusCode() int           { return http.StatusInternalServerError }
func (e *InvalidStateError) StatusCode() int      { return http.StatusInternalServerError }

// Is allows errors.Is() to match typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool          { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool        { return target == ErrValidation }
func (e *CircularHierarchyError) Is(target error) bool { return target == ErrCircularHierarchy }
func (e *ConcurrencyError) Is(target error) bool       { return target == ErrConcurrency }
func (e *StorageError) Is(target error) bool           { return target == ErrStorage }
func (e *InvalidStateError) Is(target error) bool      { return target == ErrInvalidState }

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (project, keyword, ...)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewProjectNotFound builds the not-found error returned for absent or foreign projects.
func NewProjectNotFound(id string) *NotFoundError {
	return &NotFoundError{
		Message:      fmt.Sprintf("project %s: %s", id, ErrNotFound),
		ResourceType: "project",
		ResourceID:   id,
	}
}

// NewNotFound builds a not-found error for any resource type.
func NewNotFound(resourceType, id string) *NotFoundError {
	return &NotFoundError{
		Message:      fmt.Sprintf("%s %s: %s", resourceType, id, ErrNotFound),
		ResourceType: resourceType,
		ResourceID:   id,
	}
}

// StatusCodeOf returns the HTTP status for err, defaulting to 500.
func StatusCodeOf(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict), errors.Is(err, ErrCircularHierarchy), errors.Is(err, ErrConcurrency):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
