// Package services implements the application-facing operations on workflows
// and executions, sitting between the HTTP layer and persistence.
package services

import (
	"errors"
	"fmt"

	"github.com/flowgrid/flowgrid/pkg/graph"
	"github.com/flowgrid/flowgrid/pkg/persistence"
)

// Re-exported so API handlers depend on the service layer only.
var (
	ErrWorkflowNotFound  = persistence.ErrWorkflowNotFound
	ErrExecutionNotFound = persistence.ErrExecutionNotFound
)

// Business logic errors mapping to client-side (4xx) responses.
var (
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrInvalidGraphDocument = errors.New("invalid portable graph document")
	ErrExecutionFinished    = errors.New("execution already reached a terminal state")
)

// ServiceError wraps a service-level failure with the operation that produced
// it and a stable code for API responses.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether the error should produce HTTP 400. Graph
// validation failures carry the offending node or edge, so they are matched
// structurally rather than by sentinel.
func IsValidationError(err error) bool {
	var graphErr *graph.Error
	if errors.As(err, &graphErr) {
		return true
	}

	return errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrInvalidGraphDocument)
}

// IsConflictError reports whether the error should produce HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrExecutionFinished)
}

// IsNotFoundError reports whether the error should produce HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrExecutionNotFound)
}

func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
