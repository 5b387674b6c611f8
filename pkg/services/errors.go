// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/idpflow/pkg/engine"
	"github.com/dukex/idpflow/pkg/persistence"
	"github.com/dukex/idpflow/pkg/pipeline"
	"github.com/dukex/idpflow/pkg/registry"
	"github.com/dukex/idpflow/pkg/storage"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPipelineNameRequired = errors.New("pipeline name is required")
	ErrUnknownProject       = errors.New("unknown extraction project")
	ErrNotDocumentNode      = errors.New("node does not accept documents")

	// Business Logic Conflicts (409 Conflict).
	ErrPipelineRunning = errors.New("pipeline is running")

	// Preconditions (422 Unprocessable Entity).
	ErrNoExtractionResult = errors.New("node has no extraction result")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
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

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	var schemaErr *registry.ValidationError

	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrPipelineNameRequired) ||
		errors.Is(err, ErrUnknownProject) ||
		errors.Is(err, ErrNotDocumentNode) ||
		errors.Is(err, persistence.ErrInvalidPipelineID) ||
		errors.Is(err, storage.ErrInvalidFile) ||
		errors.Is(err, storage.ErrFileTooLarge) ||
		errors.As(err, &schemaErr) ||
		pipeline.IsValidation(err)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrPipelineRunning) || engine.IsRunInProgress(err)
}

// IsNotFoundError checks if an error names a pipeline, node, edge or field that does not exist.
func IsNotFoundError(err error) bool {
	return persistence.IsPipelineNotFound(err) || pipeline.IsNotFound(err)
}

// IsPreconditionError checks if an error should return HTTP 422.
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrNoExtractionResult)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
