package persistence

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrPipelineNotFound indicates a pipeline was not found by the given identifier.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrInvalidPipelineID indicates an identifier that cannot name a stored pipeline.
	ErrInvalidPipelineID = errors.New("invalid pipeline id")
)

var pipelineIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidatePipelineID rejects ids that are empty or could escape a storage
// location.
func ValidatePipelineID(id string) error {
	if !pipelineIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidPipelineID, id)
	}

	return nil
}

// PipelineError wraps pipeline storage errors with the operation and id.
type PipelineError struct {
	Op         string
	PipelineID string
	Err        error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s operation failed for pipeline %s: %v", e.Op, e.PipelineID, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewPipelineError(op, pipelineID string, err error) *PipelineError {
	return &PipelineError{
		Op:         op,
		PipelineID: pipelineID,
		Err:        err,
	}
}

// IsPipelineNotFound checks if an error indicates a pipeline was not found.
func IsPipelineNotFound(err error) bool {
	return errors.Is(err, ErrPipelineNotFound)
}
