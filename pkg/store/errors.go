package store

import (
	"errors"
	"fmt"
)

var (
	// ErrPipelineNotFound indicates no pipeline is stored under the given id.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrPipelineExists indicates a pipeline with the same id is already
	// stored. Registered definitions are immutable.
	ErrPipelineExists = errors.New("pipeline already exists")
)

// StoreError wraps storage failures with the operation and pipeline id.
type StoreError struct {
	Op         string
	PipelineID string
	Err        error
}

func (e *StoreError) Error() string {
	if e.PipelineID != "" {
		return fmt.Sprintf("%s operation failed for pipeline %s: %v", e.Op, e.PipelineID, e.Err)
	}

	return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a storage error with context.
func NewStoreError(op, pipelineID string, err error) *StoreError {
	return &StoreError{
		Op:         op,
		PipelineID: pipelineID,
		Err:        err,
	}
}

// IsPipelineNotFound checks if an error indicates a missing pipeline.
func IsPipelineNotFound(err error) bool {
	return errors.Is(err, ErrPipelineNotFound)
}
