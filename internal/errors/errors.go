package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrBatchNotFound   = errors.New("batch not found")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrExportNotFound  = errors.New("export not found")
	ErrStorageDisabled = errors.New("object storage is not configured")
)

// ValidationError marks input the caller must fix. Maps to HTTP 400.
type ValidationError struct {
	Message string
	Details string
}

func NewValidationError(message, details string) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

func (e *ValidationError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

// StorageError wraps a persistence failure. Maps to HTTP 500.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
