// Package errors defines the error taxonomy shared by the store, ledger,
// selector and queue controller. Callers classify failures with errors.Is
// against the sentinels; the HTTP layer maps them to status codes.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input, rejected before touching storage.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a reference to a record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks a storage engine failure. Retryable by the caller.
	ErrPersistence = errors.New("persistence error")
	// ErrCollaborator marks a failure of the ingestion collaborator.
	ErrCollaborator = errors.New("collaborator error")
	// ErrBusy marks a rejected call while another is in flight for the session.
	ErrBusy = errors.New("operation already in flight")
)

// Validation wraps a field-level message as a validation error.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound reports a missing record by resource name and id.
func NotFound(resource string, id uint64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, resource, id)
}

// Persistence wraps a storage error, preserving the cause in the chain.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// Collaborator wraps an ingestion failure, preserving the cause in the chain.
func Collaborator(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCollaborator, op, err)
}
