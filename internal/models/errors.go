package models

import (
	"errors"
	"fmt"
)

// ErrDuplicate is wrapped by PersistError when a unique key already holds the row
var ErrDuplicate = errors.New("duplicate row")

// ValidationError reports a fetched payload missing a required field
type ValidationError struct {
	ExternalID int64
	Kind       string
	Field      string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %d: missing %s", e.Kind, e.ExternalID, e.Field)
}

// PersistError reports a failed write or lookup against the store.
// Author resolution failures use Op "resolve_author".
type PersistError struct {
	Op         string
	ExternalID int64
	Err        error
}

// Error implements the error interface
func (e *PersistError) Error() string {
	if e.ExternalID != 0 {
		return fmt.Sprintf("%s %d: %v", e.Op, e.ExternalID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsDuplicate reports whether err is a persist conflict on a unique key
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
