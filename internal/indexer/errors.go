package indexer

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull is returned when the dispatcher has no room for another run
	ErrQueueFull = errors.New("run queue is full")
	// ErrDispatcherClosed is returned when submitting to a stopped dispatcher
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

// DispatchError reports a failure to enqueue a run
type DispatchError struct {
	Limit int
	Err   error
}

// Error implements the error interface
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch run (limit %d): %v", e.Limit, e.Err)
}

// Unwrap returns the underlying cause
func (e *DispatchError) Unwrap() error {
	return e.Err
}
