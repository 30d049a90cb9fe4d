// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrNegativeTimeLimit indicates a task was constructed with a negative time limit
	ErrNegativeTimeLimit = errors.New("time limit must not be negative")

	// ErrNilExecuteFunc indicates a task was constructed without an execute function
	ErrNilExecuteFunc = errors.New("execute function must not be nil")

	// ErrNilTask indicates a nil task was submitted
	ErrNilTask = errors.New("task must not be nil")

	// ErrTaskResubmitted indicates a task object was submitted more than once
	ErrTaskResubmitted = errors.New("task has already been submitted")

	// ErrInvalidPoolSize indicates a non-positive worker count
	ErrInvalidPoolSize = errors.New("pool size must be positive")
)

// PanicError wraps a panic recovered from a task body
type PanicError struct {
	// TaskID is the ID of the task that panicked
	TaskID string

	// Value is the recovered panic value
	Value interface{}

	// Stack is the goroutine stack captured at recovery
	Stack string
}

// Error implements the error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.TaskID, e.Value)
}

// NewPanicError creates a new PanicError
func NewPanicError(taskID string, value interface{}, stack string) *PanicError {
	return &PanicError{
		TaskID: taskID,
		Value:  value,
		Stack:  stack,
	}
}

// IsPanic checks if an error wraps a recovered task panic
func IsPanic(err error) bool {
	var panicErr *PanicError
	return errors.As(err, &panicErr)
}
