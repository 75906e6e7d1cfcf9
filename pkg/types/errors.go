// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrSubmitTimeout indicates the queue stayed full for the whole submission timeout
	ErrSubmitTimeout = errors.New("submit timeout: task queue is full")

	// ErrPoolNotRunning indicates a submission to a pool that is not started or already stopped
	ErrPoolNotRunning = errors.New("thread pool is not running")

	// ErrAlreadyStarted indicates a second Start call
	ErrAlreadyStarted = errors.New("thread pool is already started")

	// ErrInvalidConfig indicates a configuration value out of range
	ErrInvalidConfig = errors.New("invalid thread pool config")

	// ErrNilTask indicates a nil task or task function
	ErrNilTask = errors.New("task cannot be nil")

	// ErrRateLimited indicates the submission rate limiter refused admission
	ErrRateLimited = errors.New("submission rate limit exceeded")

	// ErrTypeMismatch indicates a value was extracted as the wrong type
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDoublePublish indicates a second publish into the same result slot
	ErrDoublePublish = errors.New("result already published")

	// ErrEmptyValue indicates extraction from a value that holds nothing
	ErrEmptyValue = errors.New("value is empty")
)

// TaskError represents a failure raised while executing a task
type TaskError struct {
	// Operation is the name of the operation where the error occurred
	Operation string

	// TaskID is the ID of the task that failed
	TaskID string

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed in %s: %v", e.TaskID, e.Operation, e.Cause)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *TaskError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewTaskError creates a new task error
func NewTaskError(operation, taskID string, cause error) *TaskError {
	return &TaskError{
		Operation: operation,
		TaskID:    taskID,
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *TaskError) WithContext(key string, value interface{}) *TaskError {
	e.Context[key] = value
	return e
}

// TypeMismatchError describes a failed extraction from a type-erased value
type TypeMismatchError struct {
	// Want is the requested type
	Want string

	// Got is the stored type
	Got string
}

// Error implements the error interface
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %s, stored %s", e.Want, e.Got)
}

// Is reports ErrTypeMismatch so callers can match with errors.Is
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// IsRejected reports whether err means the task was never admitted
func IsRejected(err error) bool {
	return errors.Is(err, ErrSubmitTimeout) ||
		errors.Is(err, ErrPoolNotRunning) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrNilTask)
}
