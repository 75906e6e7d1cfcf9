package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jzx17/threadpool/pkg/signal"
	"github.com/jzx17/threadpool/pkg/types"
	"github.com/jzx17/threadpool/pkg/value"
)

// Result is the handle a submitter holds for one task.
//
// A valid Result is published exactly once by the worker that runs its task;
// Get blocks until then. A Result refused at admission is invalid: Get
// returns at once with an empty value and the refusal reason.
type Result struct {
	taskID string
	valid  bool

	sem       *signal.Semaphore
	published atomic.Bool

	// val and err are written once before sem is posted
	val *value.Value
	err error
}

func newResult(taskID string) *Result {
	return &Result{
		taskID: taskID,
		valid:  true,
		sem:    signal.NewSemaphore(0),
	}
}

// rejectedResult builds an invalid handle that is already complete
func rejectedResult(taskID string, reason error) *Result {
	r := &Result{
		taskID: taskID,
		sem:    signal.NewSemaphore(1),
		val:    value.Empty(),
		err:    reason,
	}
	r.published.Store(true)
	return r
}

// TaskID returns the ID of the task this handle belongs to
func (r *Result) TaskID() string {
	return r.taskID
}

// Valid reports whether the task was admitted to the queue
func (r *Result) Valid() bool {
	return r.valid
}

// Err returns the admission error of an invalid handle, or nil for a valid one
func (r *Result) Err() error {
	if r.valid {
		return nil
	}
	return r.err
}

// Done reports whether a value has been published, without blocking
func (r *Result) Done() bool {
	return r.published.Load()
}

// Wait blocks until the result is published
func (r *Result) Wait() {
	r.sem.Wait()
	// hand the unit on so every other waiter is released too
	r.sem.Post()
}

// WaitContext is Wait bounded by ctx
func (r *Result) WaitContext(ctx context.Context) error {
	if err := r.sem.WaitContext(ctx); err != nil {
		return err
	}
	r.sem.Post()
	return nil
}

// Get blocks until the task has run and returns its value and error.
// Every call returns the same *value.Value.
func (r *Result) Get() (*value.Value, error) {
	r.Wait()
	return r.val, r.err
}

// GetContext is Get bounded by ctx
func (r *Result) GetContext(ctx context.Context) (*value.Value, error) {
	if err := r.WaitContext(ctx); err != nil {
		return value.Empty(), err
	}
	return r.val, r.err
}

// publish stores the task output and releases waiters. A second publish is a programming error.
func (r *Result) publish(v *value.Value, err error) {
	if !r.published.CompareAndSwap(false, true) {
		panic(fmt.Errorf("task %s: %w", r.taskID, types.ErrDoublePublish))
	}
	if v == nil {
		v = value.Empty()
	}
	r.val = v
	r.err = err
	r.sem.Post()
}
