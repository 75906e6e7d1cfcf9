package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/jzx17/threadpool/pkg/types"
	"github.com/jzx17/threadpool/pkg/value"
)

// taskIDCounter is the global task ID counter
var taskIDCounter int64

// TaskFunc is the body of a BasicTask
type TaskFunc func(ctx context.Context) (any, error)

// BasicTask is the basic implementation of types.Task
type BasicTask struct {
	id string
	fn TaskFunc
}

// NewTask creates a new basic task
func NewTask(fn TaskFunc) *BasicTask {
	id := atomic.AddInt64(&taskIDCounter, 1)
	return &BasicTask{
		id: fmt.Sprintf("task-%d", id),
		fn: fn,
	}
}

// NewTaskWithID creates a basic task with custom ID
func NewTaskWithID(id string, fn TaskFunc) *BasicTask {
	return &BasicTask{
		id: id,
		fn: fn,
	}
}

// Run executes the task body
func (t *BasicTask) Run(ctx context.Context) (any, error) {
	if t.fn == nil {
		return nil, fmt.Errorf("task %s has no execution function", t.id)
	}
	return t.fn(ctx)
}

// ID returns the task ID
func (t *BasicTask) ID() string {
	return t.id
}

// job pairs a queued task with the result slot it publishes into.
// The slot belongs to the submitter's handle and outlives the job; the job
// only refers to it and is dropped once execute returns.
type job struct {
	task   types.Task
	result *Result
}

func newJob(task types.Task, result *Result) *job {
	return &job{task: task, result: result}
}

// execute runs the task body once and publishes what it produced.
// A panic in the body is recovered and published as a *types.TaskError.
func (j *job) execute(ctx context.Context, threadID int) (panicked bool) {
	out, panicked, err := j.run(ctx, threadID)

	v, ok := out.(*value.Value)
	if !ok {
		v = value.FromAny(out)
	}

	j.result.publish(v, err)
	return panicked
}

// run executes the task with panic recovery support
func (j *job) run(ctx context.Context, threadID int) (out any, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			out, panicked = nil, true
			err = types.NewTaskError("execute", j.task.ID(), fmt.Errorf("panic: %v", r)).
				WithContext("stack_trace", string(buf[:n])).
				WithContext("worker_id", threadID)
		}
	}()

	out, err = j.task.Run(ctx)
	return out, false, err
}
