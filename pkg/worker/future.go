package worker

import (
	"context"

	"github.com/jzx17/threadpool/pkg/value"
)

// Future is a typed view of a Result for tasks submitted through SubmitFunc or Call
type Future[T any] struct {
	result *Result
}

// NewFuture wraps an untyped Result. Get panics if the task produced something other than T.
func NewFuture[T any](result *Result) *Future[T] {
	return &Future[T]{result: result}
}

// Result returns the underlying type-erased handle
func (f *Future[T]) Result() *Result {
	return f.result
}

// Valid reports whether the task was admitted to the queue
func (f *Future[T]) Valid() bool {
	return f.result.Valid()
}

// Get blocks until the task has run. An invalid future returns the zero T and its admission error.
func (f *Future[T]) Get() (T, error) {
	v, err := f.result.Get()
	return extract[T](v, err)
}

// GetContext is Get bounded by ctx
func (f *Future[T]) GetContext(ctx context.Context) (T, error) {
	v, err := f.result.GetContext(ctx)
	return extract[T](v, err)
}

func extract[T any](v *value.Value, err error) (T, error) {
	if err != nil || v.IsEmpty() {
		var zero T
		return zero, err
	}
	return value.MustAs[T](v), nil
}

// SubmitFunc submits fn to the pool and returns a typed future for its result
func SubmitFunc[T any](p *ThreadPool, fn func(ctx context.Context) (T, error)) *Future[T] {
	if fn == nil {
		return NewFuture[T](p.Submit(nil))
	}
	task := NewTask(func(ctx context.Context) (any, error) {
		out, err := fn(ctx)
		return value.Of(out), err
	})
	return NewFuture[T](p.Submit(task))
}

// Call submits a plain function producing a single value
func Call[T any](p *ThreadPool, fn func() T) *Future[T] {
	if fn == nil {
		return NewFuture[T](p.Submit(nil))
	}
	return SubmitFunc(p, func(context.Context) (T, error) {
		return fn(), nil
	})
}
