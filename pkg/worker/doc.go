/*
Package worker provides a thread pool that runs heterogeneous tasks on a set of
worker goroutines fed by a single bounded FIFO queue.

# Overview

A ThreadPool supports:
- Fixed mode: a constant number of workers for the life of the pool
- Dynamic mode: workers are added under load up to a ceiling and retired after idling, never below the starting count
- Bounded admission with a submit timeout instead of unbounded blocking
- An optional token bucket limiting the submit rate
- Type-erased results, plus typed futures through SubmitFunc and Call
- Graceful shutdown that drains queued work and never interrupts running tasks

# Core Components

## ThreadPool

The pool owns the queue, the wait conditions and the worker registry. It moves
through four states:

	Unstarted -> Running -> Draining -> Stopped

Setters (SetMode, SetQueueCapacity, SetMaxWorkers, SetIdleTimeout,
SetSubmitTimeout) only apply while the pool is unstarted. Submit is accepted
while running or draining.

## Thread

Each worker is a detached goroutine with a process-unique integer ID. It takes
one task under the pool lock and runs it with the lock released, so a slow task
never blocks submitters or other workers.

## Result and Future

Submit returns a *Result right away. A valid Result is published exactly once
by the worker that ran the task and Get blocks until then. A Result refused at
admission is invalid: Get returns immediately with an empty value and the
reason (types.ErrSubmitTimeout, types.ErrPoolNotRunning, types.ErrRateLimited
or types.ErrNilTask).

Future[T] is a typed view over a Result.

# Usage Examples

Basic usage:

	pool, err := worker.New(&worker.Config{
		Name:          "ingest",
		QueueCapacity: 256,
		SubmitTimeout: 2 * time.Second,
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := pool.Start(context.Background(), 8); err != nil {
		log.Fatal(err)
	}
	defer pool.Shutdown()

	result := pool.Submit(worker.NewTask(func(ctx context.Context) (any, error) {
		return uint64(42), nil
	}))
	if !result.Valid() {
		log.Printf("task refused: %v", result.Err())
	}

	v, err := result.Get()
	n := value.MustAs[uint64](v)

Typed futures:

	sum := worker.Call(pool, func() uint64 { return 5050 })
	name := worker.SubmitFunc(pool, func(ctx context.Context) (string, error) {
		return lookup(ctx)
	})

	total, _ := sum.Get()
	s, err := name.Get()

Dynamic mode:

	pool, _ := worker.New(&worker.Config{
		Mode:        types.ModeDynamic,
		MaxWorkers:  32,
		IdleTimeout: 30 * time.Second,
	})
	_ = pool.Start(ctx, 4) // 4 is also the floor

# Error Handling

A task's own error is delivered through Get. A panic in a task body is
recovered by the worker and delivered as a *types.TaskError carrying the stack
trace; the worker keeps running.

# Observability

Lifecycle events go to the configured logrus logger. When Config.Registerer is
set the pool registers Prometheus metrics labelled with the pool name.
Stats and Workers return point-in-time snapshots.
*/
package worker
