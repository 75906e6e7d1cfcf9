package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jzx17/threadpool/internal/testutils"
	"github.com/jzx17/threadpool/pkg/types"
	"github.com/jzx17/threadpool/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestThreadPool_HighLoad(t *testing.T) {
	for _, mode := range []types.Mode{types.ModeFixed, types.ModeDynamic} {
		t.Run(mode.String(), func(t *testing.T) {
			pool := newTestPool(t, &Config{
				Mode:          mode,
				MaxWorkers:    16,
				QueueCapacity: 64,
				SubmitTimeout: 10 * time.Second,
			})
			require.NoError(t, pool.Start(context.Background(), 4))

			const submitters, perSubmitter = 8, 250

			var executed atomic.Int64
			g, ctx := errgroup.WithContext(testutils.Context(t))
			for s := 0; s < submitters; s++ {
				g.Go(func() error {
					futures := make([]*Future[int], 0, perSubmitter)
					for i := 0; i < perSubmitter; i++ {
						n := i
						f := SubmitFunc(pool, func(context.Context) (int, error) {
							executed.Add(1)
							return n * 2, nil
						})
						if !f.Valid() {
							return fmt.Errorf("submit %d rejected: %w", n, f.Result().Err())
						}
						futures = append(futures, f)
					}
					for i, f := range futures {
						got, err := f.GetContext(ctx)
						if err != nil {
							return err
						}
						if got != i*2 {
							return fmt.Errorf("future %d: got %d", i, got)
						}
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())

			total := int64(submitters * perSubmitter)
			assert.Equal(t, total, executed.Load())

			pool.Shutdown()
			stats := pool.Stats()
			assert.Equal(t, total, stats.TotalSubmitted)
			assert.Equal(t, total, stats.TotalCompleted)
			assert.Zero(t, stats.TotalRejected)
			assert.Equal(t, types.StateStopped, stats.State)
			assert.Zero(t, pool.CurrentWorkers())
		})
	}
}

func TestThreadPool_PanicDoesNotKillWorker(t *testing.T) {
	pool := newTestPool(t, nil)
	require.NoError(t, pool.Start(context.Background(), 1))

	bad := pool.Submit(NewTaskWithID("bad", func(ctx context.Context) (any, error) {
		panic("boom")
	}))
	good := Call(pool, func() string { return "still alive" })

	v, err := bad.Get()
	assert.True(t, v.IsEmpty() || v.Interface() == nil)

	var taskErr *types.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "bad", taskErr.TaskID)
	assert.Contains(t, taskErr.Error(), "panic: boom")

	s, err := good.Get()
	require.NoError(t, err)
	assert.Equal(t, "still alive", s)
	assert.Equal(t, 1, pool.CurrentWorkers())

	require.Eventually(t, func() bool {
		workers := pool.Workers()
		return len(workers) == 1 && workers[0].TotalProcessed == 2 && workers[0].TotalPanicked == 1
	}, time.Second, 5*time.Millisecond)
}

func TestThreadPool_TaskErrorsAreDelivered(t *testing.T) {
	pool := newTestPool(t, nil)
	require.NoError(t, pool.Start(context.Background(), 2))

	errInvalid := errors.New("invalid record")
	results := make([]*Result, 10)
	for i := range results {
		n := i
		results[i] = pool.Submit(NewTask(func(ctx context.Context) (any, error) {
			if n%2 == 1 {
				return nil, fmt.Errorf("record %d: %w", n, errInvalid)
			}
			return n, nil
		}))
	}

	for i, r := range results {
		_, err := r.Get()
		if i%2 == 1 {
			assert.ErrorIs(t, err, errInvalid)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestThreadPool_RateLimitedSubmit(t *testing.T) {
	pool := newTestPool(t, &Config{
		SubmitRate:    1,
		SubmitBurst:   1,
		SubmitTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, pool.Start(context.Background(), 1))

	first := pool.Submit(NewTask(func(ctx context.Context) (any, error) { return 1, nil }))
	require.True(t, first.Valid())

	// the bucket refills once per second, beyond the submit timeout
	second := pool.Submit(NewTask(func(ctx context.Context) (any, error) { return 2, nil }))
	assert.False(t, second.Valid())
	assert.ErrorIs(t, second.Err(), types.ErrRateLimited)
	assert.True(t, types.IsRejected(second.Err()))
}

func TestThreadPool_RateLimiterUsesPoolClock(t *testing.T) {
	mock, clock := testutils.NewMockClock(t)
	ctx := testutils.Context(t)

	pool := newTestPool(t, &Config{
		SubmitRate:    1,
		SubmitBurst:   1,
		SubmitTimeout: 2 * time.Second,
		Clock:         clock,
	})
	require.NoError(t, pool.Start(context.Background(), 1))

	first := pool.Submit(NewTask(func(ctx context.Context) (any, error) { return 1, nil }))
	require.True(t, first.Valid())

	var second *Result
	submitted := testutils.RunAsync(func() {
		second = pool.Submit(NewTask(func(ctx context.Context) (any, error) { return 2, nil }))
	})

	// the wait for the next token is a timer on the pool clock
	require.Eventually(t, func() bool { return testutils.HasPendingTimer(mock) }, time.Second, time.Millisecond)
	select {
	case <-submitted:
		t.Fatal("submit returned before the token was available")
	default:
	}

	mock.Advance(time.Second).MustWait(ctx)
	testutils.RequireClosed(t, submitted, time.Second, "submit still waiting after the token refilled")

	require.True(t, second.Valid())
	v, err := second.GetContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, value.MustAs[int](v))
}

func TestThreadPool_RateLimiterRejectsBeyondTimeout(t *testing.T) {
	mock, clock := testutils.NewMockClock(t)

	pool := newTestPool(t, &Config{
		SubmitRate:    1,
		SubmitBurst:   1,
		SubmitTimeout: 50 * time.Millisecond,
		Clock:         clock,
	})
	require.NoError(t, pool.Start(context.Background(), 1))

	require.True(t, pool.Submit(NewTask(func(ctx context.Context) (any, error) { return 1, nil })).Valid())

	// refused at once: the next token is further away than the submit timeout
	r := pool.Submit(NewTask(func(ctx context.Context) (any, error) { return 2, nil }))
	assert.ErrorIs(t, r.Err(), types.ErrRateLimited)
	assert.False(t, testutils.HasPendingTimer(mock))
}

func TestThreadPool_Stats(t *testing.T) {
	pool := newTestPool(t, &Config{
		Name:          "stats",
		Mode:          types.ModeDynamic,
		MaxWorkers:    6,
		QueueCapacity: 32,
	})
	require.NoError(t, pool.Start(context.Background(), 2))

	release := make(chan struct{})
	started := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		pool.Submit(blockingTask(started, release))
	}
	for i := 0; i < 4; i++ {
		<-started
	}

	stats := pool.Stats()
	assert.Equal(t, types.StateRunning, stats.State)
	assert.Equal(t, types.ModeDynamic, stats.Mode)
	assert.Equal(t, 2, stats.InitialWorkers)
	assert.Equal(t, 6, stats.MaxWorkers)
	assert.Equal(t, 4, stats.CurrentWorkers)
	assert.Equal(t, 0, stats.IdleWorkers)
	assert.Equal(t, 4, stats.ActiveWorkers())
	assert.Equal(t, 0, stats.QueueSize)
	assert.Equal(t, 32, stats.QueueCapacity)
	assert.Equal(t, int64(4), stats.TotalSubmitted)

	workers := pool.Workers()
	require.Len(t, workers, 4)
	for i := 1; i < len(workers); i++ {
		assert.Less(t, workers[i-1].ID, workers[i].ID)
	}
	for _, w := range workers {
		assert.True(t, w.IsActive())
	}

	close(release)
	require.Eventually(t, func() bool {
		return pool.Stats().TotalCompleted == 4
	}, time.Second, 5*time.Millisecond)
}

func TestThreadPool_ErrorHandler(t *testing.T) {
	var handled atomic.Int32
	failures := make(chan error, 2)

	pool := newTestPool(t, &Config{
		ErrorHandler: func(err error) error {
			handled.Add(1)
			failures <- err
			return errors.New("handler could not forward")
		},
	})
	require.NoError(t, pool.Start(context.Background(), 1))

	errBad := errors.New("bad input")
	pool.Submit(NewTask(func(ctx context.Context) (any, error) { return nil, errBad }))
	pool.Submit(NewTask(func(ctx context.Context) (any, error) { panic("boom") }))
	ok := pool.Submit(NewTask(func(ctx context.Context) (any, error) { return "fine", nil }))
	require.NoError(t, ok.WaitContext(testutils.Context(t)))

	assert.ErrorIs(t, <-failures, errBad)
	var taskErr *types.TaskError
	assert.ErrorAs(t, <-failures, &taskErr)

	pool.Shutdown()
	assert.Equal(t, int32(2), handled.Load(), "successful tasks are not reported")
}
