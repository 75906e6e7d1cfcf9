package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jzx17/threadpool/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThread_IDsIncrease(t *testing.T) {
	noop := func(*Thread) {}

	first := NewThread(noop, nil)
	second := NewThread(noop, nil)
	third := NewThread(noop, nil)

	assert.Less(t, first.ID(), second.ID())
	assert.Less(t, second.ID(), third.ID())
}

func TestThread_StartOnce(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{})

	th := NewThread(func(*Thread) {
		runs.Add(1)
		<-done
	}, nil)
	assert.Equal(t, ThreadStateIdle, th.State())

	th.Start()
	th.Start()
	close(done)

	require.Eventually(t, func() bool {
		return th.State() == ThreadStateStopped
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestThread_Stats(t *testing.T) {
	mock, clock := testutils.NewMockClock(t)
	th := NewThread(func(*Thread) {}, clock)

	stats := th.Stats()
	assert.Equal(t, th.ID(), stats.ID)
	assert.True(t, stats.IsIdle())
	assert.False(t, stats.IsActive())
	assert.True(t, stats.LastTaskTime.IsZero())
	assert.True(t, mock.Now().Equal(stats.CreatedAt), "creation time comes from the pool clock")

	start := mock.Now().Add(time.Second)
	th.recordTask(start, false)
	th.recordTask(start, true)
	th.setState(ThreadStateWorking)

	stats = th.Stats()
	assert.Equal(t, int64(2), stats.TotalProcessed)
	assert.Equal(t, int64(1), stats.TotalPanicked)
	assert.Equal(t, start.UnixNano(), stats.LastTaskTime.UnixNano())
	assert.True(t, stats.IsActive())
}

func TestThreadState_String(t *testing.T) {
	assert.Equal(t, "idle", ThreadStateIdle.String())
	assert.Equal(t, "working", ThreadStateWorking.String())
	assert.Equal(t, "stopped", ThreadStateStopped.String())
	assert.Equal(t, "unknown", ThreadState(42).String())
}
