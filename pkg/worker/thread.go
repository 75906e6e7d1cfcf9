package worker

import (
	"sync/atomic"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
)

// ThreadState defines the state of a Thread
type ThreadState int32

const (
	// ThreadStateIdle represents a thread waiting for work
	ThreadStateIdle ThreadState = iota
	// ThreadStateWorking represents a thread executing a task
	ThreadStateWorking
	// ThreadStateStopped represents a thread whose dispatch loop has returned
	ThreadStateStopped
)

// String returns the string representation of ThreadState
func (ts ThreadState) String() string {
	switch ts {
	case ThreadStateIdle:
		return "idle"
	case ThreadStateWorking:
		return "working"
	case ThreadStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// threadIDCounter hands out process-unique thread IDs
var threadIDCounter atomic.Int64

// ThreadFunc is the dispatch loop a Thread runs
type ThreadFunc func(t *Thread)

// Thread wraps one worker goroutine with a stable identity
type Thread struct {
	id      int
	fn      ThreadFunc
	started atomic.Bool
	state   atomic.Int32

	// statistics
	totalProcessed int64
	totalPanicked  int64
	lastTaskTime   int64 // Unix nanosecond timestamp
	createdAt      time.Time
}

// NewThread creates a Thread with the next process-unique ID.
// clock stamps its creation time; nil uses real time.
func NewThread(fn ThreadFunc, clock types.Clock) *Thread {
	if clock == nil {
		clock = types.NewRealClock()
	}
	return &Thread{
		id:        int(threadIDCounter.Add(1) - 1),
		fn:        fn,
		createdAt: clock.Now(),
	}
}

// ID returns the thread ID
func (t *Thread) ID() int {
	return t.id
}

// State returns the current thread state
func (t *Thread) State() ThreadState {
	return ThreadState(t.state.Load())
}

// Start runs the dispatch loop on a new goroutine and returns immediately.
// Nobody joins the goroutine; the loop itself reports its exit to the pool.
// Calling Start more than once has no effect.
func (t *Thread) Start() {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer t.setState(ThreadStateStopped)
		t.fn(t)
	}()
}

func (t *Thread) setState(state ThreadState) {
	t.state.Store(int32(state))
}

func (t *Thread) recordTask(start time.Time, panicked bool) {
	atomic.StoreInt64(&t.lastTaskTime, start.UnixNano())
	atomic.AddInt64(&t.totalProcessed, 1)
	if panicked {
		atomic.AddInt64(&t.totalPanicked, 1)
	}
}

// Stats gets thread statistics
func (t *Thread) Stats() ThreadStats {
	stats := ThreadStats{
		ID:             t.id,
		State:          t.State(),
		TotalProcessed: atomic.LoadInt64(&t.totalProcessed),
		TotalPanicked:  atomic.LoadInt64(&t.totalPanicked),
		CreatedAt:      t.createdAt,
	}
	if ts := atomic.LoadInt64(&t.lastTaskTime); ts != 0 {
		stats.LastTaskTime = time.Unix(0, ts)
	}
	return stats
}

// ThreadStats defines thread statistics
type ThreadStats struct {
	ID             int
	State          ThreadState
	TotalProcessed int64
	TotalPanicked  int64
	LastTaskTime   time.Time
	CreatedAt      time.Time
}

// IsActive checks if the thread is executing a task
func (ts ThreadStats) IsActive() bool {
	return ts.State == ThreadStateWorking
}

// IsIdle checks if the thread is waiting for work
func (ts ThreadStats) IsIdle() bool {
	return ts.State == ThreadStateIdle
}
