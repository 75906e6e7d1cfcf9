package worker

import (
	"container/list"
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jzx17/threadpool/internal/cond"
	"github.com/jzx17/threadpool/pkg/metrics"
	"github.com/jzx17/threadpool/pkg/types"
)

// ThreadPool runs submitted tasks on a set of worker goroutines fed by one bounded FIFO queue.
//
// The queue, its two wait conditions and the worker counters share one mutex.
// Tasks execute outside that mutex.
type ThreadPool struct {
	config  Config
	clock   types.Clock
	logger  logrus.FieldLogger
	metrics *metrics.PoolMetrics

	mu       sync.Mutex
	notEmpty *cond.Cond
	notFull  *cond.Cond
	exited   *cond.Cond
	queue    *list.List // of *job

	state       atomic.Int32
	ctx         context.Context
	limiter     *rate.Limiter
	initWorkers int

	// workers is mutated under mu but may be read without it
	workers     *xsync.MapOf[int, *Thread]
	curWorkers  atomic.Int32
	idleWorkers atomic.Int32

	// statistics
	totalSubmitted int64
	totalRejected  int64
	totalCompleted int64
}

// New creates a thread pool. It does not start any worker; call Start.
func New(config *Config) (*ThreadPool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &ThreadPool{
		config:  cfg,
		clock:   cfg.Clock,
		logger:  cfg.Logger.WithField("pool", cfg.Name),
		metrics: metrics.NewPoolMetrics(cfg.Registerer, cfg.Name),
		queue:   list.New(),
		workers: xsync.NewMapOf[int, *Thread](),
	}
	p.notEmpty = cond.New(&p.mu, cfg.Clock)
	p.notFull = cond.New(&p.mu, cfg.Clock)
	p.exited = cond.New(&p.mu, cfg.Clock)

	return p, nil
}

// configure applies fn only while the pool is unstarted
func (p *ThreadPool) configure(fn func(c *Config)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() != types.StateUnstarted {
		return
	}
	fn(&p.config)
}

// SetMode sets the scaling mode. It is a no-op once the pool has started.
func (p *ThreadPool) SetMode(mode types.Mode) {
	if mode != types.ModeFixed && mode != types.ModeDynamic {
		return
	}
	p.configure(func(c *Config) { c.Mode = mode })
}

// SetQueueCapacity sets the queue admission limit. It is a no-op once the pool has started.
func (p *ThreadPool) SetQueueCapacity(n int) {
	if n <= 0 {
		return
	}
	p.configure(func(c *Config) { c.QueueCapacity = n })
}

// SetMaxWorkers sets the worker ceiling. It is a no-op once the pool has started.
// The ceiling is only consulted in dynamic mode.
func (p *ThreadPool) SetMaxWorkers(n int) {
	if n <= 0 {
		return
	}
	p.configure(func(c *Config) { c.MaxWorkers = n })
}

// SetIdleTimeout sets how long a surplus dynamic worker may idle. It is a no-op once the pool has started.
func (p *ThreadPool) SetIdleTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	p.configure(func(c *Config) { c.IdleTimeout = d })
}

// SetSubmitTimeout sets how long Submit waits for capacity. It is a no-op once the pool has started.
func (p *ThreadPool) SetSubmitTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	p.configure(func(c *Config) { c.SubmitTimeout = d })
}

// Start moves the pool to running and starts initialWorkers workers.
// ctx is handed to every task body; cancelling it does not stop the pool.
func (p *ThreadPool) Start(ctx context.Context, initialWorkers int) error {
	if initialWorkers <= 0 {
		return fmt.Errorf("%w: initial workers must be positive, got %d", types.ErrInvalidConfig, initialWorkers)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if state := p.State(); state != types.StateUnstarted {
		return fmt.Errorf("%w (state %s)", types.ErrAlreadyStarted, state)
	}
	if p.config.Mode == types.ModeDynamic && initialWorkers > p.config.MaxWorkers {
		return fmt.Errorf("%w: initial workers %d exceed max workers %d",
			types.ErrInvalidConfig, initialWorkers, p.config.MaxWorkers)
	}

	p.ctx = ctx
	p.initWorkers = initialWorkers
	if p.config.SubmitRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(p.config.SubmitRate), p.config.SubmitBurst)
	}
	p.state.Store(int32(types.StateRunning))

	for i := 0; i < initialWorkers; i++ {
		p.spawnLocked("start")
	}
	p.updateGaugesLocked()

	p.logger.WithFields(logrus.Fields{
		"mode":           p.config.Mode,
		"workers":        initialWorkers,
		"queue_capacity": p.config.QueueCapacity,
	}).Info("thread pool started")

	return nil
}

// Submit admits task to the queue and returns its result handle.
//
// If the queue stays full for the submit timeout the task is dropped and an
// invalid handle carrying types.ErrSubmitTimeout is returned. Submit never
// retries. In dynamic mode a successful submit starts one extra worker when
// pending tasks outnumber idle workers and the ceiling allows it.
func (p *ThreadPool) Submit(task types.Task) *Result {
	if task == nil {
		return p.reject("", types.ErrNilTask, metrics.ReasonNilTask)
	}

	start := p.clock.Now()
	timeout, limiter := p.admission()

	if limiter != nil {
		if err := p.waitLimiter(limiter, start, timeout); err != nil {
			return p.reject(task.ID(), err, metrics.ReasonRateLimited)
		}
	}

	p.mu.Lock()

	if !p.acceptingLocked() {
		p.mu.Unlock()
		return p.reject(task.ID(), types.ErrPoolNotRunning, metrics.ReasonNotRunning)
	}

	for p.queue.Len() >= p.config.QueueCapacity {
		remaining := timeout - p.clock.Since(start)
		if remaining <= 0 || (!p.notFull.WaitTimeout(remaining) && p.queue.Len() >= p.config.QueueCapacity) {
			p.mu.Unlock()
			return p.reject(task.ID(), types.ErrSubmitTimeout, metrics.ReasonTimeout)
		}
		if !p.acceptingLocked() {
			p.mu.Unlock()
			return p.reject(task.ID(), types.ErrPoolNotRunning, metrics.ReasonNotRunning)
		}
	}

	result := newResult(task.ID())
	p.queue.PushBack(newJob(task, result))
	p.notEmpty.Signal()
	atomic.AddInt64(&p.totalSubmitted, 1)

	if p.shouldScaleUpLocked() {
		t := p.spawnLocked("scale_up")
		p.logger.WithFields(logrus.Fields{
			"worker_id": t.ID(),
			"workers":   p.curWorkers.Load(),
			"pending":   p.queue.Len(),
		}).Info("thread pool scaled up")
	}
	p.updateGaugesLocked()
	p.mu.Unlock()

	p.metrics.ObserveSubmit(p.clock.Since(start))
	return result
}

// shouldScaleUpLocked reports whether demand exceeds idle supply and the ceiling allows another worker
func (p *ThreadPool) shouldScaleUpLocked() bool {
	return p.config.Mode == types.ModeDynamic &&
		p.State() == types.StateRunning &&
		p.queue.Len() > int(p.idleWorkers.Load()) &&
		int(p.curWorkers.Load()) < p.config.MaxWorkers
}

// acceptingLocked reports whether submit is legal in the current state
func (p *ThreadPool) acceptingLocked() bool {
	state := p.State()
	return state == types.StateRunning || state == types.StateDraining
}

// waitLimiter takes one token, sleeping on the pool clock when the bucket is empty.
// It fails without consuming a token if the wait would exceed the submit timeout.
func (p *ThreadPool) waitLimiter(limiter *rate.Limiter, start time.Time, timeout time.Duration) error {
	now := p.clock.Now()
	r := limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("%w: burst %d", types.ErrRateLimited, limiter.Burst())
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if delay > timeout-p.clock.Since(start) {
		r.CancelAt(now)
		return fmt.Errorf("%w: next token in %v", types.ErrRateLimited, delay)
	}

	timer := p.clock.NewTimer(delay)
	<-timer.C()
	return nil
}

func (p *ThreadPool) admission() (time.Duration, *rate.Limiter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.SubmitTimeout, p.limiter
}

func (p *ThreadPool) reject(taskID string, reason error, label string) *Result {
	atomic.AddInt64(&p.totalRejected, 1)
	p.metrics.ObserveReject(label)
	p.logger.WithFields(logrus.Fields{
		"task_id": taskID,
		"reason":  label,
	}).Warn("submit task failed")
	return rejectedResult(taskID, reason)
}

// spawnLocked registers and starts one worker
func (p *ThreadPool) spawnLocked(trigger string) *Thread {
	t := NewThread(p.dispatch, p.clock)
	p.workers.Store(t.ID(), t)
	p.curWorkers.Add(1)
	p.idleWorkers.Add(1)
	p.metrics.WorkerStarted(trigger)
	t.Start()
	return t
}

// retireLocked deregisters t and wakes Shutdown
func (p *ThreadPool) retireLocked(t *Thread, reason string) {
	p.workers.Delete(t.ID())
	p.idleWorkers.Add(-1)
	if p.curWorkers.Add(-1) == 0 && p.State() == types.StateDraining {
		p.state.Store(int32(types.StateStopped))
	}
	p.exited.Broadcast()
	p.updateGaugesLocked()
	p.metrics.WorkerExited(reason)
}

// dispatch is the worker loop: take one task under the lock, run it outside
func (p *ThreadPool) dispatch(t *Thread) {
	log := p.logger.WithField("worker_id", t.ID())
	log.Debug("worker started")

	idleSince := p.clock.Now()
	finished := false
	for {
		p.mu.Lock()
		if finished {
			// back from a task: idle again
			p.idleWorkers.Add(1)
			p.updateGaugesLocked()
			finished = false
		}
		for p.queue.Len() == 0 {
			if p.State() != types.StateRunning {
				p.retireLocked(t, metrics.ExitShutdown)
				p.mu.Unlock()
				log.Debug("worker exited")
				return
			}

			if p.config.Mode == types.ModeFixed {
				p.notEmpty.Wait()
				continue
			}

			if !p.notEmpty.WaitTimeout(p.config.IdlePollInterval) &&
				p.queue.Len() == 0 &&
				p.State() == types.StateRunning &&
				p.clock.Since(idleSince) >= p.config.IdleTimeout &&
				int(p.curWorkers.Load()) > p.initWorkers {
				p.retireLocked(t, metrics.ExitIdle)
				p.mu.Unlock()
				log.WithField("workers", p.curWorkers.Load()).Info("idle worker retired")
				return
			}
		}

		j := p.queue.Remove(p.queue.Front()).(*job)
		p.idleWorkers.Add(-1)
		if p.queue.Len() > 0 {
			p.notEmpty.Signal()
		}
		p.notFull.Signal()
		p.updateGaugesLocked()
		p.mu.Unlock()

		log.WithField("task_id", j.task.ID()).Debug("task dequeued")

		t.setState(ThreadStateWorking)
		start := p.clock.Now()
		panicked := j.execute(p.ctx, t.ID())
		duration := p.clock.Since(start)
		t.recordTask(start, panicked)
		atomic.AddInt64(&p.totalCompleted, 1)
		p.metrics.ObserveTask(duration, panicked)
		if panicked {
			log.WithField("task_id", j.task.ID()).Warn("task panicked")
		}
		p.handleError(log, j)

		idleSince = p.clock.Now()
		t.setState(ThreadStateIdle)
		finished = true
	}
}

// handleError passes a failed task's error to the configured handler.
// The result was published by this goroutine, so reading it needs no lock.
func (p *ThreadPool) handleError(log logrus.FieldLogger, j *job) {
	if p.config.ErrorHandler == nil || j.result.err == nil {
		return
	}
	if err := p.config.ErrorHandler(j.result.err); err != nil {
		log.WithError(err).WithField("task_id", j.task.ID()).Warn("error handler failed")
	}
}

// Shutdown stops accepting work for new workers to pick up and blocks until every
// worker has exited. Queued tasks are drained first and running tasks are not
// interrupted. Shutdown is idempotent. It must not be called from a task body.
func (p *ThreadPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.State() {
	case types.StateUnstarted:
		p.state.Store(int32(types.StateStopped))
		return
	case types.StateRunning:
		p.state.Store(int32(types.StateDraining))
		// the lock is held across the state change and the wake-up so no worker misses it
		p.notEmpty.Broadcast()
		p.logger.WithField("pending", p.queue.Len()).Info("thread pool draining")
	}

	for p.curWorkers.Load() > 0 {
		p.exited.Wait()
	}
	if p.State() != types.StateStopped {
		p.state.Store(int32(types.StateStopped))
		p.logger.Info("thread pool stopped")
	}
}

// Close implements io.Closer by calling Shutdown
func (p *ThreadPool) Close() error {
	p.Shutdown()
	return nil
}

// State returns the lifecycle state
func (p *ThreadPool) State() types.PoolState {
	return types.PoolState(p.state.Load())
}

// IsRunning checks if the pool accepts work for new tasks
func (p *ThreadPool) IsRunning() bool {
	return p.State() == types.StateRunning
}

// Name returns the pool name
func (p *ThreadPool) Name() string {
	return p.config.Name
}

// Mode returns the scaling mode
func (p *ThreadPool) Mode() types.Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.Mode
}

// QueueCapacity returns the queue admission limit
func (p *ThreadPool) QueueCapacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.QueueCapacity
}

// MaxWorkers returns the worker ceiling
func (p *ThreadPool) MaxWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.MaxWorkers
}

// QueueLength returns the number of pending tasks
func (p *ThreadPool) QueueLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// CurrentWorkers returns the number of live workers
func (p *ThreadPool) CurrentWorkers() int {
	return int(p.curWorkers.Load())
}

// IdleWorkers returns the number of live workers not executing a task
func (p *ThreadPool) IdleWorkers() int {
	return int(p.idleWorkers.Load())
}

// Stats returns a snapshot of the pool
func (p *ThreadPool) Stats() types.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return types.PoolStats{
		State:          p.State(),
		Mode:           p.config.Mode,
		InitialWorkers: p.initWorkers,
		MaxWorkers:     p.config.MaxWorkers,
		CurrentWorkers: int(p.curWorkers.Load()),
		IdleWorkers:    int(p.idleWorkers.Load()),
		QueueSize:      p.queue.Len(),
		QueueCapacity:  p.config.QueueCapacity,
		TotalSubmitted: atomic.LoadInt64(&p.totalSubmitted),
		TotalRejected:  atomic.LoadInt64(&p.totalRejected),
		TotalCompleted: atomic.LoadInt64(&p.totalCompleted),
	}
}

// Workers returns statistics of the live workers ordered by ID
func (p *ThreadPool) Workers() []ThreadStats {
	stats := make([]ThreadStats, 0, p.workers.Size())
	p.workers.Range(func(_ int, t *Thread) bool {
		stats = append(stats, t.Stats())
		return true
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats
}

func (p *ThreadPool) updateGaugesLocked() {
	p.metrics.SetGauges(p.queue.Len(), int(p.curWorkers.Load()), int(p.idleWorkers.Load()))
}
