// Package metrics exposes Prometheus instrumentation for thread pools
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons used as the "reason" label
const (
	ReasonTimeout     = "timeout"
	ReasonNotRunning  = "not_running"
	ReasonRateLimited = "rate_limited"
	ReasonNilTask     = "nil_task"
)

// Worker exit reasons used as the "reason" label
const (
	ExitShutdown = "shutdown"
	ExitIdle     = "idle"
)

// PoolMetrics holds the metrics of one pool. A nil *PoolMetrics records nothing.
type PoolMetrics struct {
	QueueLength    prometheus.Gauge
	WorkersCurrent prometheus.Gauge
	WorkersIdle    prometheus.Gauge

	TasksSubmitted prometheus.Counter
	TasksRejected  *prometheus.CounterVec
	TasksCompleted prometheus.Counter
	TasksPanicked  prometheus.Counter

	WorkersCreated *prometheus.CounterVec
	WorkersExited  *prometheus.CounterVec

	TaskDuration prometheus.Histogram
	SubmitWait   prometheus.Histogram
}

// NewPoolMetrics registers the pool metrics on registerer, labelled with the pool name.
// A nil registerer returns nil, which disables instrumentation.
func NewPoolMetrics(registerer prometheus.Registerer, pool string) *PoolMetrics {
	if registerer == nil {
		return nil
	}

	reg := prometheus.WrapRegistererWith(prometheus.Labels{"pool": pool}, registerer)
	factory := promauto.With(reg)

	return &PoolMetrics{
		QueueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "threadpool_queue_length",
			Help: "Number of tasks waiting in the queue",
		}),
		WorkersCurrent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "threadpool_workers",
			Help: "Number of live workers",
		}),
		WorkersIdle: factory.NewGauge(prometheus.GaugeOpts{
			Name: "threadpool_workers_idle",
			Help: "Number of live workers not executing a task",
		}),
		TasksSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "threadpool_tasks_submitted_total",
			Help: "Total number of admitted tasks",
		}),
		TasksRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "threadpool_tasks_rejected_total",
			Help: "Total number of refused submissions",
		}, []string{"reason"}),
		TasksCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "threadpool_tasks_completed_total",
			Help: "Total number of executed tasks",
		}),
		TasksPanicked: factory.NewCounter(prometheus.CounterOpts{
			Name: "threadpool_tasks_panicked_total",
			Help: "Total number of tasks whose body panicked",
		}),
		WorkersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "threadpool_workers_created_total",
			Help: "Total number of workers started",
		}, []string{"trigger"}),
		WorkersExited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "threadpool_workers_exited_total",
			Help: "Total number of workers that exited",
		}, []string{"reason"}),
		TaskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "threadpool_task_duration_seconds",
			Help:    "Task execution time in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		SubmitWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "threadpool_submit_wait_seconds",
			Help:    "Time submitters spent waiting for queue capacity",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 9), // 100us to ~6.5s
		}),
	}
}

// ObserveSubmit records an admitted task and the time spent waiting for capacity
func (m *PoolMetrics) ObserveSubmit(wait time.Duration) {
	if m == nil {
		return
	}
	m.TasksSubmitted.Inc()
	m.SubmitWait.Observe(wait.Seconds())
}

// ObserveReject records a refused submission
func (m *PoolMetrics) ObserveReject(reason string) {
	if m == nil {
		return
	}
	m.TasksRejected.WithLabelValues(reason).Inc()
}

// ObserveTask records a finished task
func (m *PoolMetrics) ObserveTask(d time.Duration, panicked bool) {
	if m == nil {
		return
	}
	m.TasksCompleted.Inc()
	m.TaskDuration.Observe(d.Seconds())
	if panicked {
		m.TasksPanicked.Inc()
	}
}

// WorkerStarted records a new worker; trigger is "start" or "scale_up"
func (m *PoolMetrics) WorkerStarted(trigger string) {
	if m == nil {
		return
	}
	m.WorkersCreated.WithLabelValues(trigger).Inc()
}

// WorkerExited records a worker exit
func (m *PoolMetrics) WorkerExited(reason string) {
	if m == nil {
		return
	}
	m.WorkersExited.WithLabelValues(reason).Inc()
}

// SetGauges publishes the current queue and worker counts
func (m *PoolMetrics) SetGauges(queue, workers, idle int) {
	if m == nil {
		return
	}
	m.QueueLength.Set(float64(queue))
	m.WorkersCurrent.Set(float64(workers))
	m.WorkersIdle.Set(float64(idle))
}
