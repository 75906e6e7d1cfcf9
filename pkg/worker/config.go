package worker

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jzx17/threadpool/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultQueueCapacity is the default admission limit of the task queue
	DefaultQueueCapacity = 1024

	// DefaultMaxWorkers is the default worker ceiling in dynamic mode
	DefaultMaxWorkers = math.MaxInt32

	// DefaultIdleTimeout is how long a worker above the floor may stay idle in dynamic mode
	DefaultIdleTimeout = 60 * time.Second

	// DefaultIdlePollInterval is how often an idle dynamic worker re-checks its idle time
	DefaultIdlePollInterval = time.Second

	// DefaultSubmitTimeout bounds how long Submit waits for queue capacity
	DefaultSubmitTimeout = time.Second
)

// Config defines configuration for a thread pool
type Config struct {
	// Name identifies the pool in logs and metrics; a random one is generated when empty
	Name string `yaml:"name"`

	// Mode selects fixed or dynamic worker sizing
	Mode types.Mode `yaml:"mode"`

	// QueueCapacity is the maximum number of pending tasks
	QueueCapacity int `yaml:"queue_capacity"`

	// MaxWorkers is the worker ceiling, honoured in dynamic mode only
	MaxWorkers int `yaml:"max_workers"`

	// IdleTimeout is how long a worker above the floor may stay idle before it retires
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// IdlePollInterval is the timed wait an idle dynamic worker uses between idle checks
	IdlePollInterval time.Duration `yaml:"idle_poll_interval"`

	// SubmitTimeout bounds how long Submit waits for queue capacity
	SubmitTimeout time.Duration `yaml:"submit_timeout"`

	// SubmitRate limits admitted tasks per second; zero disables rate limiting
	SubmitRate float64 `yaml:"submit_rate"`

	// SubmitBurst is the rate limiter burst size
	SubmitBurst int `yaml:"submit_burst"`

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock `yaml:"-"`

	// Logger receives pool lifecycle events (optional, defaults to a stderr logger)
	Logger logrus.FieldLogger `yaml:"-"`

	// Registerer receives the pool metrics (optional, nil disables metrics)
	Registerer prometheus.Registerer `yaml:"-"`

	// ErrorHandler is called by the worker for every task that returned an error or panicked
	ErrorHandler types.ErrorHandler `yaml:"-"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Mode:             types.ModeFixed,
		QueueCapacity:    DefaultQueueCapacity,
		MaxWorkers:       DefaultMaxWorkers,
		IdleTimeout:      DefaultIdleTimeout,
		IdlePollInterval: DefaultIdlePollInterval,
		SubmitTimeout:    DefaultSubmitTimeout,
		Clock:            types.NewRealClock(),
	}
}

// Validate checks the configuration and fills in defaults for unset fields
func (c *Config) Validate() error {
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue capacity must be positive, got %d", types.ErrInvalidConfig, c.QueueCapacity)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("%w: max workers must be positive, got %d", types.ErrInvalidConfig, c.MaxWorkers)
	}
	if c.IdleTimeout < 0 || c.IdlePollInterval < 0 || c.SubmitTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", types.ErrInvalidConfig)
	}
	if c.SubmitRate < 0 || c.SubmitBurst < 0 {
		return fmt.Errorf("%w: submit rate and burst must not be negative", types.ErrInvalidConfig)
	}
	if c.Mode != types.ModeFixed && c.Mode != types.ModeDynamic {
		return fmt.Errorf("%w: unknown mode %d", types.ErrInvalidConfig, c.Mode)
	}

	if c.Name == "" {
		c.Name = uuid.NewString()
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.IdlePollInterval == 0 {
		c.IdlePollInterval = DefaultIdlePollInterval
	}
	if c.SubmitTimeout == 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}
	if c.SubmitRate > 0 && c.SubmitBurst == 0 {
		c.SubmitBurst = 1
	}
	if c.Clock == nil {
		c.Clock = types.NewRealClock()
	}
	if c.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.InfoLevel)
		c.Logger = logger
	}
	return nil
}
