// Package types defines core interfaces and types shared by the thread pool packages
package types

import (
	"context"
	"fmt"
	"strings"
)

// Task defines a unit of deferred work
type Task interface {
	// Run executes the task body and returns the produced value.
	// A task that produces nothing returns a nil value.
	Run(ctx context.Context) (any, error)

	// ID returns the task ID (for tracking)
	ID() string
}

// Mode defines how a pool sizes its set of workers
type Mode int32

const (
	// ModeFixed keeps exactly the initial number of workers for the pool's lifetime
	ModeFixed Mode = iota
	// ModeDynamic grows on demand up to a ceiling and retires idle workers down to the initial count
	ModeDynamic
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case ModeFixed, ModeDynamic:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("unknown mode %d", int32(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "fixed", "":
		*m = ModeFixed
	case "dynamic", "cached":
		*m = ModeDynamic
	default:
		return fmt.Errorf("unknown mode %q", string(text))
	}
	return nil
}

// PoolState defines the lifecycle state of a pool
type PoolState int32

const (
	// StateUnstarted pool has been created but not started; configuration is mutable
	StateUnstarted PoolState = iota
	// StateRunning pool accepts and executes tasks
	StateRunning
	// StateDraining shutdown was requested; workers exit once the queue is empty
	StateDraining
	// StateStopped every worker has exited
	StateStopped
)

// String returns the string representation of PoolState
func (ps PoolState) String() string {
	switch ps {
	case StateUnstarted:
		return "Unstarted"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// PoolStats defines a point-in-time snapshot of a pool
type PoolStats struct {
	// State is the lifecycle state
	State PoolState

	// Mode is the scaling mode
	Mode Mode

	// InitialWorkers is the worker floor requested at start
	InitialWorkers int

	// MaxWorkers is the worker ceiling (dynamic mode only)
	MaxWorkers int

	// CurrentWorkers is the number of live workers
	CurrentWorkers int

	// IdleWorkers is the number of live workers not executing a task
	IdleWorkers int

	// QueueSize is the current number of pending tasks
	QueueSize int

	// QueueCapacity is the admission limit of the queue
	QueueCapacity int

	// TotalSubmitted counts admitted tasks
	TotalSubmitted int64

	// TotalRejected counts refused submissions
	TotalRejected int64

	// TotalCompleted counts executed tasks
	TotalCompleted int64
}

// ActiveWorkers returns the number of workers currently executing a task
func (s PoolStats) ActiveWorkers() int {
	if active := s.CurrentWorkers - s.IdleWorkers; active > 0 {
		return active
	}
	return 0
}

// ErrorHandler observes task failures. A non-nil return is logged by the pool.
type ErrorHandler func(error) error
