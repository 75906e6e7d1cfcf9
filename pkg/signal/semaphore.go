// Package signal provides a counting semaphore used to wait for published results.
//
// A Semaphore created with NewSemaphore(0) blocks every Wait until a matching
// Post arrives, which is how a result slot makes its waiter sleep until a worker
// publishes into it. Any number of goroutines may Wait and Post concurrently.
package signal

import (
	"context"
	"sync"
)

// Semaphore is a blocking counter: Wait takes one unit, Post adds one
type Semaphore struct {
	mu    sync.Mutex
	count int
	// wake is closed and replaced on every Post so all sleepers re-check count
	wake chan struct{}
}

// NewSemaphore creates a semaphore holding n units
func NewSemaphore(n int) *Semaphore {
	if n < 0 {
		n = 0
	}
	return &Semaphore{
		count: n,
		wake:  make(chan struct{}),
	}
}

// Wait blocks until the count is positive, then decrements it
func (s *Semaphore) Wait() {
	_ = s.WaitContext(context.Background())
}

// WaitContext is Wait bounded by ctx; it returns ctx.Err() without taking a unit on cancellation
func (s *Semaphore) WaitContext(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.count > 0 {
			s.count--
			s.mu.Unlock()
			return nil
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryWait takes a unit if one is available without blocking
func (s *Semaphore) TryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// Post increments the count and wakes every waiter
func (s *Semaphore) Post() {
	s.mu.Lock()
	s.count++
	close(s.wake)
	s.wake = make(chan struct{})
	s.mu.Unlock()
}

// Count returns the number of available units
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
