// Package cond provides a condition variable whose Wait can time out.
//
// It mirrors sync.Cond (the caller holds L around every call) but parks each
// waiter on its own channel, so a waiter can give up after a deadline and
// Signal wakes waiters in arrival order.
package cond

import (
	"sync"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
)

// Cond is a condition variable bound to the locker L
type Cond struct {
	L     sync.Locker
	clock types.Clock

	waiters []chan struct{}
}

// New creates a Cond bound to l. A nil clock uses real time.
func New(l sync.Locker, clock types.Clock) *Cond {
	if clock == nil {
		clock = types.NewRealClock()
	}
	return &Cond{L: l, clock: clock}
}

// Wait atomically unlocks L and suspends the caller until Signal or Broadcast.
// L is held again when Wait returns.
func (c *Cond) Wait() {
	ch := c.enqueue()
	c.L.Unlock()
	<-ch
	c.L.Lock()
}

// WaitTimeout is Wait bounded by d. It returns false if d elapsed without a wake-up.
// L is held again when WaitTimeout returns.
func (c *Cond) WaitTimeout(d time.Duration) bool {
	if d <= 0 {
		return false
	}

	ch := c.enqueue()
	timer := c.clock.NewTimer(d)
	c.L.Unlock()

	select {
	case <-ch:
		timer.Stop()
		c.L.Lock()
		return true
	case <-timer.C():
	}

	c.L.Lock()
	// a Signal may have raced the timer; if we were already dequeued we own that wake-up
	if !c.remove(ch) {
		return true
	}
	return false
}

// Signal wakes the longest waiting goroutine, if any. The caller must hold L.
func (c *Cond) Signal() {
	if len(c.waiters) == 0 {
		return
	}
	ch := c.waiters[0]
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
	close(ch)
}

// Broadcast wakes every waiting goroutine. The caller must hold L.
func (c *Cond) Broadcast() {
	for _, ch := range c.waiters {
		close(ch)
	}
	c.waiters = nil
}

// Waiters returns the number of parked goroutines. The caller must hold L.
func (c *Cond) Waiters() int {
	return len(c.waiters)
}

func (c *Cond) enqueue() chan struct{} {
	ch := make(chan struct{})
	c.waiters = append(c.waiters, ch)
	return ch
}

func (c *Cond) remove(ch chan struct{}) bool {
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}
