package types

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	clock := NewRealClock()

	start := clock.Now()
	timer := clock.NewTimer(10 * time.Millisecond)
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	if clock.Since(start) < 10*time.Millisecond {
		t.Errorf("expected at least 10ms to elapse")
	}

	stopped := clock.NewTimer(time.Hour)
	if !stopped.Stop() {
		t.Errorf("expected Stop to report an active timer")
	}
}
