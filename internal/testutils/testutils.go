// Package testutils provides shared helpers for the thread pool tests
package testutils

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every blocking wait in tests
const DefaultTimeout = 5 * time.Second

// Context returns a context cancelled after DefaultTimeout or at test cleanup
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	t.Cleanup(cancel)
	return ctx
}

// QuietLogger returns a logger that discards output
func QuietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// RequireClosed fails the test if ch is not closed within timeout
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.FailNow(t, "channel not closed in time", msgAndArgs...)
	}
}

// RunAsync runs fn in a goroutine and returns a channel closed when it returns
func RunAsync(fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return done
}
