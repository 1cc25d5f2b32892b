package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLanes tests per-key serialization
func TestLanes(t *testing.T) {
	l := newLanes()

	release, err := l.acquire(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, l.busy("a"))

	other, err := l.acquire(context.Background(), "b")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.acquire(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		next, err := l.acquire(context.Background(), "a")
		if err == nil {
			next()
		}
		close(acquired)
	}()

	release()
	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
	assert.False(t, l.busy("a"))
}
