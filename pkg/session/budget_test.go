package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRetryBudget tests attempts accounting and exhaustion
func TestRetryBudget(t *testing.T) {
	b := NewRetryBudget("s1", 2)

	assert.True(t, b.CanRetry())
	assert.Equal(t, 2, b.Remaining())

	assert.True(t, b.Consume())
	assert.True(t, b.Consume())
	assert.True(t, b.Exhausted())
	assert.Equal(t, 0, b.Remaining())

	// exhausted budgets are left untouched
	assert.False(t, b.Consume())
	assert.Equal(t, 2, b.Attempts)
}

// TestRetryBudget_Zero tests a budget that allows no retries
func TestRetryBudget_Zero(t *testing.T) {
	for _, max := range []int{0, -1} {
		b := NewRetryBudget("s1", max)
		assert.True(t, b.Exhausted())
		assert.False(t, b.Consume())
		assert.Equal(t, 0, b.Max)
	}
}
