package session

import "github.com/harun/cortex/pkg/heuristics"

// RetryBudget bounds how many failed steps a session may retry.
// Only the step loop mutates it.
type RetryBudget struct {
	SessionID string `json:"session_id"`
	Attempts  int    `json:"attempts"`
	Max       int    `json:"max"`
}

// NewRetryBudget returns an unused budget
func NewRetryBudget(sessionID string, max int) *RetryBudget {
	if max < 0 {
		max = 0
	}
	return &RetryBudget{SessionID: sessionID, Max: max}
}

// CanRetry reports attempts < max
func (b *RetryBudget) CanRetry() bool {
	return heuristics.CheckRetryLimit(b.Attempts, b.Max).Passed
}

// Consume uses one attempt. It reports false, without consuming, when the
// budget is already exhausted.
func (b *RetryBudget) Consume() bool {
	if !b.CanRetry() {
		return false
	}
	b.Attempts++
	return true
}

// Exhausted reports attempts >= max
func (b *RetryBudget) Exhausted() bool {
	return !b.CanRetry()
}

// Remaining returns the unused attempts
func (b *RetryBudget) Remaining() int {
	if r := b.Max - b.Attempts; r > 0 {
		return r
	}
	return 0
}
