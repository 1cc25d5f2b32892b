package agent

import (
	"time"

	"github.com/harun/cortex/pkg/session"
)

// State is the step loop state of a run
type State string

const (
	StateAwaitingPlan State = "awaiting_plan"
	StateExecuting    State = "executing"
	StateEvaluating   State = "evaluating"
	StateTerminal     State = "terminal"
)

// Result is what a run hands back to the caller
type Result struct {
	SessionID string          `json:"session_id"`
	Verdict   session.Verdict `json:"verdict"`
	Answer    string          `json:"answer,omitempty"`
	// Incomplete marks a partial answer returned from an aborted run
	Incomplete bool          `json:"incomplete,omitempty"`
	Failure    FailureKind   `json:"failure,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Steps      int           `json:"steps"`
	Retries    int           `json:"retries"`
	Duration   time.Duration `json:"duration"`
	// Records holds the steps appended by this run
	Records []session.StepRecord `json:"records,omitempty"`
}

// Final reports whether the run produced a validated final answer
func (r Result) Final() bool {
	return r.Verdict == session.VerdictFinal
}
