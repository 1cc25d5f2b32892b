package agent

import (
	"errors"

	"github.com/harun/cortex/pkg/dispatch"
)

var ErrMissingDependency = errors.New("missing runner dependency")

// FailureKind classifies why a step or call did not succeed
type FailureKind string

const (
	FailureNone                  FailureKind = ""
	FailureValidationBlocked     FailureKind = "validation_blocked"
	FailureValidationAdvisory    FailureKind = "validation_advisory_failed"
	FailureToolNotFound          FailureKind = "tool_not_found"
	FailureConnectionUnavailable FailureKind = "connection_unavailable"
	FailureTransport             FailureKind = "transport_failure"
	FailureRetryBudgetExhausted  FailureKind = "retry_budget_exhausted"
	FailureInvalidArguments      FailureKind = "invalid_arguments"
	FailureToolError             FailureKind = "tool_error"
	FailureDependency            FailureKind = "dependency_failed"
	FailureMalformedPlan         FailureKind = "malformed_plan"
	FailureOracle                FailureKind = "oracle_failure"
	FailureMaxSteps              FailureKind = "max_steps_reached"
	FailureCancelled             FailureKind = "cancelled"
)

// classify maps a dispatch error to a failure kind
func classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, dispatch.ErrToolNotFound):
		return FailureToolNotFound
	case errors.Is(err, dispatch.ErrConnectionUnavailable):
		return FailureConnectionUnavailable
	case errors.Is(err, dispatch.ErrInvalidArguments):
		return FailureInvalidArguments
	case errors.Is(err, dispatch.ErrTransport):
		return FailureTransport
	default:
		return FailureTransport
	}
}
