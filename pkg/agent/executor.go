package agent

import (
	"context"
	"fmt"

	"github.com/harun/cortex/internal/observability"
	"github.com/harun/cortex/pkg/gate"
	"github.com/harun/cortex/pkg/oracle"
	"github.com/harun/cortex/pkg/plan"
	"github.com/harun/cortex/pkg/session"
	"golang.org/x/sync/errgroup"
)

// execute runs the plan level by level. Calls within a level fan out; their
// outcomes are returned in the plan's declared order. Transport failures are
// retried after the level settles, in declared order, while the budget lasts.
// A call whose resolved arguments are blocked stops every later level.
// On cancellation it returns without waiting for in-flight calls.
func (r *Runner) execute(ctx context.Context, s *run, p *plan.Plan) []session.ToolOutcome {
	byID := make(map[string]session.ToolOutcome, len(p.Calls))
	outputs := make(map[string]string, len(p.Calls))
	blocked := false

	for _, level := range plan.Levels(p) {
		results := make([]session.ToolOutcome, len(level))
		g := new(errgroup.Group)
		g.SetLimit(r.cfg.MaxParallel)

		for i, c := range level {
			if s.ctx.Err() != nil {
				break
			}
			if dep, ok := failedDependency(c, byID); ok {
				results[i] = session.ToolOutcome{
					CallID:   c.ID,
					ToolName: c.Tool,
					Kind:     string(FailureDependency),
					Error:    fmt.Sprintf("skipped: dependency %s failed", dep),
				}
				continue
			}
			args := plan.ResolveArgs(c, outputs)
			g.Go(func() error {
				results[i] = r.call(ctx, s.id, c, args)
				return nil
			})
		}

		done := make(chan struct{})
		go func() {
			_ = g.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-s.ctx.Done():
			return nil
		}

		for i, c := range level {
			for results[i].Kind == string(FailureTransport) && s.ctx.Err() == nil {
				if !s.budget.Consume() {
					break
				}
				s.retries++
				observability.RecordRetry(string(FailureTransport))
				s.logger.Info().
					Str("tool", c.Tool).
					Str("call_id", c.ID).
					Int("remaining", s.budget.Remaining()).
					Msg("Retrying tool call after transport failure")

				attempts := results[i].Attempts
				results[i] = r.call(ctx, s.id, c, plan.ResolveArgs(c, outputs))
				results[i].Attempts = attempts + 1
			}
			byID[c.ID] = results[i]
			if results[i].OK {
				outputs[c.ID] = results[i].Output
			}
			if results[i].Kind == string(FailureValidationBlocked) {
				blocked = true
			}
		}
		if blocked {
			break
		}
	}

	out := make([]session.ToolOutcome, 0, len(p.Calls))
	for _, c := range p.Calls {
		if o, ok := byID[c.ID]; ok {
			out = append(out, o)
		}
	}
	return out
}

// call screens the resolved arguments, dispatches the call detached from
// caller cancellation and bounded by the tool timeout, then validates its
// output. Arguments that fail the screen are never dispatched.
func (r *Runner) call(ctx context.Context, sessionID string, c plan.Call, args map[string]any) session.ToolOutcome {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.ToolTimeout)
	defer cancel()

	out := session.ToolOutcome{
		CallID:   c.ID,
		ToolName: c.Tool,
		Args:     oracle.EncodeArgs(args),
	}

	if av := r.validate(callCtx, sessionID, out.Args, gate.PipelineCallArgs); !av.OK {
		out.Kind = string(FailureValidationAdvisory)
		if av.Blocked {
			out.Kind = string(FailureValidationBlocked)
		}
		out.Error = av.Reason()
		return out
	}

	out.Attempts = 1

	res, err := r.cfg.Dispatcher.Dispatch(callCtx, c.Tool, args)
	switch {
	case err != nil:
		out.Kind = string(classify(err))
		out.Error = err.Error()
	case !res.OK:
		out.Kind = string(FailureToolError)
		out.Error = res.ErrorMessage
	default:
		v := r.validate(callCtx, sessionID, res.Payload, gate.PipelineToolOutput)
		if !v.OK {
			out.Kind = string(FailureValidationAdvisory)
			out.Error = "malformed tool output: " + v.Reason()
			break
		}
		out.OK = true
		out.Output = v.Value
	}
	return out
}

func failedDependency(c plan.Call, byID map[string]session.ToolOutcome) (string, bool) {
	for _, dep := range c.DependsOn {
		if o, ok := byID[dep]; ok && !o.OK {
			return dep, true
		}
	}
	return "", false
}
