package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harun/cortex/internal/observability"
	"github.com/harun/cortex/internal/tracing"
	"github.com/harun/cortex/pkg/gate"
	"github.com/harun/cortex/pkg/oracle"
	"github.com/harun/cortex/pkg/plan"
	"github.com/harun/cortex/pkg/session"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// maxStepsReason matches the unsuccessful-output prefix the gate knows
const maxStepsReason = "Max steps reached"

// run is the mutable state of one Run call
type run struct {
	r      *Runner
	ctx    context.Context
	logger zerolog.Logger
	id     string

	mem     *session.Memory
	budget  *session.RetryBudget
	history []session.HistoryEntry

	state    State
	question string
	query    string
	partial  string
	steps    int
	retries  int
	records  []session.StepRecord
}

func (r *Runner) loop(ctx context.Context, logger zerolog.Logger, sessionID, query string) Result {
	mem, err := r.memory(ctx, sessionID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load session memory, starting empty")
		mem = session.NewMemory()
	}

	s := &run{
		r:      r,
		ctx:    ctx,
		logger: logger,
		id:     sessionID,
		mem:    mem,
		budget: session.NewRetryBudget(sessionID, r.cfg.MaxRetries),
		state:  StateAwaitingPlan,
	}

	q := r.validate(ctx, sessionID, query, gate.PipelineQuery)
	if !q.OK {
		// the rejected text itself is not kept
		s.record(session.StepRecord{
			Index:   mem.NextIndex(),
			Verdict: session.VerdictAborted,
			Note:    "query rejected: " + q.Reason(),
		})
		return s.abort(rejectionKind(q), q.Reason())
	}
	s.question = q.Value
	s.query = q.Value
	if r.cfg.History != nil {
		s.history = r.cfg.History.SearchRelevant(s.query, r.cfg.HistoryLimit)
	}

	for {
		if err := ctx.Err(); err != nil {
			return s.abort(FailureCancelled, err.Error())
		}
		if s.steps >= r.cfg.MaxSteps {
			return s.abort(FailureMaxSteps, maxStepsReason)
		}
		s.steps++
		if res, done := s.step(); done {
			return res
		}
	}
}

// step runs one awaiting_plan, executing, evaluating cycle. done reports a
// terminal result.
func (s *run) step() (Result, bool) {
	ctx, span := tracing.StartSpan(s.ctx, tracing.TracerAgent, "agent.step",
		attribute.Int("step", s.steps),
	)
	defer span.End()

	s.state = StateAwaitingPlan
	rec := session.StepRecord{Index: s.mem.NextIndex(), Query: s.query}

	text, err := s.generate(ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			return s.abort(FailureCancelled, s.ctx.Err().Error()), true
		}
		return s.fail(rec, FailureOracle, "oracle failed: "+err.Error())
	}
	rec.Plan = text

	pv := s.r.validate(ctx, s.id, text, gate.PipelinePlan)
	if !pv.OK {
		if pv.Blocked {
			rec.Verdict = session.VerdictAborted
			rec.Note = "plan blocked: " + pv.Reason()
			s.record(rec)
			return s.abort(FailureValidationBlocked, pv.Reason()), true
		}
		return s.fail(rec, planRejectionKind(pv), "plan rejected: "+pv.Reason())
	}

	p, err := plan.Parse(pv.Value)
	if err != nil {
		return s.fail(rec, FailureMalformedPlan, "plan malformed: "+err.Error())
	}

	s.state = StateExecuting
	outcomes := s.r.execute(ctx, s, p)
	if err := s.ctx.Err(); err != nil {
		// in-flight results are dropped
		rec.Verdict = session.VerdictAborted
		rec.Note = "cancelled"
		s.record(rec)
		return s.abort(FailureCancelled, err.Error()), true
	}
	rec.ToolResults = outcomes

	s.state = StateEvaluating
	if o, ok := blockedCall(outcomes); ok {
		rec.Verdict = session.VerdictAborted
		rec.Note = fmt.Sprintf("call %s blocked: %s", o.ToolName, o.Error)
		s.record(rec)
		return s.abort(FailureValidationBlocked, o.Error), true
	}
	s.notePartial(outcomes)

	if failed := failures(outcomes); len(failed) > 0 {
		return s.fail(rec, FailureKind(failed[0].Kind), failureNote(failed))
	}

	if p.Signal() == plan.SignalFinal {
		answer := plan.RenderFinal(p, outputsOf(outcomes))
		fv := s.r.validate(ctx, s.id, answer, gate.PipelineFinalAnswer)
		if !fv.OK {
			if fv.Blocked {
				rec.Verdict = session.VerdictAborted
				rec.Note = "final answer blocked: " + fv.Reason()
				s.record(rec)
				return s.abort(FailureValidationBlocked, fv.Reason()), true
			}
			return s.fail(rec, FailureValidationAdvisory, "final answer rejected: "+fv.Reason())
		}
		rec.Verdict = session.VerdictFinal
		s.record(rec)
		s.remember(fv.Value)
		return s.finish(fv.Value), true
	}

	if p.FurtherProcessing != "" {
		qv := s.r.validate(ctx, s.id, p.FurtherProcessing, gate.PipelineQuery)
		if !qv.OK {
			if qv.Blocked {
				rec.Verdict = session.VerdictAborted
				rec.Note = "follow-up query blocked: " + qv.Reason()
				s.record(rec)
				return s.abort(FailureValidationBlocked, qv.Reason()), true
			}
			return s.fail(rec, FailureValidationAdvisory, "follow-up query rejected: "+qv.Reason())
		}
		s.query = qv.Value
	}

	rec.Verdict = session.VerdictContinue
	s.record(rec)
	return Result{}, false
}

func (s *run) generate(ctx context.Context) (string, error) {
	o := s.r.cfg.Oracle
	start := time.Now()
	text, err := o.GeneratePlan(ctx, oracle.Request{
		Query:   s.query,
		Memory:  s.mem.Records(),
		Catalog: s.r.cfg.Dispatcher.Catalog(),
		History: s.history,
	})
	observability.RecordOracle(o.Name(), time.Since(start), err == nil)
	return text, err
}

// fail records a failed step and spends one retry on replanning. Once the
// budget is gone the session ends.
func (s *run) fail(rec session.StepRecord, kind FailureKind, note string) (Result, bool) {
	rec.Note = note
	observability.RecordRetry(string(kind))

	if !s.budget.Consume() {
		rec.Verdict = session.VerdictAborted
		s.record(rec)
		return s.abort(FailureRetryBudgetExhausted, note), true
	}
	s.retries++

	rec.Verdict = session.VerdictContinue
	s.record(rec)
	s.logger.Info().
		Str("failure", string(kind)).
		Str("note", note).
		Int("remaining", s.budget.Remaining()).
		Msg("Step failed, replanning")
	return Result{}, false
}

// notePartial keeps the latest successful outputs that also pass the final
// answer pipeline
func (s *run) notePartial(outcomes []session.ToolOutcome) {
	var parts []string
	for _, o := range outcomes {
		if o.OK {
			parts = append(parts, o.Output)
		}
	}
	if len(parts) == 0 {
		return
	}
	if v := s.r.cfg.Gate.Validate(strings.Join(parts, "\n"), gate.PipelineFinalAnswer); v.OK {
		s.partial = v.Value
	}
}

// record appends to memory and the store. Persistence outlives cancellation.
func (s *run) record(rec session.StepRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	s.mem.Append(rec)
	s.records = append(s.records, rec)
	observability.RecordStep(string(rec.Verdict))

	if store := s.r.cfg.Store; store != nil {
		if err := store.Append(context.WithoutCancel(s.ctx), s.id, rec); err != nil {
			s.logger.Warn().Err(err).Int("step", rec.Index).Msg("Failed to persist step record")
		}
	}
}

func (s *run) remember(answer string) {
	h := s.r.cfg.History
	if h == nil {
		return
	}
	err := h.Add(session.HistoryEntry{
		SessionID: s.id,
		Query:     s.question,
		Answer:    answer,
		Metadata:  map[string]string{"steps": strconv.Itoa(s.steps)},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record conversation history")
	}
}

func (s *run) finish(answer string) Result {
	s.state = StateTerminal
	return Result{
		SessionID: s.id,
		Verdict:   session.VerdictFinal,
		Answer:    answer,
		Steps:     s.steps,
		Retries:   s.retries,
		Records:   s.records,
	}
}

// abort ends the session with the last validated partial answer, if any
func (s *run) abort(kind FailureKind, reason string) Result {
	s.state = StateTerminal
	return Result{
		SessionID:  s.id,
		Verdict:    session.VerdictAborted,
		Answer:     s.partial,
		Incomplete: true,
		Failure:    kind,
		Reason:     reason,
		Steps:      s.steps,
		Retries:    s.retries,
		Records:    s.records,
	}
}

func rejectionKind(res gate.Result) FailureKind {
	if res.Blocked {
		return FailureValidationBlocked
	}
	return FailureValidationAdvisory
}

// planRejectionKind separates unknown tools and unreadable plans from other
// rule failures
func planRejectionKind(res gate.Result) FailureKind {
	if res.RuleID() != "H010" {
		return FailureValidationAdvisory
	}
	if strings.HasPrefix(res.Reason(), "unknown tool") {
		return FailureToolNotFound
	}
	return FailureMalformedPlan
}

func blockedCall(outcomes []session.ToolOutcome) (session.ToolOutcome, bool) {
	for _, o := range outcomes {
		if o.Kind == string(FailureValidationBlocked) {
			return o, true
		}
	}
	return session.ToolOutcome{}, false
}

func failures(outcomes []session.ToolOutcome) []session.ToolOutcome {
	var out []session.ToolOutcome
	for _, o := range outcomes {
		if !o.OK {
			out = append(out, o)
		}
	}
	return out
}

func failureNote(failed []session.ToolOutcome) string {
	parts := make([]string, 0, len(failed))
	for _, o := range failed {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", o.ToolName, o.Kind, o.Error))
	}
	return "tool calls failed: " + strings.Join(parts, "; ")
}

func outputsOf(outcomes []session.ToolOutcome) map[string]string {
	out := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		if o.OK {
			out[o.CallID] = o.Output
		}
	}
	return out
}
