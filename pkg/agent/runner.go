package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harun/cortex/internal/observability"
	"github.com/harun/cortex/internal/tracing"
	"github.com/harun/cortex/pkg/dispatch"
	"github.com/harun/cortex/pkg/gate"
	"github.com/harun/cortex/pkg/oracle"
	"github.com/harun/cortex/pkg/provider"
	"github.com/harun/cortex/pkg/session"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Defaults applied by NewRunner
const (
	DefaultMaxSteps     = 10
	DefaultToolTimeout  = 30 * time.Second
	DefaultMaxParallel  = 4
	DefaultHistoryLimit = 3
)

// Dispatcher executes tool calls and exposes the catalog the oracle plans
// against. *dispatch.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) (provider.Result, error)
	Catalog() []dispatch.CatalogEntry
}

// Config holds runner configuration
type Config struct {
	Gate       *gate.Gate
	Dispatcher Dispatcher
	Oracle     oracle.Oracle
	// Store persists step records; nil keeps memory in process only
	Store *session.Store
	// History feeds related earlier answers to the oracle; optional
	History *session.History

	MaxSteps     int
	MaxRetries   int // per-session retry budget, zero disables retries
	ToolTimeout  time.Duration
	MaxParallel  int
	HistoryLimit int
	Logger       zerolog.Logger
}

// Runner drives sessions through the step loop
type Runner struct {
	cfg    Config
	logger zerolog.Logger
	lanes  *lanes

	memories map[string]*session.Memory
	memMu    sync.Mutex

	// Active runs for abort capability
	activeRuns map[string]context.CancelFunc
	runsMu     sync.Mutex
}

// NewRunner creates a runner
func NewRunner(cfg Config) (*Runner, error) {
	observability.EnsureRegistered()

	if cfg.Gate == nil {
		return nil, fmt.Errorf("%w: gate", ErrMissingDependency)
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher", ErrMissingDependency)
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("%w: oracle", ErrMissingDependency)
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	return &Runner{
		cfg:        cfg,
		logger:     cfg.Logger,
		lanes:      newLanes(),
		memories:   make(map[string]*session.Memory),
		activeRuns: make(map[string]context.CancelFunc),
	}, nil
}

// Run answers query within a session. An empty sessionID starts a new
// session. Every failure inside the loop is reported through the Result; the
// error is reserved for an unusable session id.
func (r *Runner) Run(ctx context.Context, sessionID, query string) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		sessionID = tracing.NewID()
	}
	if err := session.ValidateSessionID(sessionID); err != nil {
		return Result{}, err
	}

	start := time.Now()
	ctx = tracing.NewRunContext(ctx, sessionID)
	ctx, span := tracing.StartSpan(ctx, tracing.TracerAgent, "agent.run",
		attribute.String("session_id", sessionID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, r.logger).With().Str("session_id", sessionID).Logger()

	release, err := r.lanes.acquire(ctx, sessionID)
	if err != nil {
		logger.Warn().Err(err).Msg("Run cancelled while waiting for session")
		return Result{
			SessionID:  sessionID,
			Verdict:    session.VerdictAborted,
			Incomplete: true,
			Failure:    FailureCancelled,
			Reason:     err.Error(),
		}, nil
	}
	defer release()

	runCtx, cancel := context.WithCancel(ctx)
	r.track(sessionID, cancel)
	defer func() {
		r.untrack(sessionID)
		cancel()
	}()

	observability.SessionStarted()
	defer observability.SessionFinished()

	logger.Info().Msg("Agent run started")
	result := r.loop(runCtx, logger, sessionID, query)
	result.Duration = time.Since(start)

	observability.RecordSession(string(result.Verdict), result.Duration)
	observability.RecordSessionAudit(ctx, sessionID, string(result.Verdict), map[string]interface{}{
		"failure":    string(result.Failure),
		"steps":      result.Steps,
		"retries":    result.Retries,
		"incomplete": result.Incomplete,
	})

	span.SetAttributes(
		attribute.String("agent.verdict", string(result.Verdict)),
		attribute.Int("agent.steps", result.Steps),
	)
	if result.Failure != FailureNone {
		span.SetStatus(codes.Error, string(result.Failure))
		logger.Warn().
			Str("failure", string(result.Failure)).
			Str("reason", result.Reason).
			Int("steps", result.Steps).
			Dur("duration", result.Duration).
			Msg("Agent run aborted")
	} else {
		logger.Info().
			Int("steps", result.Steps).
			Int("retries", result.Retries).
			Dur("duration", result.Duration).
			Msg("Agent run completed")
	}
	return result, nil
}

// Abort cancels the active run of a session. It reports whether a run was
// active.
func (r *Runner) Abort(sessionID string) bool {
	r.runsMu.Lock()
	defer r.runsMu.Unlock()

	cancel, exists := r.activeRuns[sessionID]
	if !exists {
		r.logger.Debug().Str("session_id", sessionID).Msg("No active run to abort")
		return false
	}

	r.logger.Info().Str("session_id", sessionID).Msg("Aborting agent run")
	cancel()
	delete(r.activeRuns, sessionID)
	return true
}

// Active reports whether a run currently holds the session
func (r *Runner) Active(sessionID string) bool {
	return r.lanes.busy(sessionID)
}

// Memory returns the step records known for a session
func (r *Runner) Memory(ctx context.Context, sessionID string) ([]session.StepRecord, error) {
	mem, err := r.memory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return mem.Records(), nil
}

func (r *Runner) track(sessionID string, cancel context.CancelFunc) {
	r.runsMu.Lock()
	r.activeRuns[sessionID] = cancel
	r.runsMu.Unlock()
}

func (r *Runner) untrack(sessionID string) {
	r.runsMu.Lock()
	delete(r.activeRuns, sessionID)
	r.runsMu.Unlock()
}

// memory returns the cached memory of a session, seeding it from the store
func (r *Runner) memory(ctx context.Context, sessionID string) (*session.Memory, error) {
	r.memMu.Lock()
	defer r.memMu.Unlock()

	if mem, ok := r.memories[sessionID]; ok {
		return mem, nil
	}

	var records []session.StepRecord
	if r.cfg.Store != nil {
		loaded, err := r.cfg.Store.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		records = loaded
	}
	mem := session.NewMemory(records...)
	r.memories[sessionID] = mem
	return mem, nil
}

// validate runs the gate and records the outcome. The gate itself stays
// free of side effects.
func (r *Runner) validate(ctx context.Context, sessionID, content string, id gate.PipelineID) gate.Result {
	res := r.cfg.Gate.Validate(content, id)
	observability.RecordValidation(string(id), res.OK, res.Blocked)
	if !res.OK {
		observability.RecordValidationAudit(ctx, sessionID, string(id), res.RuleID(), res.Reason(), res.Blocked)
	}
	return res
}
