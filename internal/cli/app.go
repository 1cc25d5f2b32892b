package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harun/cortex/internal/config"
	"github.com/harun/cortex/internal/logger"
	"github.com/harun/cortex/internal/observability"
	"github.com/harun/cortex/internal/tracing"
	"github.com/harun/cortex/pkg/agent"
	"github.com/harun/cortex/pkg/dispatch"
	"github.com/harun/cortex/pkg/gate"
	"github.com/harun/cortex/pkg/heuristics"
	"github.com/harun/cortex/pkg/oracle"
	"github.com/harun/cortex/pkg/provider"
	"github.com/harun/cortex/pkg/session"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// loadConfig reads the config file and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// setupLogging installs the global logger. Console logs go to w so stdout
// stays free for answers.
func setupLogging(cfg *config.Config, w io.Writer) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Secrets:   cfg.Secrets(),
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
		Output:    w,
	})
}

// buildGate assembles the standard pipelines from the validation settings
func buildGate(cfg *config.Config, lookup heuristics.ToolLookup) (*gate.Gate, error) {
	families, err := heuristics.LoadFamilies(cfg.Validation.DenylistFile)
	if err != nil {
		return nil, err
	}
	return gate.NewDefault(gate.Options{
		MaxLength:            cfg.Validation.MaxLength,
		UnsuccessfulPrefixes: cfg.Validation.UnsuccessfulPrefixes,
		BlockedTerms:         cfg.Validation.BlockedTerms,
		Mask:                 cfg.Validation.Mask,
		Families:             families,
		Lookup:               lookup,
	})
}

// openDispatcher connects every enabled provider
func openDispatcher(ctx context.Context, cfg *config.Config) (*dispatch.Dispatcher, error) {
	providers := cfg.EnabledProviders()
	connectors := make([]provider.Connector, 0, len(providers))
	for _, p := range providers {
		connectors = append(connectors, provider.NewMCPCommand(p.ID, p.Command, p.Args, p.EnvMap()))
	}
	return dispatch.Open(ctx, dispatch.Options{ConnectTimeout: cfg.Agent.ConnectTimeout()}, connectors...)
}

// app is the fully wired agent for the run command
type app struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	runner     *agent.Runner
	history    *session.History
	metrics    *http.Server
	audit      bool
	tracing    bool
}

// newApp wires configuration into a runner
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{cfg: cfg}
	observability.EnsureRegistered()

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName, cfg.Tracing.SampleRatio); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
		} else {
			a.tracing = true
		}
	}

	if cfg.Logging.AuditFile != "" {
		if err := observability.InitAuditLogger(cfg.Logging.AuditFile); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize audit logger, audit events are discarded")
		} else {
			a.audit = true
			log.Info().Str("path", cfg.Logging.AuditFile).Msg("Audit logger initialized")
		}
	}

	d, err := openDispatcher(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open providers: %w", err)
	}
	a.dispatcher = d

	g, err := buildGate(cfg, d.Registry().Has)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build validation gate: %w", err)
	}

	o, err := oracle.New(oracle.Config{
		Provider:    cfg.Oracle.Provider,
		Model:       cfg.Oracle.Model,
		APIKey:      cfg.Oracle.APIKey,
		MaxTokens:   cfg.Oracle.MaxTokens,
		Temperature: cfg.Oracle.Temperature,
		Timeout:     cfg.Oracle.Timeout(),
		ScriptFile:  cfg.Oracle.ScriptFile,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create oracle: %w", err)
	}

	var store *session.Store
	historyPath := ""
	if cfg.Memory.Persist {
		if store, err = session.NewStore(cfg.Memory.Dir); err != nil {
			a.Close()
			return nil, err
		}
		historyPath = cfg.Memory.HistoryFile
	}
	if a.history, err = session.OpenHistory(historyPath); err != nil {
		a.Close()
		return nil, err
	}

	a.runner, err = agent.NewRunner(agent.Config{
		Gate:         g,
		Dispatcher:   d,
		Oracle:       o,
		Store:        store,
		History:      a.history,
		MaxSteps:     cfg.Agent.MaxSteps,
		MaxRetries:   cfg.Agent.MaxRetries,
		ToolTimeout:  cfg.Agent.ToolTimeout(),
		MaxParallel:  cfg.Agent.MaxParallelCalls,
		HistoryLimit: cfg.Agent.HistoryLimit,
		Logger:       log.Logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.startMetrics(cfg.Metrics.Addr)
	}

	log.Info().
		Str("oracle", o.Name()).
		Int("tools", d.Registry().Len()).
		Strs("providers", d.ProviderIDs()).
		Msg("Agent ready")
	return a, nil
}

func (a *app) startMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// Close releases everything newApp opened
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close providers")
		}
	}
	if a.tracing {
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to flush traces")
		}
	}
	if a.audit {
		if err := observability.GetAuditLogger().Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close audit log")
		}
		observability.SetAuditLogger(observability.NewAuditLogger(io.Discard))
	}
}
