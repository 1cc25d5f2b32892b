// Package oracle is the boundary to the external plan generator. An oracle
// turns a query, the session's step memory and the tool catalog into plan
// text; it never executes anything.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/cortex/pkg/dispatch"
	"github.com/harun/cortex/pkg/session"
)

var (
	ErrNoResponse          = errors.New("oracle returned no content")
	ErrUnsupportedProvider = errors.New("unsupported oracle provider")
)

// Request is everything the oracle sees for one step
type Request struct {
	Query   string
	Memory  []session.StepRecord
	Catalog []dispatch.CatalogEntry
	// History holds related answers from earlier sessions
	History []session.HistoryEntry
}

// Oracle produces plan text for a step
type Oracle interface {
	Name() string
	GeneratePlan(ctx context.Context, req Request) (string, error)
}

// Config selects and configures an oracle
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// ScriptFile holds canned plans for the scripted provider
	ScriptFile string
}

// Defaults
const (
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultMaxTokens      = 2048
)

// New builds the configured oracle
func New(cfg Config) (Oracle, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	switch cfg.Provider {
	case "anthropic":
		if cfg.Model == "" {
			cfg.Model = DefaultAnthropicModel
		}
		return NewAnthropic(cfg), nil
	case "openai":
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
		return NewOpenAI(cfg), nil
	case "scripted":
		return LoadScript(cfg.ScriptFile)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
