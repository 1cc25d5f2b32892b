package config

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Config represents the main cortex configuration
type Config struct {
	// Agent step loop
	Agent AgentConfig `json:"agent" yaml:"agent" mapstructure:"agent"`

	// Tool providers
	Providers []ProviderConfig `json:"providers" yaml:"providers" mapstructure:"providers"`

	// Validation gate
	Validation ValidationConfig `json:"validation" yaml:"validation" mapstructure:"validation"`

	// Plan oracle
	Oracle OracleConfig `json:"oracle" yaml:"oracle" mapstructure:"oracle"`

	// Logging
	Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`

	// Session memory
	Memory MemoryConfig `json:"memory" yaml:"memory" mapstructure:"memory"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Tracing
	Tracing TracingConfig `json:"tracing" yaml:"tracing" mapstructure:"tracing"`

	// Data directory
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
}

// AgentConfig holds step loop limits
type AgentConfig struct {
	Name                  string `json:"name" yaml:"name" mapstructure:"name"`
	MaxSteps              int    `json:"max_steps" yaml:"max_steps" mapstructure:"max_steps"`
	MaxRetries            int    `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	ToolTimeoutSeconds    int    `json:"tool_timeout_seconds" yaml:"tool_timeout_seconds" mapstructure:"tool_timeout_seconds"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds" yaml:"connect_timeout_seconds" mapstructure:"connect_timeout_seconds"`
	MaxParallelCalls      int    `json:"max_parallel_calls" yaml:"max_parallel_calls" mapstructure:"max_parallel_calls"`
	HistoryLimit          int    `json:"history_limit" yaml:"history_limit" mapstructure:"history_limit"`
}

// ToolTimeout returns the per-call timeout
func (a AgentConfig) ToolTimeout() time.Duration {
	return time.Duration(a.ToolTimeoutSeconds) * time.Second
}

// ConnectTimeout returns the per-provider connect timeout
func (a AgentConfig) ConnectTimeout() time.Duration {
	return time.Duration(a.ConnectTimeoutSeconds) * time.Second
}

// ProviderConfig describes one tool provider process
type ProviderConfig struct {
	ID          string            `json:"id" yaml:"id" mapstructure:"id"`
	Command     string            `json:"command" yaml:"command" mapstructure:"command"`
	Args        []string          `json:"args" yaml:"args" mapstructure:"args"`
	// Env entries are KEY=VALUE; a list keeps key case intact
	Env         []string          `json:"env" yaml:"env" mapstructure:"env"`
	Description string            `json:"description" yaml:"description" mapstructure:"description"`
	Disabled    bool              `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// ValidationConfig tunes the gate pipelines
type ValidationConfig struct {
	MaxLength            int      `json:"max_length" yaml:"max_length" mapstructure:"max_length"`
	UnsuccessfulPrefixes []string `json:"unsuccessful_prefixes" yaml:"unsuccessful_prefixes" mapstructure:"unsuccessful_prefixes"`
	BlockedTerms         []string `json:"blocked_terms" yaml:"blocked_terms" mapstructure:"blocked_terms"`
	Mask                 string   `json:"mask" yaml:"mask" mapstructure:"mask"`
	DenylistFile         string   `json:"denylist_file" yaml:"denylist_file" mapstructure:"denylist_file"`
}

// OracleConfig selects the plan generator
type OracleConfig struct {
	Provider       string  `json:"provider" yaml:"provider" mapstructure:"provider"` // anthropic, openai, scripted
	Model          string  `json:"model" yaml:"model" mapstructure:"model"`
	APIKey         string  `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature    float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	ScriptFile     string  `json:"script_file" yaml:"script_file" mapstructure:"script_file"`
}

// Timeout returns the oracle request timeout
func (o OracleConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" yaml:"level" mapstructure:"level"`
	File      string `json:"file" yaml:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" yaml:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" yaml:"max_age" mapstructure:"max_age"`    // days
	Compress  bool   `json:"compress" yaml:"compress" mapstructure:"compress"`
	Pretty    bool   `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" yaml:"redaction" mapstructure:"redaction"`
	AuditFile string `json:"audit_file" yaml:"audit_file" mapstructure:"audit_file"`
}

// MemoryConfig locates session records and the conversation history
type MemoryConfig struct {
	Dir         string `json:"dir" yaml:"dir" mapstructure:"dir"`
	HistoryFile string `json:"history_file" yaml:"history_file" mapstructure:"history_file"`
	Persist     bool   `json:"persist" yaml:"persist" mapstructure:"persist"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName string  `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `json:"sample_ratio" yaml:"sample_ratio" mapstructure:"sample_ratio"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:                  "cortex",
			MaxSteps:              10,
			MaxRetries:            3,
			ToolTimeoutSeconds:    30,
			ConnectTimeoutSeconds: 30,
			MaxParallelCalls:      4,
			HistoryLimit:          3,
		},
		Providers: []ProviderConfig{},
		Validation: ValidationConfig{
			MaxLength: 10240,
			Mask:      "***",
		},
		Oracle: OracleConfig{
			Provider:       "anthropic",
			MaxTokens:      2048,
			TimeoutSeconds: 120,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Pretty:    true,
			Redaction: true,
		},
		Memory: MemoryConfig{
			Persist: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "cortex",
			SampleRatio: 1.0,
		},
	}
}

// EnvMap splits Env into a map. Entries without '=' are ignored.
func (p ProviderConfig) EnvMap() map[string]string {
	out := make(map[string]string, len(p.Env))
	for _, kv := range p.Env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// EnabledProviders returns providers that are not disabled
func (c *Config) EnabledProviders() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if !p.Disabled {
			out = append(out, p)
		}
	}
	return out
}

// secretEnvMarkers flag provider env keys whose values are credentials
var secretEnvMarkers = []string{"KEY", "TOKEN", "SECRET", "PASSWORD"}

// Secrets returns credential values the logger should mask: the oracle API
// key and provider env values whose key names a credential
func (c *Config) Secrets() []string {
	var out []string
	if c.Oracle.APIKey != "" {
		out = append(out, c.Oracle.APIKey)
	}
	for _, p := range c.Providers {
		for k, v := range p.EnvMap() {
			if v == "" {
				continue
			}
			upper := strings.ToUpper(k)
			for _, m := range secretEnvMarkers {
				if strings.Contains(upper, m) {
					out = append(out, v)
					break
				}
			}
		}
	}
	return out
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	if masked.Oracle.APIKey != "" {
		masked.Oracle.APIKey = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
