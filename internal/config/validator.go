package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

var (
	validOracleProviders = []string{"anthropic", "openai", "scripted"}
	validLogLevels       = []string{"debug", "info", "warn", "error"}
)

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateOracleProvider validates the oracle provider name
func (v *Validator) ValidateOracleProvider(provider string) error {
	for _, valid := range validOracleProviders {
		if provider == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid oracle provider: %q (must be one of: %s)", provider, strings.Join(validOracleProviders, ", "))
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	for _, valid := range validLogLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLogLevels, ", "))
}

// ValidateProviders checks ids and commands of the tool providers
func (v *Validator) ValidateProviders(providers []ProviderConfig) []error {
	var errors []error
	seen := make(map[string]bool, len(providers))
	for i, p := range providers {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			errors = append(errors, fmt.Errorf("provider %d: id is required", i))
			continue
		}
		if seen[id] {
			errors = append(errors, fmt.Errorf("provider %d: duplicate id %q", i, id))
		}
		seen[id] = true
		if strings.TrimSpace(p.Command) == "" {
			errors = append(errors, fmt.Errorf("provider %s: command is required", id))
		}
		for _, kv := range p.Env {
			if !strings.Contains(kv, "=") {
				errors = append(errors, fmt.Errorf("provider %s: env entry %q must be KEY=VALUE", id, kv))
			}
		}
	}
	return errors
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	// Agent limits
	if cfg.Agent.MaxSteps <= 0 {
		errors = append(errors, fmt.Errorf("agent.max_steps must be > 0"))
	}
	if cfg.Agent.MaxRetries < 0 {
		errors = append(errors, fmt.Errorf("agent.max_retries must be >= 0"))
	}
	if cfg.Agent.ToolTimeoutSeconds <= 0 {
		errors = append(errors, fmt.Errorf("agent.tool_timeout_seconds must be > 0"))
	}
	if cfg.Agent.ConnectTimeoutSeconds < 0 {
		errors = append(errors, fmt.Errorf("agent.connect_timeout_seconds must be >= 0"))
	}
	if cfg.Agent.MaxParallelCalls < 0 {
		errors = append(errors, fmt.Errorf("agent.max_parallel_calls must be >= 0"))
	}

	errors = append(errors, v.ValidateProviders(cfg.Providers)...)

	// Validation gate
	if cfg.Validation.MaxLength < 0 {
		errors = append(errors, fmt.Errorf("validation.max_length must be >= 0"))
	}

	// Oracle
	if err := v.ValidateOracleProvider(cfg.Oracle.Provider); err != nil {
		errors = append(errors, err)
	}
	switch cfg.Oracle.Provider {
	case "anthropic", "openai":
		if err := v.ValidateAPIKey(cfg.Oracle.APIKey, cfg.Oracle.Provider); err != nil {
			errors = append(errors, fmt.Errorf("oracle: %w", err))
		}
	case "scripted":
		if strings.TrimSpace(cfg.Oracle.ScriptFile) == "" {
			errors = append(errors, fmt.Errorf("oracle: script_file is required for the scripted provider"))
		}
	}
	if cfg.Oracle.Temperature != 0 {
		if err := v.ValidateTemperature(cfg.Oracle.Temperature); err != nil {
			errors = append(errors, fmt.Errorf("oracle: %w", err))
		}
	}
	if cfg.Oracle.MaxTokens != 0 {
		if err := v.ValidateMaxTokens(cfg.Oracle.MaxTokens); err != nil {
			errors = append(errors, fmt.Errorf("oracle: %w", err))
		}
	}

	// Logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	// Metrics and tracing
	if cfg.Metrics.Enabled && strings.TrimSpace(cfg.Metrics.Addr) == "" {
		errors = append(errors, fmt.Errorf("metrics.addr is required when metrics are enabled"))
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errors = append(errors, fmt.Errorf("tracing.sample_ratio must be between 0 and 1"))
	}

	return errors
}
