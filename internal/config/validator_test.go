package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAPIKey(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		key      string
		provider string
		wantErr  bool
	}{
		{"valid anthropic key", "sk-ant-test123", "anthropic", false},
		{"invalid anthropic key", "invalid-key", "anthropic", true},
		{"valid openai key", "sk-test123", "openai", false},
		{"invalid openai key", "invalid-key", "openai", true},
		{"empty key", "", "anthropic", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateAPIKey(tt.key, tt.provider)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOracleProvider(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateOracleProvider("anthropic"))
	assert.NoError(t, v.ValidateOracleProvider("openai"))
	assert.NoError(t, v.ValidateOracleProvider("scripted"))
	assert.Error(t, v.ValidateOracleProvider("gemini"))
	assert.Error(t, v.ValidateOracleProvider(""))
}

func TestValidateTemperature(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTemperature(0))
	assert.NoError(t, v.ValidateTemperature(1))
	assert.Error(t, v.ValidateTemperature(-0.1))
	assert.Error(t, v.ValidateTemperature(1.5))
}

func TestValidateMaxTokens(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateMaxTokens(2048))
	assert.Error(t, v.ValidateMaxTokens(0))
	assert.Error(t, v.ValidateMaxTokens(300000))
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level))
	}
	assert.Error(t, v.ValidateLogLevel("trace"))
}

func TestValidateProviders(t *testing.T) {
	v := NewValidator()

	t.Run("valid", func(t *testing.T) {
		errs := v.ValidateProviders([]ProviderConfig{
			{ID: "a", Command: "a-server", Env: []string{"K=V"}},
			{ID: "b", Command: "b-server"},
		})
		assert.Empty(t, errs)
	})

	t.Run("problems", func(t *testing.T) {
		errs := v.ValidateProviders([]ProviderConfig{
			{ID: "", Command: "x"},
			{ID: "a", Command: "a-server"},
			{ID: "a", Command: ""},
			{ID: "c", Command: "c-server", Env: []string{"NOEQUALS"}},
		})
		assert.Len(t, errs, 4)
	})
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative retries", func(c *Config) { c.Agent.MaxRetries = -1 }, "agent.max_retries"},
		{"zero tool timeout", func(c *Config) { c.Agent.ToolTimeoutSeconds = 0 }, "agent.tool_timeout_seconds"},
		{"negative max length", func(c *Config) { c.Validation.MaxLength = -5 }, "validation.max_length"},
		{"unknown oracle", func(c *Config) { c.Oracle.Provider = "gemini" }, "invalid oracle provider"},
		{"scripted without file", func(c *Config) { c.Oracle.Provider = "scripted" }, "script_file"},
		{"temperature", func(c *Config) { c.Oracle.Temperature = 3 }, "temperature"},
		{"metrics without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}, "metrics.addr"},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := v.ValidateConfig(cfg)
			if assert.Len(t, errs, 1) {
				assert.Contains(t, errs[0].Error(), tt.want)
			}
		})
	}

	assert.Empty(t, v.ValidateConfig(validConfig()))
}
