package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreGlobal keeps tests from leaking their logger into other packages
func restoreGlobal(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
}

// TestNew tests sink selection
func TestNew(t *testing.T) {
	restoreGlobal(t)

	t.Run("console output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "info", Console: true, Output: buf})
		require.NoError(t, err)
		defer logger.Close()

		logger.Info().Str("session", "s1").Msg("session started")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "info", line["level"])
		assert.Equal(t, "s1", line["session"])
		assert.Equal(t, "session started", line["message"])
	})

	t.Run("pretty console output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "info", Console: true, Pretty: true, Output: buf})
		require.NoError(t, err)
		defer logger.Close()

		logger.Info().Msg("pretty line")
		assert.Contains(t, buf.String(), "pretty line")
		assert.False(t, strings.HasPrefix(buf.String(), "{"))
	})

	t.Run("plain file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "cortex.log")
		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)
		_, rotating := logger.file.(*RotatingWriter)
		assert.False(t, rotating)

		logger.Debug().Msg("file message")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "file message")
	})

	t.Run("rotating file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "cortex.log")
		logger, err := New(Config{Level: "info", File: logFile, MaxSize: 1, MaxAge: 7})
		require.NoError(t, err)
		_, rotating := logger.file.(*RotatingWriter)
		assert.True(t, rotating)

		logger.Info().Msg("rotating message")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "rotating message")
	})

	t.Run("console and file", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logFile := filepath.Join(t.TempDir(), "cortex.log")
		logger, err := New(Config{Level: "info", Console: true, Output: buf, File: logFile})
		require.NoError(t, err)

		logger.Info().Msg("both sinks")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "both sinks")
		assert.Contains(t, buf.String(), "both sinks")
	})

	t.Run("redaction", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "info", Console: true, Output: buf, Redaction: true})
		require.NoError(t, err)
		defer logger.Close()
		assert.NotNil(t, logger.redactor)

		logger.Info().Str("key", "sk-ant-REDACTED").Msg("oracle configured")
		assert.Contains(t, buf.String(), "[REDACTED]")
		assert.NotContains(t, buf.String(), "abcdefghijklmnop")
	})

	t.Run("redaction with secrets", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "info", Console: true, Output: buf, Redaction: true, Secrets: []string{"ghp_abcdef"}})
		require.NoError(t, err)
		defer logger.Close()

		logger.Info().Str("env", "GITHUB_TOKEN=ghp_abcdef").Msg("provider started")
		assert.Contains(t, buf.String(), "[REDACTED]")
		assert.NotContains(t, buf.String(), "ghp_abcdef")
	})

	t.Run("installs global logger", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "warn", Console: true, Output: buf})
		require.NoError(t, err)
		defer logger.Close()

		log.Info().Msg("filtered")
		log.Warn().Msg("kept")
		assert.NotContains(t, buf.String(), "filtered")
		assert.Contains(t, buf.String(), "kept")
	})
}

// TestLevelParsing tests level fallbacks
func TestLevelParsing(t *testing.T) {
	restoreGlobal(t)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(Config{Level: tt.level})
			require.NoError(t, err)
			defer logger.Close()
			assert.Equal(t, tt.want, logger.GetZerolog().GetLevel())
		})
	}
}

// TestLoggerMethods tests event constructors
func TestLoggerMethods(t *testing.T) {
	restoreGlobal(t)

	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "debug", Console: true, Output: buf})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	for _, msg := range []string{"debug message", "info message", "warn message", "error message"} {
		assert.Contains(t, buf.String(), msg)
	}

	child := logger.With().Str("component", "agent").Logger()
	child.Info().Msg("child")
	assert.Contains(t, buf.String(), `"component":"agent"`)
}

// TestDefaultConfig tests default values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}
