package observability

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

// TestRecordValidation tests outcome labelling
func TestRecordValidation(t *testing.T) {
	m := getMetrics()
	before := counterValue(t, m.gateValidations.WithLabelValues("query", "blocked"))

	RecordValidation("query", false, true)
	RecordValidation("query", false, false)
	RecordValidation("query", true, false)

	assert.Equal(t, before+1, counterValue(t, m.gateValidations.WithLabelValues("query", "blocked")))
	assert.GreaterOrEqual(t, counterValue(t, m.gateValidations.WithLabelValues("query", "rejected")), 1.0)
	assert.GreaterOrEqual(t, counterValue(t, m.gateValidations.WithLabelValues("query", "pass")), 1.0)
}

// TestSetConnectionState tests the one-hot state gauge
func TestSetConnectionState(t *testing.T) {
	m := getMetrics()

	SetConnectionState("docs", "ready")
	assert.Equal(t, 1.0, gaugeValue(t, m.connectionState.WithLabelValues("docs", "ready")))

	SetConnectionState("docs", "broken")
	assert.Equal(t, 0.0, gaugeValue(t, m.connectionState.WithLabelValues("docs", "ready")))
	assert.Equal(t, 1.0, gaugeValue(t, m.connectionState.WithLabelValues("docs", "broken")))
}

// TestMetricsHandler tests the exposition endpoint
func TestMetricsHandler(t *testing.T) {
	RecordDispatch("search", "ok", 10*time.Millisecond)
	RecordStep("final")
	RecordRetry("transport_failure")
	RecordSession("final", time.Second)
	RecordOracle("scripted", time.Millisecond, true)
	SetRegistryTools(3)
	SessionStarted()
	SessionFinished()

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "cortex_dispatch_total")
	assert.Contains(t, body, "cortex_agent_steps_total")
	assert.Contains(t, body, "cortex_registry_tools 3")
}

// TestAuditLogger tests JSON line output
func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := GetAuditLogger()
	SetAuditLogger(NewAuditLogger(&buf))
	defer SetAuditLogger(prev)

	RecordValidationAudit(context.Background(), "s1", "plan", "Q001", "system-command denylist matched", true)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "security", entry["event_type"])
	assert.Equal(t, "validate:plan", entry["action"])
	assert.Equal(t, "blocked", entry["status"])
	assert.Equal(t, "Q001", entry["metadata"].(map[string]any)["rule_id"])
}

// TestInitAuditLogger tests file-backed audit logs
func TestInitAuditLogger(t *testing.T) {
	prev := GetAuditLogger()
	defer SetAuditLogger(prev)

	path := filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, InitAuditLogger(path))

	RecordDispatchAudit(context.Background(), "s1", "search", "ok")
	RecordSessionAudit(context.Background(), "s1", "final", nil)
	require.NoError(t, GetAuditLogger().Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)
	assert.True(t, strings.Contains(lines[0], "dispatch:search"))
	assert.True(t, strings.Contains(lines[1], "terminate"))
}
