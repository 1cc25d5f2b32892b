package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harun/cortex/pkg/dispatch"
	"github.com/harun/cortex/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew tests provider selection
func TestNew(t *testing.T) {
	script := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(script, []byte(`["{\"final_answer\":\"hi\"}"]`), 0644))

	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  error
	}{
		{name: "anthropic", cfg: Config{Provider: "anthropic", APIKey: "k"}, wantName: "anthropic"},
		{name: "openai", cfg: Config{Provider: "openai", APIKey: "k"}, wantName: "openai"},
		{name: "scripted", cfg: Config{Provider: "scripted", ScriptFile: script}, wantName: "scripted"},
		{name: "unknown", cfg: Config{Provider: "gemini"}, wantErr: ErrUnsupportedProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, o.Name())
		})
	}
}

// TestNewDefaults tests model defaults
func TestNewDefaults(t *testing.T) {
	o, err := New(Config{Provider: "anthropic"})
	require.NoError(t, err)
	a := o.(*Anthropic)
	assert.Equal(t, DefaultAnthropicModel, a.cfg.Model)
	assert.Equal(t, DefaultMaxTokens, a.cfg.MaxTokens)

	o, err = New(Config{Provider: "openai", MaxTokens: 100})
	require.NoError(t, err)
	oa := o.(*OpenAI)
	assert.Equal(t, DefaultOpenAIModel, oa.cfg.Model)
	assert.Equal(t, 100, oa.cfg.MaxTokens)
}

// TestBuildPrompt tests prompt assembly
func TestBuildPrompt(t *testing.T) {
	req := Request{
		Query: "weather in Paris",
		Catalog: []dispatch.CatalogEntry{
			{Name: "weather", Description: "Current weather", UsageTemplate: "weather(city: string)"},
		},
	}

	system, user := BuildPrompt(req)
	assert.Contains(t, system, "weather(city: string): Current weather")
	assert.Contains(t, system, `"final_answer"`)
	assert.Contains(t, user, "Query: weather in Paris")
	assert.Contains(t, user, "No previous actions")
}

// TestBuildPromptEmptyCatalog tests the placeholder for no tools
func TestBuildPromptEmptyCatalog(t *testing.T) {
	system, _ := BuildPrompt(Request{Query: "q"})
	assert.Contains(t, system, "(none)")
}

// TestBuildPromptHistory tests related answers in the prompt
func TestBuildPromptHistory(t *testing.T) {
	_, user := BuildPrompt(Request{
		Query:   "capital of France",
		History: []session.HistoryEntry{{Query: "capital of france?", Answer: "Paris"}},
	})
	assert.Contains(t, user, "Q: capital of france?")
	assert.Contains(t, user, "A: Paris")
}

// TestFormatMemory tests truncation of older tool results
func TestFormatMemory(t *testing.T) {
	long := strings.Repeat("x", 80)
	records := []session.StepRecord{
		{
			Index:   1,
			Query:   "first",
			Verdict: session.VerdictContinue,
			ToolResults: []session.ToolOutcome{
				{ToolName: "search", Args: `{"q":"a"}`, OK: true, Output: long},
			},
			Note: "unknown tool: delete_all",
		},
		{
			Index:   2,
			Query:   "first",
			Verdict: session.VerdictContinue,
			ToolResults: []session.ToolOutcome{
				{ToolName: "search", OK: false, Error: "timeout"},
				{ToolName: "fetch", OK: true, Output: long},
			},
		},
	}

	out := FormatMemory(records)
	assert.Contains(t, out, strings.Repeat("x", TruncateLimit)+truncatedMarker)
	assert.Equal(t, 1, strings.Count(out, truncatedMarker))
	assert.Contains(t, out, "Result: "+long+"\n")
	assert.Contains(t, out, "Used search with {}")
	assert.Contains(t, out, "ERROR: timeout")
	assert.Contains(t, out, "Note: unknown tool: delete_all")
	assert.Contains(t, out, "Step 1 (continue)")
}

// TestTruncate tests rune-safe truncation
func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ééé"+truncatedMarker, truncate("éééé", 3))
}

// TestEncodeArgs tests argument rendering
func TestEncodeArgs(t *testing.T) {
	assert.Equal(t, "{}", EncodeArgs(nil))
	assert.Equal(t, `{"city":"Paris"}`, EncodeArgs(map[string]any{"city": "Paris"}))
}

// TestScripted tests plan replay
func TestScripted(t *testing.T) {
	boom := errors.New("boom")
	s := NewScripted("one").
		ThenError(boom).
		ThenFunc(func(req Request) (string, error) { return "echo " + req.Query, nil })

	ctx := context.Background()

	got, err := s.GeneratePlan(ctx, Request{Query: "a"})
	require.NoError(t, err)
	assert.Equal(t, "one", got)

	_, err = s.GeneratePlan(ctx, Request{Query: "b"})
	assert.ErrorIs(t, err, boom)

	got, err = s.GeneratePlan(ctx, Request{Query: "c"})
	require.NoError(t, err)
	assert.Equal(t, "echo c", got)

	_, err = s.GeneratePlan(ctx, Request{Query: "d"})
	assert.ErrorIs(t, err, ErrScriptExhausted)

	assert.Len(t, s.Requests(), 4)
	assert.Equal(t, 0, s.Remaining())
}

// TestScriptedCancelled tests that a cancelled context consumes nothing
func TestScriptedCancelled(t *testing.T) {
	s := NewScripted("one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GeneratePlan(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.Remaining())
}

// TestLoadScript tests reading plans from disk
func TestLoadScript(t *testing.T) {
	dir := t.TempDir()

	t.Run("strings and objects", func(t *testing.T) {
		path := filepath.Join(dir, "mixed.json")
		content := `["{\"final_answer\":\"a\"}", {"calls":[{"tool":"search"}]}]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		s, err := LoadScript(path)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Remaining())

		first, _ := s.GeneratePlan(context.Background(), Request{})
		assert.Equal(t, `{"final_answer":"a"}`, first)
		second, _ := s.GeneratePlan(context.Background(), Request{})
		assert.JSONEq(t, `{"calls":[{"tool":"search"}]}`, second)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := LoadScript("")
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))
		_, err := LoadScript(path)
		assert.Error(t, err)
	})
}
