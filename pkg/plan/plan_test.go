package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse tests a plan with inferred dependencies
func TestParse(t *testing.T) {
	text := `{
		"calls": [
			{"id": "s", "tool": "search", "args": {"query": "go generics"}},
			{"id": "f", "tool": "fetch", "args": {"url": "{{s}}"}}
		],
		"final_answer": "Summary: {{f}}"
	}`

	p, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, p.Calls, 2)
	assert.Equal(t, []string{"s"}, p.Calls[1].DependsOn)
	assert.Empty(t, p.Calls[0].DependsOn)
	assert.Equal(t, SignalFinal, p.Signal())
}

// TestParse_CodeFence tests that markdown fences and prose are tolerated
func TestParse_CodeFence(t *testing.T) {
	text := "Here is the plan:\n```json\n{\"calls\": [{\"tool\": \"search\", \"args\": {\"q\": \"x\"}}]}\n```\nDone."

	p, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, p.Calls, 1)
	assert.Equal(t, "call-1", p.Calls[0].ID)
	assert.Equal(t, SignalContinue, p.Signal())
}

// TestParse_Errors tests rejected plans
func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
	}{
		{"not json", "just do it", ErrMalformed},
		{"broken json", `{"calls": [`, ErrMalformed},
		{"empty", `{"calls": []}`, ErrEmptyPlan},
		{"missing tool", `{"calls": [{"id": "a"}]}`, ErrMissingTool},
		{"duplicate id", `{"calls": [{"id": "a", "tool": "x"}, {"id": "a", "tool": "y"}]}`, ErrDuplicateCall},
		{"unknown dependency", `{"calls": [{"id": "a", "tool": "x", "depends_on": ["b"]}]}`, ErrUnknownDependency},
		{"unknown placeholder", `{"calls": [{"id": "a", "tool": "x", "args": {"v": "{{zzz}}"}}]}`, ErrUnknownDependency},
		{"unknown final ref", `{"calls": [{"id": "a", "tool": "x"}], "final_answer": "{{b}}"}`, ErrUnknownDependency},
		{"self cycle", `{"calls": [{"id": "a", "tool": "x", "args": {"v": "{{a}}"}}]}`, ErrCycle},
		{"cycle", `{"calls": [{"id": "a", "tool": "x", "depends_on": ["b"]}, {"id": "b", "tool": "y", "depends_on": ["a"]}]}`, ErrCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

// TestParse_FinalOnly tests a plan that answers without calls
func TestParse_FinalOnly(t *testing.T) {
	p, err := Parse(`{"final_answer": "42"}`)
	require.NoError(t, err)
	assert.Empty(t, p.Calls)
	assert.Equal(t, "42", p.FinalAnswer)

	p, err = Parse(`{"further_processing": "look up the capital"}`)
	require.NoError(t, err)
	assert.Equal(t, SignalContinue, p.Signal())
}

// TestParse_NumbersPreserved tests that integer arguments survive decoding
func TestParse_NumbersPreserved(t *testing.T) {
	p, err := Parse(`{"calls": [{"tool": "add", "args": {"a": 1, "b": 12345678901234567}}]}`)
	require.NoError(t, err)

	out, err := json.Marshal(p.Calls[0].Args)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1, "b": 12345678901234567}`, string(out))
}

// TestLevels tests dependency levels and declared order
func TestLevels(t *testing.T) {
	p, err := Parse(`{"calls": [
		{"id": "c", "tool": "merge", "args": {"x": "{{a}}", "y": "{{b}}"}},
		{"id": "a", "tool": "search"},
		{"id": "b", "tool": "fetch"},
		{"id": "d", "tool": "search"},
		{"id": "e", "tool": "store", "depends_on": ["c"]}
	]}`)
	require.NoError(t, err)

	levels := Levels(p)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"a", "b", "d"}, ids(levels[0]))
	assert.Equal(t, []string{"c"}, ids(levels[1]))
	assert.Equal(t, []string{"e"}, ids(levels[2]))
}

func ids(calls []Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.ID
	}
	return out
}

// TestResolveArgs tests placeholder substitution in nested arguments
func TestResolveArgs(t *testing.T) {
	c := Call{
		ID:   "f",
		Tool: "fetch",
		Args: map[string]any{
			"url":  "{{s}}",
			"tags": []any{"a", "{{ s }}"},
			"opts": map[string]any{"note": "from {{s}} and {{other}}"},
			"n":    json.Number("3"),
		},
	}

	got := ResolveArgs(c, map[string]string{"s": "https://example.com"})
	assert.Equal(t, "https://example.com", got["url"])
	assert.Equal(t, []any{"a", "https://example.com"}, got["tags"])
	assert.Equal(t, "from https://example.com and {{other}}", got["opts"].(map[string]any)["note"])
	assert.Equal(t, json.Number("3"), got["n"])

	// original untouched
	assert.Equal(t, "{{s}}", c.Args["url"])

	assert.Equal(t, map[string]any{}, ResolveArgs(Call{}, nil))
}

// TestRenderFinal tests final answer rendering
func TestRenderFinal(t *testing.T) {
	p := &Plan{FinalAnswer: "The answer is {{calc}}."}
	assert.Equal(t, "The answer is 4.", RenderFinal(p, map[string]string{"calc": "4"}))
}

// TestToolNames tests name extraction for registry checks
func TestToolNames(t *testing.T) {
	names, err := ToolNames(`{"calls": [{"tool": "search"}, {"tool": "delete_all"}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"search", "delete_all"}, names)

	_, err = ToolNames("garbage")
	assert.Error(t, err)
}

// TestFlattenArgs tests decoding of resolved call arguments
func TestFlattenArgs(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		want    string
	}{
		{"escaped value", `{"cmd": "rm -rf \/"}`, "cmd\nrm -rf /"},
		{"nested list", `{"paths": ["a", {"b": 1}]}`, "paths\na\nb"},
		{"not json", "rm -rf /", "rm -rf /"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenArgs(tt.encoded))
		})
	}
}

// TestFlatten tests that escaped content is decoded
func TestFlatten(t *testing.T) {
	flat := Flatten(`{"calls": [{"tool": "shell", "args": {"cmd": "rm -rf \/"}}], "final_answer": "ok"}`)
	assert.Contains(t, flat, "rm -rf /")
	assert.Contains(t, flat, "shell")
	assert.Contains(t, flat, "ok")

	assert.Equal(t, "not a plan", Flatten("not a plan"))
}

func TestPlan_Call(t *testing.T) {
	p := &Plan{Calls: []Call{{ID: "a", Tool: "x"}}}

	c, ok := p.Call("a")
	assert.True(t, ok)
	assert.Equal(t, "x", c.Tool)

	_, ok = p.Call("b")
	assert.False(t, ok)
}
