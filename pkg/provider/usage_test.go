package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestUsageTemplate tests signature rendering from schemas
func TestUsageTemplate(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		want   string
	}{
		{"no schema", "", "tool()"},
		{"invalid schema", "{", "tool()"},
		{"no properties", `{"type": "object"}`, "tool()"},
		{
			"required first",
			`{"type": "object", "properties": {"b": {"type": "integer"}, "a": {"type": "string"}}, "required": ["b"]}`,
			"tool(b: integer, a?: string)",
		},
		{
			"nullable type list",
			`{"type": "object", "properties": {"x": {"type": ["string", "null"]}, "y": {}}, "required": ["x", "y"]}`,
			"tool(x: string, y: any)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := ToolSpec{Name: "tool", InputSchema: json.RawMessage(tt.schema)}
			assert.Equal(t, tt.want, UsageTemplate(spec))
		})
	}
}

func TestParameters_Description(t *testing.T) {
	params := Parameters(json.RawMessage(`{"properties": {"q": {"type": "string", "description": "query"}}}`))
	assert.Equal(t, []Parameter{{Name: "q", Type: "string", Description: "query"}}, params)
}
