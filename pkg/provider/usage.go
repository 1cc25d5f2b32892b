package provider

import (
	"encoding/json"
	"sort"
	"strings"
)

// Parameter is one input property of a tool schema
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Parameters reads top-level properties from a JSON schema. Required
// parameters come first, each group sorted by name.
func Parameters(schema json.RawMessage) []Parameter {
	if len(schema) == 0 {
		return nil
	}

	var schemaMap map[string]interface{}
	if err := json.Unmarshal(schema, &schemaMap); err != nil {
		return nil
	}

	properties, ok := schemaMap["properties"].(map[string]interface{})
	if !ok {
		return nil
	}

	required := make(map[string]bool)
	if reqList, ok := schemaMap["required"].([]interface{}); ok {
		for _, r := range reqList {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	params := make([]Parameter, 0, len(properties))
	for name, propData := range properties {
		prop, ok := propData.(map[string]interface{})
		if !ok {
			continue
		}
		param := Parameter{Name: name, Required: required[name]}
		switch typeVal := prop["type"].(type) {
		case string:
			param.Type = typeVal
		case []interface{}:
			var types []string
			for _, tv := range typeVal {
				if s, ok := tv.(string); ok && s != "null" {
					types = append(types, s)
				}
			}
			param.Type = strings.Join(types, "|")
		}
		if desc, ok := prop["description"].(string); ok {
			param.Description = desc
		}
		params = append(params, param)
	}

	sort.Slice(params, func(i, j int) bool {
		if params[i].Required != params[j].Required {
			return params[i].Required
		}
		return params[i].Name < params[j].Name
	})
	return params
}

// UsageTemplate renders a call signature such as search(query: string, limit?: integer)
func UsageTemplate(spec ToolSpec) string {
	params := Parameters(spec.InputSchema)
	parts := make([]string, len(params))
	for i, p := range params {
		name := p.Name
		if !p.Required {
			name += "?"
		}
		typ := p.Type
		if typ == "" {
			typ = "any"
		}
		parts[i] = name + ": " + typ
	}
	return spec.Name + "(" + strings.Join(parts, ", ") + ")"
}
