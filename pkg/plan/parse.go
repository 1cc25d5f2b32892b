package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencePattern       = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")
	placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)
)

// extractJSON returns the JSON object embedded in text, tolerating markdown
// code fences and surrounding prose.
func extractJSON(text string) (string, error) {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformed)
	}
	return text[start : end+1], nil
}

func decode(text string) (*Plan, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &p, nil
}

// Parse decodes and validates oracle output. Missing call ids are assigned as
// call-N, dependency edges are inferred from {{id}} placeholders, and plans
// with duplicate ids, unknown dependencies or cycles are rejected.
func Parse(text string) (*Plan, error) {
	p, err := decode(text)
	if err != nil {
		return nil, err
	}

	p.FinalAnswer = strings.TrimSpace(p.FinalAnswer)
	p.FurtherProcessing = strings.TrimSpace(p.FurtherProcessing)
	if len(p.Calls) == 0 && p.FinalAnswer == "" && p.FurtherProcessing == "" {
		return nil, ErrEmptyPlan
	}

	for i := range p.Calls {
		c := &p.Calls[i]
		c.Tool = strings.TrimSpace(c.Tool)
		if c.Tool == "" {
			return nil, fmt.Errorf("%w: call %d", ErrMissingTool, i+1)
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("call-%d", i+1)
		}
	}

	for i := range p.Calls {
		c := &p.Calls[i]
		for _, ref := range references(c.Args) {
			if !contains(c.DependsOn, ref) {
				c.DependsOn = append(c.DependsOn, ref)
			}
		}
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ToolNames extracts the tool names a plan invokes, in declared order
func ToolNames(text string) ([]string, error) {
	p, err := Parse(text)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(p.Calls))
	for _, c := range p.Calls {
		names = append(names, c.Tool)
	}
	return names, nil
}

// Flatten returns every string a plan carries (tool names, argument values,
// answer and follow-up) decoded and joined by newlines, so pattern checks see
// the text without JSON escaping. Undecodable input is returned unchanged.
func Flatten(text string) string {
	p, err := decode(text)
	if err != nil {
		return text
	}
	var parts []string
	for _, c := range p.Calls {
		parts = append(parts, c.Tool)
		parts = collectStrings(c.Args, parts)
	}
	if p.FinalAnswer != "" {
		parts = append(parts, p.FinalAnswer)
	}
	if p.FurtherProcessing != "" {
		parts = append(parts, p.FurtherProcessing)
	}
	return strings.Join(parts, "\n")
}

// FlattenArgs returns every key and string value of an encoded argument
// object, decoded and joined by newlines. Undecodable input is returned
// unchanged.
func FlattenArgs(encoded string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(encoded), &args); err != nil {
		return encoded
	}
	return strings.Join(collectStrings(args, nil), "\n")
}

func collectStrings(v any, out []string) []string {
	switch t := v.(type) {
	case string:
		out = append(out, t)
	case map[string]any:
		for k, val := range t {
			out = append(out, k)
			out = collectStrings(val, out)
		}
	case []any:
		for _, val := range t {
			out = collectStrings(val, out)
		}
	}
	return out
}

// references lists placeholder ids found anywhere in v, first occurrence order
func references(v any) []string {
	var refs []string
	for _, s := range collectStrings(v, nil) {
		for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
			if !contains(refs, m[1]) {
				refs = append(refs, m[1])
			}
		}
	}
	return refs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
