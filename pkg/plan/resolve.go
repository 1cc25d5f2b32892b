package plan

// ResolveArgs returns a copy of the call's arguments with every {{id}}
// placeholder replaced by that call's output. Unknown ids are left as is.
func ResolveArgs(c Call, outputs map[string]string) map[string]any {
	if c.Args == nil {
		return map[string]any{}
	}
	return substitute(c.Args, outputs).(map[string]any)
}

// RenderFinal substitutes call outputs into the plan's final answer
func RenderFinal(p *Plan, outputs map[string]string) string {
	return substituteString(p.FinalAnswer, outputs)
}

func substitute(v any, outputs map[string]string) any {
	switch t := v.(type) {
	case string:
		return substituteString(t, outputs)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = substitute(val, outputs)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = substitute(val, outputs)
		}
		return out
	default:
		return v
	}
}

func substituteString(s string, outputs map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		id := placeholderPattern.FindStringSubmatch(m)[1]
		if out, ok := outputs[id]; ok {
			return out
		}
		return m
	})
}
