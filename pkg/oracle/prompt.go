package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harun/cortex/pkg/session"
)

// TruncateLimit bounds tool results of earlier steps in the prompt
const TruncateLimit = 50

const truncatedMarker = "... [RESPONSE TRUNCATED]"

const systemPrompt = `You are the planning component of a tool-using agent.
You never run anything yourself. You answer with a single JSON object and nothing else:

{
  "calls": [
    {"id": "<short id>", "tool": "<tool name>", "args": {...}, "depends_on": ["<id>"]}
  ],
  "final_answer": "<answer, may reference outputs as {{id}}>",
  "further_processing": "<follow-up query when more work is needed>"
}

Rules:
- Use only the tools listed below, spelled exactly.
- Pass a previous call's output to another call with the placeholder {{id}}.
- Calls without dependencies may run in parallel.
- Set "final_answer" only when the answer is known or fully determined by this step's calls.
- Otherwise leave "final_answer" empty; the results will be shown to you in the next step.
- If a previous step failed, read its note and choose a different approach.`

// BuildPrompt returns the system and user prompts for a request
func BuildPrompt(req Request) (string, string) {
	var sys strings.Builder
	sys.WriteString(systemPrompt)
	sys.WriteString("\n\nAvailable tools:\n")
	if len(req.Catalog) == 0 {
		sys.WriteString("(none)\n")
	}
	for _, t := range req.Catalog {
		sys.WriteString("- ")
		sys.WriteString(t.UsageTemplate)
		if t.Description != "" {
			sys.WriteString(": ")
			sys.WriteString(t.Description)
		}
		sys.WriteString("\n")
	}

	var user strings.Builder
	user.WriteString("Query: ")
	user.WriteString(req.Query)
	user.WriteString("\n\n")

	if len(req.History) > 0 {
		user.WriteString("Related answers from earlier conversations:\n")
		for _, h := range req.History {
			fmt.Fprintf(&user, "- Q: %s\n  A: %s\n", h.Query, h.Answer)
		}
		user.WriteString("\n")
	}

	user.WriteString("Previous steps:\n")
	user.WriteString(FormatMemory(req.Memory))
	return sys.String(), user.String()
}

// FormatMemory renders the step history. Tool results of every step but the
// last are cut to TruncateLimit characters.
func FormatMemory(records []session.StepRecord) string {
	if len(records) == 0 {
		return "No previous actions"
	}

	var b strings.Builder
	for i, rec := range records {
		latest := i == len(records)-1
		fmt.Fprintf(&b, "Step %d (%s)", rec.Index, rec.Verdict)
		if rec.Query != "" {
			fmt.Fprintf(&b, " for %q", rec.Query)
		}
		b.WriteString("\n")
		for _, out := range rec.ToolResults {
			result := out.Output
			if !out.OK {
				result = "ERROR: " + out.Error
			}
			if !latest {
				result = truncate(result, TruncateLimit)
			}
			fmt.Fprintf(&b, "  Used %s with %s\n  Result: %s\n", out.ToolName, argsOrEmpty(out.Args), result)
		}
		if rec.Note != "" {
			fmt.Fprintf(&b, "  Note: %s\n", rec.Note)
		}
		if !latest {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncatedMarker
}

func argsOrEmpty(args string) string {
	if args == "" {
		return "{}"
	}
	return args
}

// EncodeArgs renders call arguments for memory
func EncodeArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}
