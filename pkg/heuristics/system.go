package heuristics

import (
	"fmt"
	"strings"
)

// ToolLookup reports whether a tool name exists in the live registry
type ToolLookup func(name string) bool

// NameExtractor turns content into the tool names it references
type NameExtractor func(content string) ([]string, error)

// SingleName treats the whole content as one tool name
func SingleName(content string) ([]string, error) {
	return []string{strings.TrimSpace(content)}, nil
}

// ToolName (H010) fails closed: every referenced name must be known to lookup.
// There is no fuzzy matching; an extraction error also fails.
func ToolName(lookup ToolLookup, extract NameExtractor) Rule {
	if extract == nil {
		extract = SingleName
	}
	return newRule("H010", CategorySystem, ModeCheck, func(content string) Verdict {
		if lookup == nil {
			return Fail("no tool registry available")
		}
		names, err := extract(content)
		if err != nil {
			return Fail(fmt.Sprintf("cannot extract tool names: %v", err))
		}
		for _, name := range names {
			if name == "" || !lookup(name) {
				return Fail(fmt.Sprintf("unknown tool: %s", name))
			}
		}
		return Pass()
	})
}

// CheckRetryLimit (H011) is a pure comparison; callers own the counter
func CheckRetryLimit(attempts, max int) Verdict {
	if attempts < max {
		return Pass()
	}
	return Fail(fmt.Sprintf("retry limit reached (%d/%d)", attempts, max))
}
