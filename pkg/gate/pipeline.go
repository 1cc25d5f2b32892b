package gate

import (
	"fmt"

	"github.com/harun/cortex/pkg/heuristics"
)

// PipelineID names a class of untrusted content
type PipelineID string

const (
	PipelineQuery       PipelineID = "query"
	PipelinePlan        PipelineID = "plan"
	PipelineToolOutput  PipelineID = "toolOutput"
	PipelineFinalAnswer PipelineID = "finalAnswer"
	// PipelineCallArgs screens arguments after tool output is substituted
	PipelineCallArgs PipelineID = "callArgs"
)

// ParsePipelineID accepts the canonical id or a snake_case alias
func ParsePipelineID(s string) (PipelineID, error) {
	switch s {
	case "query":
		return PipelineQuery, nil
	case "plan":
		return PipelinePlan, nil
	case "toolOutput", "tool_output", "output":
		return PipelineToolOutput, nil
	case "finalAnswer", "final_answer", "answer":
		return PipelineFinalAnswer, nil
	case "callArgs", "call_args", "args":
		return PipelineCallArgs, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPipeline, s)
}

// Pipeline is an ordered, immutable list of rules for one content class
type Pipeline struct {
	id    PipelineID
	rules []heuristics.Rule
}

// NewPipeline copies rules so later changes to the slice have no effect
func NewPipeline(id PipelineID, rules ...heuristics.Rule) Pipeline {
	return Pipeline{id: id, rules: append([]heuristics.Rule(nil), rules...)}
}

// ID returns the pipeline id
func (p Pipeline) ID() PipelineID { return p.id }

// RuleIDs lists rule ids in execution order
func (p Pipeline) RuleIDs() []string {
	ids := make([]string, len(p.rules))
	for i, r := range p.rules {
		ids[i] = r.ID()
	}
	return ids
}

// Run applies the rules in order
func (p Pipeline) Run(content string) Result {
	value := content
	for _, r := range p.rules {
		v := r.Check(value)
		if !v.Passed {
			return Result{
				Pipeline: p.id,
				Blocked:  r.Mode() == heuristics.ModeBlock,
				Failures: []Failure{{RuleID: r.ID(), Reason: v.Reason}},
			}
		}
		if r.Mode() == heuristics.ModeSanitize {
			value = v.Sanitized
		}
	}
	return Result{Pipeline: p.id, OK: true, Value: value}
}

// decoded applies rule to decode(content), keeping the rule's identity
type decoded struct {
	heuristics.Rule
	decode func(string) string
}

func (d decoded) Check(content string) heuristics.Verdict {
	return d.Rule.Check(d.decode(content))
}

// OnDecoded runs rule against decode(content) instead of the raw content
func OnDecoded(rule heuristics.Rule, decode func(string) string) heuristics.Rule {
	return decoded{Rule: rule, decode: decode}
}
