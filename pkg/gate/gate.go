package gate

import (
	"fmt"
	"sort"
)

// Failure names the rule that stopped a pipeline
type Failure struct {
	RuleID string `json:"rule_id"`
	Reason string `json:"reason"`
}

// Result is the outcome of validating one string
type Result struct {
	Pipeline PipelineID `json:"pipeline"`
	OK       bool       `json:"ok"`
	Value    string     `json:"value,omitempty"`
	Blocked  bool       `json:"blocked"`
	Failures []Failure  `json:"failures,omitempty"`
}

// Err returns nil for passing results, otherwise ErrBlocked or ErrRejected
// wrapped with the failing rule
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	base := ErrRejected
	if r.Blocked {
		base = ErrBlocked
	}
	if len(r.Failures) == 0 {
		return fmt.Errorf("%w: %s", base, r.Pipeline)
	}
	f := r.Failures[0]
	return fmt.Errorf("%w: %s %s: %s", base, r.Pipeline, f.RuleID, f.Reason)
}

// Reason returns the first failure reason, if any
func (r Result) Reason() string {
	if len(r.Failures) == 0 {
		return ""
	}
	return r.Failures[0].Reason
}

// RuleID returns the first failing rule id, if any
func (r Result) RuleID() string {
	if len(r.Failures) == 0 {
		return ""
	}
	return r.Failures[0].RuleID
}

// Gate validates content against a fixed set of pipelines
type Gate struct {
	pipelines map[PipelineID]Pipeline
}

// New builds a gate. A later pipeline with the same id replaces an earlier one.
func New(pipelines ...Pipeline) *Gate {
	g := &Gate{pipelines: make(map[PipelineID]Pipeline, len(pipelines))}
	for _, p := range pipelines {
		g.pipelines[p.id] = p
	}
	return g
}

// Validate runs content through the named pipeline. An unknown pipeline
// rejects the content.
func (g *Gate) Validate(content string, id PipelineID) Result {
	p, ok := g.pipelines[id]
	if !ok {
		return Result{
			Pipeline: id,
			Failures: []Failure{{RuleID: "", Reason: fmt.Sprintf("%s: %s", ErrUnknownPipeline, id)}},
		}
	}
	return p.Run(content)
}

// Pipeline returns the pipeline with the given id
func (g *Gate) Pipeline(id PipelineID) (Pipeline, bool) {
	p, ok := g.pipelines[id]
	return p, ok
}

// Pipelines lists configured pipeline ids, sorted
func (g *Gate) Pipelines() []PipelineID {
	ids := make([]PipelineID, 0, len(g.pipelines))
	for id := range g.pipelines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
