package gate

import (
	"github.com/harun/cortex/pkg/heuristics"
	"github.com/harun/cortex/pkg/plan"
)

// Options configures the standard pipelines
type Options struct {
	MaxLength            int
	UnsuccessfulPrefixes []string
	BlockedTerms         []string
	Mask                 string
	// Families defaults to heuristics.DefaultFamilies
	Families []heuristics.Family
	// Lookup reports registry membership for the plan pipeline. Nil rejects
	// every plan that names a tool.
	Lookup heuristics.ToolLookup
	// Extract defaults to plan.ToolNames
	Extract heuristics.NameExtractor
}

// Defaults builds the query, plan, callArgs, toolOutput and finalAnswer
// pipelines
func Defaults(opts Options) ([]Pipeline, error) {
	families := opts.Families
	if families == nil {
		families = heuristics.DefaultFamilies()
	}
	deny, err := heuristics.NewDenylist(families)
	if err != nil {
		return nil, err
	}
	extract := opts.Extract
	if extract == nil {
		extract = plan.ToolNames
	}

	notEmpty := heuristics.NotEmpty()
	length := heuristics.Length(1, opts.MaxLength)
	agentOutput := heuristics.AgentOutput(opts.UnsuccessfulPrefixes)

	query := NewPipeline(PipelineQuery,
		notEmpty,
		deny,
		heuristics.SanitizeRule(),
		// re-checked so markup cannot split a blocked pattern
		deny,
		notEmpty,
		heuristics.NormalizeRule(),
		length,
	)

	planPipeline := NewPipeline(PipelinePlan,
		notEmpty,
		deny,
		OnDecoded(deny, plan.Flatten),
		heuristics.ToolName(opts.Lookup, extract),
	)

	callArgs := NewPipeline(PipelineCallArgs,
		deny,
		OnDecoded(deny, plan.FlattenArgs),
	)

	toolOutput := NewPipeline(PipelineToolOutput,
		heuristics.Length(0, opts.MaxLength),
		agentOutput,
		heuristics.BalancedBrackets('(', ')'),
	)

	finalAnswer := NewPipeline(PipelineFinalAnswer,
		notEmpty,
		agentOutput,
		length,
		heuristics.ContentFilter(opts.BlockedTerms, opts.Mask),
	)

	return []Pipeline{query, planPipeline, callArgs, toolOutput, finalAnswer}, nil
}

// NewDefault builds a gate with the standard pipelines
func NewDefault(opts Options) (*Gate, error) {
	pipelines, err := Defaults(opts)
	if err != nil {
		return nil, err
	}
	return New(pipelines...), nil
}
