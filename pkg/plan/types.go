package plan

// Signal tells the step loop what to do after a plan's calls complete
type Signal string

const (
	SignalFinal    Signal = "final"
	SignalContinue Signal = "continue"
)

// Call is a single tool invocation
type Call struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	DependsOn []string       `json:"depends_on,omitempty"`
}

// Plan is the parsed oracle output for one step
type Plan struct {
	Calls             []Call `json:"calls"`
	FinalAnswer       string `json:"final_answer,omitempty"`
	FurtherProcessing string `json:"further_processing,omitempty"`
}

// Signal returns SignalFinal when the plan carries a final answer
func (p *Plan) Signal() Signal {
	if p.FinalAnswer != "" {
		return SignalFinal
	}
	return SignalContinue
}

// Call returns the call with the given id
func (p *Plan) Call(id string) (Call, bool) {
	for _, c := range p.Calls {
		if c.ID == id {
			return c, true
		}
	}
	return Call{}, false
}
