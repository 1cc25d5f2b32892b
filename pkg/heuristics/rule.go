package heuristics

// Category groups rules by the capability they check
type Category string

const (
	CategoryText     Category = "text"
	CategorySecurity Category = "security"
	CategorySystem   Category = "system"
	CategoryQuery    Category = "query"
)

// Mode describes how a rule participates in a pipeline
type Mode int

const (
	// ModeBlock rules are absolute: a failure halts the pipeline with no value.
	ModeBlock Mode = iota
	// ModeCheck rules validate shape or format; a failure halts the pipeline
	// but is reported as a malformed value rather than a security block.
	ModeCheck
	// ModeSanitize rules always pass and return a transformed value.
	ModeSanitize
)

func (m Mode) String() string {
	switch m {
	case ModeBlock:
		return "block"
	case ModeCheck:
		return "check"
	case ModeSanitize:
		return "sanitize"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of a single rule
type Verdict struct {
	Passed    bool   `json:"passed"`
	Sanitized string `json:"sanitized,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Pass returns a passing verdict without a transformed value
func Pass() Verdict {
	return Verdict{Passed: true}
}

// PassWith returns a passing verdict carrying a sanitized value
func PassWith(sanitized string) Verdict {
	return Verdict{Passed: true, Sanitized: sanitized}
}

// Fail returns a failing verdict with the given reason
func Fail(reason string) Verdict {
	return Verdict{Passed: false, Reason: reason}
}

// Rule is a single named check over a string
type Rule interface {
	ID() string
	Category() Category
	Mode() Mode
	Check(input string) Verdict
}

type rule struct {
	id       string
	category Category
	mode     Mode
	check    func(string) Verdict
}

func (r *rule) ID() string         { return r.id }
func (r *rule) Category() Category { return r.category }
func (r *rule) Mode() Mode         { return r.mode }

func (r *rule) Check(input string) Verdict {
	v := r.check(input)
	if !v.Passed {
		v.Sanitized = ""
	}
	return v
}

func newRule(id string, category Category, mode Mode, check func(string) Verdict) Rule {
	return &rule{id: id, category: category, mode: mode, check: check}
}
