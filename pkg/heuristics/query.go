package heuristics

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Family is a named group of denylisted patterns
type Family struct {
	Name     string
	Patterns []string
}

// Denylist family names
const (
	FamilySystemCommand = "system-command"
	FamilySQLMutation   = "sql-mutation"
	FamilySensitivePath = "sensitive-path"
	FamilyDynamicCall   = "dynamic-call"
)

// DefaultFamilies returns the built-in query-safety denylist
func DefaultFamilies() []Family {
	return []Family{
		{
			Name: FamilySystemCommand,
			Patterns: []string{
				`\b(?:rm|remove|del|delete)\s+-(?:rf?|fr)\s+[/*~]`,
				`\bsudo\s+`,
				`\b(?:chmod|chown)\s+(?:-R\s+)?777\b`,
				`>>?\s*/dev/(?:null|zero|random|sd[a-z])`,
				`\bmkfs(?:\.\w+)?\s`,
				`\bdd\s+if=`,
				`:\(\)\s*\{\s*:\|:&\s*\};:`,
			},
		},
		{
			Name: FamilySQLMutation,
			Patterns: []string{
				`\b(?:drop|delete)\s+(?:table|database|schema)\b`,
				`\bdelete\s+from\s+[a-zA-Z_]`,
				`\b(?:truncate|alter)\s+table\b`,
				`\b(?:update|insert)\s+(?:into\s+)?[a-zA-Z_][a-zA-Z0-9_]*\s+set\b`,
				`\binsert\s+into\s+[a-zA-Z_][a-zA-Z0-9_]*`,
			},
		},
		{
			Name: FamilySensitivePath,
			Patterns: []string{
				`/etc/(?:passwd|shadow|hosts|sudoers)\b`,
				`(?:^|[\s/'"=])\.env\b`,
				`\b(?:wp-)?config\.php\b`,
				`\.ssh/(?:id_[a-z0-9]+|authorized_keys)`,
				`\.aws/credentials\b`,
			},
		},
		{
			Name: FamilyDynamicCall,
			Patterns: []string{
				`\beval\s*\(`,
				`\bexec\s*\(`,
				`\bsystem\s*\(`,
				`\b__import__\s*\(`,
				`\bos\.(?:system|popen)\b`,
				`\bsubprocess\.\w+\s*\(`,
			},
		},
	}
}

type compiledFamily struct {
	name     string
	patterns []*regexp.Regexp
}

// compileFamilies compiles each pattern case-insensitively. Families with the
// same name are merged.
func compileFamilies(families []Family) ([]compiledFamily, error) {
	index := make(map[string]int)
	var compiled []compiledFamily
	for _, f := range families {
		i, ok := index[f.Name]
		if !ok {
			i = len(compiled)
			index[f.Name] = i
			compiled = append(compiled, compiledFamily{name: f.Name})
		}
		for _, p := range f.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("invalid %s pattern %q: %w", f.Name, p, err)
			}
			compiled[i].patterns = append(compiled[i].patterns, re)
		}
	}
	return compiled, nil
}

// Denylist (Q001) is an absolute block over the given pattern families.
// It panics on an invalid pattern; use NewDenylist to get an error instead.
func Denylist(families []Family) Rule {
	r, err := NewDenylist(families)
	if err != nil {
		panic(err)
	}
	return r
}

// NewDenylist compiles families once and returns the Q001 rule
func NewDenylist(families []Family) (Rule, error) {
	compiled, err := compileFamilies(families)
	if err != nil {
		return nil, err
	}
	return newRule("Q001", CategoryQuery, ModeBlock, func(text string) Verdict {
		for _, f := range compiled {
			for _, re := range f.patterns {
				if re.MatchString(text) {
					return Fail(f.name + " denylist matched")
				}
			}
		}
		return Pass()
	}), nil
}

// denylistFile is the on-disk shape of a denylist extension
type denylistFile struct {
	SystemCommands []string `yaml:"system_commands"`
	SQLMutations   []string `yaml:"sql_mutations"`
	SensitivePaths []string `yaml:"sensitive_paths"`
	DynamicCalls   []string `yaml:"dynamic_calls"`
}

// LoadFamilies returns the default families extended with the patterns in
// the YAML file at path. An empty path or a missing file yields the defaults.
func LoadFamilies(path string) ([]Family, error) {
	families := DefaultFamilies()
	if path == "" {
		return families, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return families, nil
		}
		return nil, fmt.Errorf("failed to read denylist file: %w", err)
	}

	var f denylistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse denylist file: %w", err)
	}

	extra := []Family{
		{Name: FamilySystemCommand, Patterns: f.SystemCommands},
		{Name: FamilySQLMutation, Patterns: f.SQLMutations},
		{Name: FamilySensitivePath, Patterns: f.SensitivePaths},
		{Name: FamilyDynamicCall, Patterns: f.DynamicCalls},
	}
	for _, e := range extra {
		if len(e.Patterns) > 0 {
			families = append(families, e)
		}
	}
	return families, nil
}

var (
	controlChars     = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	scriptElement    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleElement     = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	scriptableScheme = regexp.MustCompile(`(?i)(?:javascript|vbscript|data)\s*:`)
	cssExpression    = regexp.MustCompile(`(?i)expression\s*\(`)
	eventHandler     = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	htmlTag          = regexp.MustCompile(`<[^<>]*>`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	politePrefix     = regexp.MustCompile(`(?i)^(?:please|hey|hi|could you|can you)(?:[\s,!]+|$)`)
)

func sanitizeOnce(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	s = scriptElement.ReplaceAllString(s, "")
	s = styleElement.ReplaceAllString(s, "")
	s = scriptableScheme.ReplaceAllString(s, "")
	s = cssExpression.ReplaceAllString(s, "")
	s = eventHandler.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Sanitize strips control characters, script and style payloads, scriptable
// URL schemes, inline event handlers and tags, then collapses whitespace. It
// repeats until the text stops changing, so Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(s string) string {
	for {
		next := sanitizeOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

// SanitizeRule (Q002) applies Sanitize
func SanitizeRule() Rule {
	return newRule("Q002", CategoryQuery, ModeSanitize, func(text string) Verdict {
		return PassWith(Sanitize(text))
	})
}

// Normalize removes leading politeness phrases and collapses whitespace
func Normalize(s string) string {
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	for {
		next := strings.TrimSpace(politePrefix.ReplaceAllString(s, ""))
		if next == s {
			return next
		}
		s = next
	}
}

// NormalizeRule (Q003) applies Normalize
func NormalizeRule() Rule {
	return newRule("Q003", CategoryQuery, ModeSanitize, func(text string) Verdict {
		return PassWith(Normalize(text))
	})
}

// SafetyRules describes the enforced query-safety rules
func SafetyRules() []string {
	return []string{
		"No dangerous system commands (rm -rf, chmod 777, mkfs, dd)",
		"No privilege escalation (sudo)",
		"No SQL mutations (DROP, DELETE, UPDATE, INSERT, TRUNCATE, ALTER)",
		"No access to sensitive files (/etc/passwd, .env, credentials)",
		"No dynamic calls (eval, exec, system, subprocess)",
		"No HTML or script injection",
		"No control characters",
		"Input is whitespace-normalized",
	}
}
