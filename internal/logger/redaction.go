package logger

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const redactedMarker = "[REDACTED]"

// minSecretLength keeps short literals like "1" or "on" from wiping log lines
const minSecretLength = 6

type redactionRule struct {
	label string
	re    *regexp.Regexp
}

// builtinRules cover credential shapes that show up in oracle and provider
// configuration. Order matters: the Anthropic prefix must run before the
// generic sk- rule.
var builtinRules = []redactionRule{
	{"anthropic_key", regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`)},
	{"openai_key", regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`)},
	{"api_key_field", regexp.MustCompile(`(?i)api[_-]?key["\s:=]+[^\s",}]+`)},
	{"bearer", regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`)},
	{"password", regexp.MustCompile(`(?i)(?:password|pwd)["\s:=]+[^\s"]+`)},
	{"token", regexp.MustCompile(`token["\s:=]+[a-zA-Z0-9._-]{20,}`)},
	{"aws_access_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"secret", regexp.MustCompile(`secret["\s:=]+[^\s"]+`)},
}

// Redactor masks credentials in log output. It combines regex rules with
// literal secret values, such as the configured oracle API key or provider
// environment values, that no pattern would recognize.
type Redactor struct {
	mu       sync.RWMutex
	rules    []redactionRule
	secrets  []string
	replacer *strings.Replacer
}

// NewRedactor returns a redactor with the builtin rules plus the given
// literal secrets
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{rules: append([]redactionRule(nil), builtinRules...)}
	r.AddSecret(secrets...)
	return r
}

// AddPattern registers a regex rule under label
func (r *Redactor) AddPattern(label, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid redaction pattern %q: %w", label, err)
	}
	r.mu.Lock()
	r.rules = append(r.rules, redactionRule{label: label, re: re})
	r.mu.Unlock()
	return nil
}

// AddSecret registers literal values to mask wherever they appear. Values
// shorter than six characters and duplicates are ignored.
func (r *Redactor) AddSecret(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for _, v := range values {
		v = strings.TrimSpace(v)
		if len(v) < minSecretLength || containsString(r.secrets, v) {
			continue
		}
		r.secrets = append(r.secrets, v)
		changed = true
	}
	if !changed {
		return
	}

	// Longest first so a secret that contains another is masked whole
	sort.Slice(r.secrets, func(i, j int) bool { return len(r.secrets[i]) > len(r.secrets[j]) })
	pairs := make([]string, 0, 2*len(r.secrets))
	for _, s := range r.secrets {
		pairs = append(pairs, s, redactedMarker)
	}
	r.replacer = strings.NewReplacer(pairs...)
}

// Labels returns the rule labels in evaluation order
func (r *Redactor) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	labels := make([]string, len(r.rules))
	for i, rule := range r.rules {
		labels[i] = rule.label
	}
	return labels
}

// Redact masks every literal secret, then every rule match
func (r *Redactor) Redact(s string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.replacer != nil {
		s = r.replacer.Replace(s)
	}
	for _, rule := range r.rules {
		s = rule.re.ReplaceAllString(s, redactedMarker)
	}
	return s
}

// Wrap returns a writer that redacts each write before passing it to w
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{out: w, r: r}
}

type redactingWriter struct {
	out io.Writer
	r   *Redactor
}

// Write reports len(p) on success since callers count input bytes
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.out, w.r.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
