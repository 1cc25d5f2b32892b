package heuristics

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// DefaultMask replaces filtered terms
const DefaultMask = "***"

// DefaultBlockedTerms is the built-in content filter list
var DefaultBlockedTerms = []string{"bastard", "pissed", "craphead", "dang"}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SecureURL (H002) requires the https scheme, compared case-insensitively,
// and a host. Schemeless URLs are never upgraded.
func SecureURL() Rule {
	return newRule("H002", CategorySecurity, ModeCheck, func(raw string) Verdict {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return Fail("unparseable URL")
		}
		if !strings.EqualFold(u.Scheme, "https") {
			if u.Scheme == "" {
				return Fail("URL has no scheme")
			}
			return Fail("URL scheme " + strings.ToLower(u.Scheme) + " is not https")
		}
		if u.Host == "" {
			return Fail("URL has no host")
		}
		return Pass()
	})
}

// Email (H004) validates local-part@domain.tld structure
func Email() Rule {
	return newRule("H004", CategorySecurity, ModeCheck, func(s string) Verdict {
		if !emailPattern.MatchString(s) {
			return Fail("invalid email format")
		}
		local, domain, _ := strings.Cut(s, "@")
		if strings.HasPrefix(domain, ".") || strings.Contains(domain, "..") || local == "" {
			return Fail("invalid email format")
		}
		return Pass()
	})
}

// ContentFilter (H003) masks whole-word, case-insensitive matches of the
// default terms plus custom. Terms contained in the mask are dropped so a
// masked string can never reproduce the original term.
func ContentFilter(custom []string, mask string) Rule {
	if mask == "" {
		mask = DefaultMask
	}

	seen := make(map[string]bool)
	var terms []string
	for _, t := range append(append([]string(nil), DefaultBlockedTerms...), custom...) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] || strings.Contains(strings.ToLower(mask), t) {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})

	var pattern *regexp.Regexp
	if len(terms) > 0 {
		quoted := make([]string, len(terms))
		for i, t := range terms {
			quoted[i] = regexp.QuoteMeta(t)
		}
		pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}

	return newRule("H003", CategorySecurity, ModeSanitize, func(text string) Verdict {
		if pattern == nil {
			return PassWith(text)
		}
		return PassWith(pattern.ReplaceAllLiteralString(text, mask))
	})
}
