package heuristics

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLength is the default upper bound for Length, in characters
const DefaultMaxLength = 10240

var bracketedMessagePattern = regexp.MustCompile(`^\[.*\]$`)

// DefaultUnsuccessfulPrefixes are output prefixes that mark a status message
// rather than a real answer.
var DefaultUnsuccessfulPrefixes = []string{
	"Unexpected result format from agent:",
	"Max steps reached",
}

// AgentOutput (H001) rejects empty text, bracketed status messages such as
// "[ERROR: timeout]" and text starting with any unsuccessful-output prefix.
// A nil prefix list selects DefaultUnsuccessfulPrefixes.
func AgentOutput(prefixes []string) Rule {
	if prefixes == nil {
		prefixes = DefaultUnsuccessfulPrefixes
	}
	prefixes = append([]string(nil), prefixes...)

	return newRule("H001", CategoryText, ModeCheck, func(text string) Verdict {
		if text == "" {
			return Fail("output is empty")
		}
		if bracketedMessagePattern.MatchString(text) {
			return Fail("output is a bracketed status message")
		}
		for _, prefix := range prefixes {
			if prefix != "" && strings.HasPrefix(text, prefix) {
				return Fail(fmt.Sprintf("output starts with unsuccessful prefix %q", prefix))
			}
		}
		return Pass()
	})
}

// Length (H005) bounds the character count of text to [min, max].
// A max of zero or less selects DefaultMaxLength.
func Length(min, max int) Rule {
	if max <= 0 {
		max = DefaultMaxLength
	}
	return newRule("H005", CategoryText, ModeCheck, func(text string) Verdict {
		n := utf8.RuneCountInString(text)
		if n < min {
			return Fail(fmt.Sprintf("length %d below minimum %d", n, min))
		}
		if n > max {
			return Fail(fmt.Sprintf("length %d exceeds maximum %d", n, max))
		}
		return Pass()
	})
}

// NoDigits (H006) fails when text contains any digit
func NoDigits() Rule {
	return newRule("H006", CategoryText, ModeCheck, func(text string) Verdict {
		if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
			return Fail("text contains digits")
		}
		return Pass()
	})
}

// HasDigits (H012) fails when text contains no digit
func HasDigits() Rule {
	return newRule("H012", CategoryText, ModeCheck, func(text string) Verdict {
		if strings.IndexFunc(text, unicode.IsDigit) < 0 {
			return Fail("text contains no digits")
		}
		return Pass()
	})
}

// PositiveInteger (H007) accepts only canonical positive decimal integers:
// ASCII digits, no sign, no leading zero.
func PositiveInteger() Rule {
	return newRule("H007", CategoryText, ModeCheck, func(text string) Verdict {
		if text == "" {
			return Fail("empty string is not a positive integer")
		}
		for i := 0; i < len(text); i++ {
			if text[i] < '0' || text[i] > '9' {
				return Fail(fmt.Sprintf("non-digit character at position %d", i))
			}
		}
		if text[0] == '0' {
			return Fail("leading zero or zero value")
		}
		return Pass()
	})
}

// NotEmpty (H008) fails on empty or whitespace-only text
func NotEmpty() Rule {
	return newRule("H008", CategoryText, ModeCheck, func(text string) Verdict {
		if strings.TrimSpace(text) == "" {
			return Fail("text is empty or whitespace")
		}
		return Pass()
	})
}

// BalancedBrackets (H009) checks that open and close runes pair up. A close
// without a preceding open fails immediately, even if counts match later.
func BalancedBrackets(open, close rune) Rule {
	return newRule("H009", CategoryText, ModeCheck, func(text string) Verdict {
		depth := 0
		for i, r := range text {
			switch r {
			case open:
				depth++
			case close:
				depth--
			}
			if depth < 0 {
				return Fail(fmt.Sprintf("unmatched %q at byte %d", close, i))
			}
		}
		if depth != 0 {
			return Fail(fmt.Sprintf("%d unclosed %q", depth, open))
		}
		return Pass()
	})
}
