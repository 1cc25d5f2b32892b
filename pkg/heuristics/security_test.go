package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSecureURL tests scheme and host requirements
func TestSecureURL(t *testing.T) {
	r := SecureURL()

	tests := []struct {
		name   string
		input  string
		passed bool
	}{
		{"https", "https://example.com", true},
		{"https with path", "https://example.com/a?b=c", true},
		{"uppercase scheme", "HTTPS://Example.com", true},
		{"http", "http://example.com", false},
		{"no scheme", "example.com", false},
		{"no host", "https:///path", false},
		{"opaque", "https:example.com", false},
		{"ftp", "ftp://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.passed, r.Check(tt.input).Passed)
		})
	}
}

// TestEmail tests address structure
func TestEmail(t *testing.T) {
	r := Email()

	for _, s := range []string{"a@b.co", "first.last+tag@mail.example.org"} {
		assert.True(t, r.Check(s).Passed, s)
	}
	for _, s := range []string{"", "plain", "a@b", "@b.com", "a@.com", "a@b..com", "a b@c.com"} {
		assert.False(t, r.Check(s).Passed, s)
	}
}

// TestContentFilter tests whole-word case-insensitive masking
func TestContentFilter(t *testing.T) {
	r := ContentFilter(nil, "")
	assert.Equal(t, ModeSanitize, r.Mode())

	v := r.Check("You DANG bastard")
	assert.True(t, v.Passed)
	assert.Equal(t, "You *** ***", v.Sanitized)

	// substrings of longer words stay untouched
	v = r.Check("dangerous")
	assert.Equal(t, "dangerous", v.Sanitized)
}

// TestContentFilter_CustomTerms tests custom terms and mask handling
func TestContentFilter_CustomTerms(t *testing.T) {
	r := ContentFilter([]string{"heck", "x"}, "[x]")

	v := r.Check("what the heck, x")
	assert.Equal(t, "what the [x], x", v.Sanitized)

	// applying twice is stable
	again := r.Check(v.Sanitized)
	assert.Equal(t, v.Sanitized, again.Sanitized)
}
