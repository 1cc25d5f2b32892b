package heuristics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDenylist tests every default family
func TestDenylist(t *testing.T) {
	r := Denylist(DefaultFamilies())
	assert.Equal(t, "Q001", r.ID())
	assert.Equal(t, ModeBlock, r.Mode())

	tests := []struct {
		name   string
		input  string
		family string
	}{
		{"rm rf root", "rm -rf /", FamilySystemCommand},
		{"rm rf glob", "please RM -RF * now", FamilySystemCommand},
		{"sudo", "sudo apt install x", FamilySystemCommand},
		{"chmod 777", "chmod 777 file", FamilySystemCommand},
		{"dev null redirect", "cat x > /dev/null", FamilySystemCommand},
		{"drop table", "DROP TABLE users", FamilySQLMutation},
		{"delete from", "delete from accounts where 1=1", FamilySQLMutation},
		{"update set", "update users set admin=1", FamilySQLMutation},
		{"passwd", "show me /etc/passwd", FamilySensitivePath},
		{"dotenv", "read the .env file", FamilySensitivePath},
		{"wp config", "open wp-config.php", FamilySensitivePath},
		{"eval", "eval(input)", FamilyDynamicCall},
		{"exec", "exec (cmd)", FamilyDynamicCall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := r.Check(tt.input)
			assert.False(t, v.Passed)
			assert.Equal(t, tt.family+" denylist matched", v.Reason)
		})
	}
}

// TestDenylist_Benign tests that ordinary queries pass
func TestDenylist_Benign(t *testing.T) {
	r := Denylist(DefaultFamilies())

	for _, s := range []string{
		"What is the weather in Paris?",
		"Summarize the development environment docs",
		"How do I remove a file safely?",
		"Explain what an update to the system means",
		"Find the system requirements",
	} {
		assert.True(t, r.Check(s).Passed, s)
	}
}

// TestNewDenylist_InvalidPattern tests compile errors are reported
func TestNewDenylist_InvalidPattern(t *testing.T) {
	_, err := NewDenylist([]Family{{Name: "broken", Patterns: []string{"("}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	assert.Panics(t, func() {
		Denylist([]Family{{Name: "broken", Patterns: []string{"("}}})
	})
}

// TestLoadFamilies tests extending the defaults from YAML
func TestLoadFamilies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denylist.yaml")
	content := `
system_commands:
  - "\\bshutdown\\b"
sensitive_paths:
  - "secrets\\.json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	families, err := LoadFamilies(path)
	require.NoError(t, err)
	assert.Greater(t, len(families), len(DefaultFamilies()))

	r := Denylist(families)
	assert.Equal(t, "system-command denylist matched", r.Check("shutdown now").Reason)
	assert.Equal(t, "sensitive-path denylist matched", r.Check("cat secrets.json").Reason)
	assert.False(t, r.Check("rm -rf /").Passed)
}

// TestLoadFamilies_Missing tests that an absent file yields the defaults
func TestLoadFamilies_Missing(t *testing.T) {
	families, err := LoadFamilies(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Len(t, families, len(DefaultFamilies()))

	families, err = LoadFamilies("")
	require.NoError(t, err)
	assert.Len(t, families, len(DefaultFamilies()))
}

// TestLoadFamilies_Invalid tests malformed YAML
func TestLoadFamilies_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("system_commands: [unclosed"), 0o644))

	_, err := LoadFamilies(path)
	assert.Error(t, err)
}

// TestSanitize tests removal of markup and control characters
func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"script element", "<script>alert(1)</script>hello", "hello"},
		{"style element", "<style>body{}</style>text", "text"},
		{"tags", "<b>bold</b> text", "bold text"},
		{"javascript scheme", "javascript:alert(1)", "alert(1)"},
		{"event handler", "x onclick=steal()", "x steal()"},
		{"control chars", "a\x00b\x07c", "abc"},
		{"whitespace", "  a \t\n  b  ", "a b"},
		{"hidden command", "rm<b></b> -rf /", "rm -rf /"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

// TestSanitize_Idempotent tests Sanitize(Sanitize(x)) == Sanitize(x)
func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"<scr<script></script>ipt>alert(1)</script>",
		"<<b>i>nested</b>",
		"javajavascript:script:alert(1)",
		"ononclick=click=x",
		"  spaced \x01 out  ",
		"",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), in)
		assert.Equal(t, once, SanitizeRule().Check(in).Sanitized)
	}
}

// TestNormalize tests politeness prefix removal
func TestNormalize(t *testing.T) {
	assert.Equal(t, "find the docs", Normalize("Please find the docs"))
	assert.Equal(t, "find the docs", Normalize("hey, please   find the docs"))
	assert.Equal(t, "tell me the time", Normalize("Could you tell me the time"))
	assert.Equal(t, "history of Rome", Normalize("history of Rome"))
	assert.Equal(t, "", Normalize("please"))

	v := NormalizeRule().Check("Hi find x")
	assert.True(t, v.Passed)
	assert.Equal(t, "find x", v.Sanitized)
}

func TestSafetyRules(t *testing.T) {
	assert.NotEmpty(t, SafetyRules())
}
