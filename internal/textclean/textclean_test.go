package textclean

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**Verdict:** ALERT", "Verdict: ALERT"},
		{"underline bold", "__Reasoning:__ gaps", "Reasoning: gaps"},
		{"heading", "## Summary\nbody", "Summary\nbody"},
		{"indented heading", "  ### Risk", "Risk"},
		{"plain", "no markup", "no markup"},
		{"hash inside line kept", "issue #42 remains", "issue #42 remains"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdown(tt.in))
		})
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "a < b and c > d", StripHTML("a < b and c > d"))
	assert.Equal(t, "Missing pages detected.", StripHTML("<p><b>Missing</b> pages detected.</p>"))
	assert.Equal(t, "line one\nline two", StripHTML("line one<br/>line two"))
}

func TestStripHTML_KeepsNonTagAngles(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"comparison", "growth a<b and c>d observed.", "growth a<b and c>d observed."},
		{"comparison beside tag", "<b>growth</b> a<b and c>d", "growth a<b and c>d"},
		{"unknown tag kept", "use <config> section", "use <config> section"},
		{"entity without tags", "AT&amp;T review", "AT&T review"},
		{"entity with tags", "<em>AT&amp;T</em> review", "AT&T review"},
		{"bare ampersand", "R&D budget", "R&D budget"},
		{"tag with attribute", `<span class="x">flagged</span>`, "flagged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestClean_PreservesUtteranceText(t *testing.T) {
	assert.Equal(t, "Reasoning: growth a<b and c>d observed.", Clean("**Reasoning:** growth a<b and c>d observed."))
}

func TestClean(t *testing.T) {
	in := "\r\n# Opening\r\n\r\n\r\n\r\n**We found** <em>zero records</em>.  "
	assert.Equal(t, "Opening\n\nWe found zero records.", Clean(in))
	assert.Equal(t, "", Clean("   "))
}
