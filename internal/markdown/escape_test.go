package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownV2EscapeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no reserved", "hello world", "hello world"},
		{"punctuation", "Hi! 1+1=2.", `Hi\! 1\+1\=2\.`},
		{"brackets", "[a](b){c}", `\[a\]\(b\)\{c\}`},
		{"lone backslash", `C:\Users`, `C:\\Users`},
		{"already escaped", `1\.5`, `1\.5`},
		{"unicode untouched", "привет — мир", "привет — мир"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MarkdownV2.EscapeText(tt.input))
		})
	}
}

func TestHTMLEscapeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tags", "<b>x</b>", "&lt;b&gt;x&lt;/b&gt;"},
		{"ampersand", "a & b", "a &amp; b"},
		{"existing entity", "a &amp; b &lt; &#39; &#x1F600;", "a &amp; b &lt; &#39; &#x1F600;"},
		{"broken entity", "&#;", "&amp;#;"},
		{"quotes in text", `"quoted"`, `"quoted"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTML.EscapeText(tt.input))
		})
	}
}

func TestEscapeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Price: $5.99 (approx.) - see [docs]!",
		`path\to\file and \*stars\*`,
		"a < b && c > d",
		"_*[]()~`>#+-=|{}.!",
	}

	for _, d := range []Dialect{MarkdownV2, HTML} {
		for _, input := range inputs {
			once := d.EscapeText(input)
			assert.Equal(t, once, d.EscapeText(once), "%s: %q", d.Name(), input)
		}
	}
}

func TestEscapeCode(t *testing.T) {
	assert.Equal(t, "a\\`b\\\\c*d", MarkdownV2.EscapeCode("a`b\\c*d"))
	assert.Equal(t, "if a &lt; b &amp;&amp; c {}", HTML.EscapeCode("if a < b && c {}"))
}

func TestEscapeWrapper(t *testing.T) {
	assert.Equal(t, `v1\.2\.3`, Escape("v1.2.3"))
}
