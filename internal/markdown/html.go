package markdown

import (
	"strings"
)

type htmlDialect struct{}

func (htmlDialect) Name() string      { return DialectHTML }
func (htmlDialect) ParseMode() string { return "HTML" }

// EscapeText escapes &, < and >. Entities that are already valid are left
// untouched so the result never gets double escaped.
func (htmlDialect) EscapeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/8)

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if n := entityLength(s[i:]); n > 0 {
				sb.WriteString(s[i : i+n])
				i += n - 1
				continue
			}
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

func (d htmlDialect) EscapeCode(s string) string {
	return d.EscapeText(s)
}

func (d htmlDialect) EscapeURL(s string) string {
	return strings.ReplaceAll(d.EscapeText(s), `"`, "&quot;")
}

func (d htmlDialect) Escaped(r rune) string {
	return d.EscapeText(string(r))
}

func (d htmlDialect) CodeBlock(language, code string) string {
	if code == "" {
		return ""
	}
	if language == "" {
		return "<pre><code>" + d.EscapeCode(code) + "</code></pre>"
	}
	return `<pre><code class="language-` + d.EscapeURL(language) + `">` + d.EscapeCode(code) + "</code></pre>"
}

func (d htmlDialect) InlineCode(code string) string {
	return "<code>" + d.EscapeCode(code) + "</code>"
}

func (htmlDialect) Style(style Style, _ string, inner string) string {
	tag := ""
	switch style {
	case StyleBold:
		tag = "b"
	case StyleItalic:
		tag = "i"
	case StyleUnderline:
		tag = "u"
	case StyleStrike:
		tag = "s"
	case StyleSpoiler:
		tag = "tg-spoiler"
	default:
		return inner
	}
	return "<" + tag + ">" + inner + "</" + tag + ">"
}

func (d htmlDialect) Link(text, url string) string {
	return `<a href="` + d.EscapeURL(url) + `">` + text + "</a>"
}

func (htmlDialect) Heading(inner string) string {
	return "<b>" + inner + "</b>"
}

var namedEntities = []string{"&amp;", "&lt;", "&gt;", "&quot;", "&apos;", "&nbsp;"}

// entityLength returns the length of a valid entity at the start of s or 0.
func entityLength(s string) int {
	for _, e := range namedEntities {
		if strings.HasPrefix(s, e) {
			return len(e)
		}
	}

	if !strings.HasPrefix(s, "&#") {
		return 0
	}
	i := 2
	hex := i < len(s) && (s[i] == 'x' || s[i] == 'X')
	if hex {
		i++
	}
	digits := 0
	for i < len(s) && digits < 8 {
		c := s[i]
		isDigit := c >= '0' && c <= '9'
		isHex := (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isDigit && !(hex && isHex) {
			break
		}
		digits++
		i++
	}
	if digits == 0 || i >= len(s) || s[i] != ';' {
		return 0
	}

	return i + 1
}
