package markdown

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type spanRule struct {
	delim string
	style Style
	// intraword delimiters only count at word boundaries
	wordBound bool
}

// Longer delimiters go first so "**" is never read as two italics.
var spanRules = []spanRule{
	{delim: "**", style: StyleBold},
	{delim: "__", style: StyleUnderline, wordBound: true},
	{delim: "~~", style: StyleStrike},
	{delim: "||", style: StyleSpoiler},
	{delim: "*", style: StyleItalic},
	{delim: "_", style: StyleItalic, wordBound: true},
}

// convertPlain renders a plain fragment line by line. Headings and bullets
// are only recognised at the start of a line.
func convertPlain(d Dialect, text string, atLineStart bool) string {
	var sb strings.Builder
	sb.Grow(len(text) + len(text)/4)

	for len(text) > 0 {
		line := text
		newline := strings.IndexByte(text, '\n')
		if newline >= 0 {
			line = text[:newline]
			text = text[newline+1:]
		} else {
			text = ""
		}

		if atLineStart {
			sb.WriteString(convertLine(d, line))
		} else {
			sb.WriteString(renderInline(d, line, false))
		}
		if newline >= 0 {
			sb.WriteByte('\n')
		}
		atLineStart = true
	}

	return sb.String()
}

func convertLine(d Dialect, line string) string {
	if heading, ok := headingText(line); ok {
		return d.Heading(renderInline(d, heading, true))
	}

	if indent, rest, ok := bulletItem(line); ok {
		return indent + "• " + renderInline(d, rest, false)
	}

	return renderInline(d, line, false)
}

func headingText(line string) (string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(line) || line[level] != ' ' {
		return "", false
	}

	text := strings.TrimSpace(strings.TrimRight(line[level:], "# "))
	if text == "" {
		return "", false
	}

	return text, true
}

func bulletItem(line string) (string, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(trimmed)]

	marker, size := utf8.DecodeRuneInString(trimmed)
	switch marker {
	case '•', '-', '*', '+':
	default:
		return "", "", false
	}

	rest := trimmed[size:]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", "", false
	}

	return indent, strings.TrimLeft(rest, " \t"), true
}

// renderInline converts emphasis, links and backslash escapes of a single
// line. Everything that is not recognised is escaped as literal text.
// starred is set inside a construct that MarkdownV2 closes with "*".
func renderInline(d Dialect, text string, starred bool) string {
	var out, literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			out.WriteString(d.EscapeText(literal.String()))
			literal.Reset()
		}
	}

	for i := 0; i < len(text); {
		c := text[i]

		if c == '\\' && i+1 < len(text) && isASCIIPunct(text[i+1]) {
			flush()
			out.WriteString(d.Escaped(rune(text[i+1])))
			i += 2
			continue
		}

		if c == '[' {
			if label, url, n, ok := matchLink(text[i:]); ok {
				flush()
				out.WriteString(d.Link(renderInline(d, label, starred), url))
				i += n
				continue
			}
		}

		if rule, inner, n, ok := matchSpan(text, i); ok {
			flush()
			delim := rule.delim
			// "*" italic next to "*" bold would read as one bold run
			if rule.style == StyleItalic && delim == "*" && (starred || strings.Contains(inner, "**")) {
				delim = "_"
			}
			nested := starred || rule.style == StyleBold || delim == "*"
			out.WriteString(d.Style(rule.style, delim, renderInline(d, inner, nested)))
			i += n
			continue
		}

		literal.WriteByte(c)
		i++
	}
	flush()

	return out.String()
}

// matchSpan tries every emphasis rule at position i and returns the inner
// text and the total length of the span.
func matchSpan(text string, i int) (spanRule, string, int, bool) {
	for _, rule := range spanRules {
		if !strings.HasPrefix(text[i:], rule.delim) {
			continue
		}

		start := i + len(rule.delim)
		if !canOpen(text, i, start, rule) {
			continue
		}

		for j := start + 1; j+len(rule.delim) <= len(text); j++ {
			if text[j-1] == '\\' || !strings.HasPrefix(text[j:], rule.delim) {
				continue
			}
			if canClose(text, start, j, rule) {
				return rule, text[start:j], j + len(rule.delim) - i, true
			}
		}
	}

	return spanRule{}, "", 0, false
}

func canOpen(text string, at, start int, rule spanRule) bool {
	if start >= len(text) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(text[start:])
	if unicode.IsSpace(next) {
		return false
	}
	if len(rule.delim) == 1 && text[start] == rule.delim[0] {
		return false
	}
	if rule.wordBound && at > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:at])
		if isWordRune(prev) {
			return false
		}
	}
	return true
}

func canClose(text string, start, at int, rule spanRule) bool {
	prev, _ := utf8.DecodeLastRuneInString(text[:at])
	if unicode.IsSpace(prev) || at == start {
		return false
	}

	end := at + len(rule.delim)
	if len(rule.delim) == 1 && end < len(text) && text[end] == rule.delim[0] {
		return false
	}
	if rule.wordBound && end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// matchLink parses "[label](url)" at the start of text. The url may hold
// one level of balanced parentheses.
func matchLink(text string) (string, string, int, bool) {
	depth := 0
	labelEnd := -1
	for i := 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			if depth == 0 {
				labelEnd = i
			} else {
				depth--
			}
		}
		if labelEnd >= 0 {
			break
		}
	}
	if labelEnd <= 1 || labelEnd+1 >= len(text) || text[labelEnd+1] != '(' {
		return "", "", 0, false
	}

	urlStart := labelEnd + 2
	depth = 0
	for i := urlStart; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t':
			return "", "", 0, false
		case '(':
			depth++
			if depth > 1 {
				return "", "", 0, false
			}
		case ')':
			if depth == 0 {
				if i == urlStart {
					return "", "", 0, false
				}
				return text[1:labelEnd], text[urlStart:i], i + 1, true
			}
			depth--
		}
	}

	return "", "", 0, false
}
