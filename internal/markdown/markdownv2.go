package markdown

import "strings"

// Characters Telegram MarkdownV2 requires escaped outside of code.
const markdownV2Reserved = "_*[]()~`>#+-=|{}.!"

type markdownV2 struct{}

func (markdownV2) Name() string      { return DialectMarkdownV2 }
func (markdownV2) ParseMode() string { return "MarkdownV2" }

// Escape prepares arbitrary text for a MarkdownV2 message.
func Escape(text string) string {
	return MarkdownV2.EscapeText(text)
}

// EscapeText prefixes every reserved character with a backslash. A
// backslash that already escapes an ASCII punctuation character is kept
// as is, so escaping twice gives the same result.
func (markdownV2) EscapeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/8)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			if i+1 < len(s) && isASCIIPunct(s[i+1]) {
				sb.WriteByte(c)
				sb.WriteByte(s[i+1])
				i++
				continue
			}
			sb.WriteString(`\\`)
		case strings.IndexByte(markdownV2Reserved, c) >= 0:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

func (markdownV2) EscapeCode(s string) string {
	return escapeBytes(s, "`\\")
}

func (markdownV2) EscapeURL(s string) string {
	return escapeBytes(s, ")\\")
}

func (markdownV2) Escaped(r rune) string {
	return `\` + string(r)
}

func (d markdownV2) CodeBlock(language, code string) string {
	if code == "" {
		return ""
	}
	return fence + language + "\n" + d.EscapeCode(code) + "\n" + fence
}

func (d markdownV2) InlineCode(code string) string {
	return "`" + d.EscapeCode(code) + "`"
}

func (markdownV2) Style(style Style, delim, inner string) string {
	switch style {
	case StyleBold:
		return "*" + inner + "*"
	case StyleItalic:
		if delim != "*" {
			delim = "_"
		}
		return delim + inner + delim
	case StyleUnderline:
		return "__" + inner + "__"
	case StyleStrike:
		return "~" + inner + "~"
	case StyleSpoiler:
		return "||" + inner + "||"
	}
	return inner
}

func (d markdownV2) Link(text, url string) string {
	return "[" + text + "](" + d.EscapeURL(url) + ")"
}

func (markdownV2) Heading(inner string) string {
	return "*" + inner + "*"
}

func escapeBytes(s, set string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(set, s[i]) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isASCIIPunct(c byte) bool {
	return c > ' ' && c < 0x7f &&
		!(c >= '0' && c <= '9') &&
		!(c >= 'a' && c <= 'z') &&
		!(c >= 'A' && c <= 'Z')
}
