package markdown

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownDialect = errors.New("unknown markup dialect")

// Style is an inline emphasis recognised in model output.
type Style int

const (
	StyleBold Style = iota
	StyleItalic
	StyleUnderline
	StyleStrike
	StyleSpoiler
)

// Dialect renders fragments into one of the markup languages Telegram
// accepts and knows which of its own constructs must not be split.
type Dialect interface {
	Name() string
	// ParseMode is the value sent as parse_mode with the message.
	ParseMode() string
	EscapeText(s string) string
	EscapeCode(s string) string
	EscapeURL(s string) string
	// Escaped renders a character that was backslash-escaped in the source.
	Escaped(r rune) string
	CodeBlock(language, code string) string
	InlineCode(code string) string
	// Style wraps already rendered inner text. delim is the source
	// delimiter, dialects may reuse it.
	Style(style Style, delim, inner string) string
	Link(text, url string) string
	Heading(inner string) string
	// scan lists the markup tokens of rendered text for the chunker.
	scan(text []rune) []token
	// closing is the markup that ends a construct scan reported as open.
	closing(name string) string
}

const (
	DialectMarkdownV2 = "markdownv2"
	DialectHTML       = "html"
	DialectPlain      = "plain"
)

var (
	MarkdownV2 Dialect = markdownV2{}
	HTML       Dialect = htmlDialect{}
	Plain      Dialect = plainDialect{}
)

// DialectByName resolves a configured dialect name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DialectMarkdownV2, "markdown", "md":
		return MarkdownV2, nil
	case DialectHTML:
		return HTML, nil
	case DialectPlain, "text", "":
		return Plain, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
}

type plainDialect struct{}

func (plainDialect) Name() string                  { return DialectPlain }
func (plainDialect) ParseMode() string             { return "" }
func (plainDialect) EscapeText(s string) string    { return s }
func (plainDialect) EscapeCode(s string) string    { return s }
func (plainDialect) EscapeURL(s string) string     { return s }
func (plainDialect) Escaped(r rune) string         { return string(r) }
func (plainDialect) InlineCode(code string) string { return code }
func (plainDialect) Heading(inner string) string   { return inner }
func (plainDialect) scan([]rune) []token           { return nil }
func (plainDialect) closing(string) string         { return "" }

func (plainDialect) CodeBlock(_, code string) string {
	return code
}

func (plainDialect) Style(_ Style, _ string, inner string) string {
	return inner
}

func (plainDialect) Link(text, url string) string {
	if text == url {
		return url
	}
	return text + " (" + url + ")"
}
