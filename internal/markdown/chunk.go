package markdown

import (
	"strings"
	"unicode"

	"github.com/muratoffalex/omnibot/internal/logger"
)

const (
	// DefaultMaxLength is the Telegram limit for a text message.
	DefaultMaxLength = 4096

	sentenceWindow = 100
	newlineWindow  = 50
)

// Chunker splits rendered markup into messages that fit the length limit
// without cutting a tag, an entity, an escape or an open construct.
// Lengths are counted in UTF-16 code units, the way Telegram counts them.
type Chunker struct {
	dialect   Dialect
	maxLength int
	logger    logger.Logger
}

func NewChunker(d Dialect, maxLength int, l logger.Logger) *Chunker {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if d == nil {
		d = Plain
	}
	return &Chunker{dialect: d, maxLength: maxLength, logger: l}
}

func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}

	rest := []rune(text)
	if utf16Len(rest) <= c.maxLength {
		return []string{text}
	}

	var chunks []string
	for len(rest) > 0 {
		if utf16Len(rest) <= c.maxLength {
			if chunk := strings.TrimSpace(string(rest)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		split, clean := c.splitPoint(rest)
		if !clean {
			if head, tail, ok := c.splitOpen(rest); ok {
				chunks = append(chunks, strings.TrimSpace(string(head)))
				rest = tail
				continue
			}
			if c.logger != nil {
				c.logger.WithFields(logger.Fields{
					"dialect": c.dialect.Name(),
					"limit":   c.maxLength,
				}).Warn("No safe split point, cutting message through markup")
			}
		}
		if chunk := strings.TrimSpace(string(rest[:split])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		rest = []rune(strings.TrimSpace(string(rest[split:])))
	}

	return chunks
}

// splitPoint returns where the next chunk ends. clean is false when every
// candidate cuts through markup and the limit itself is returned.
func (c *Chunker) splitPoint(text []rune) (int, bool) {
	limit := runesWithin(text, c.maxLength)
	if limit == 0 {
		limit = 1
	}

	safe := safePoints(c.dialect, text)
	candidate := limit
	for candidate > 0 && !safe[candidate] {
		candidate--
	}
	if candidate == 0 {
		return limit, false
	}

	if p := lastSentenceEnd(text, safe, candidate); p > 0 {
		return p, true
	}
	if p := lastIndexWithin(text, safe, candidate, '\n', newlineWindow); p > 0 {
		return p, true
	}
	if p := lastIndexWithin(text, safe, candidate, ' ', candidate); p > 0 {
		return p, true
	}

	return candidate, true
}

// splitOpen handles a construct that alone is longer than the limit, such
// as a long code block. It cuts at the last line break (or space) that
// fits, closes the open constructs at the end of the head and opens them
// again at the start of the tail.
func (c *Chunker) splitOpen(text []rune) ([]rune, []rune, bool) {
	tokens := c.dialect.scan(text)
	limit := runesWithin(text, c.maxLength)

	open := openAt(tokens, limit)
	if len(open) == 0 {
		return nil, nil, false
	}

	// the cut has to come after the last opening or closing before the limit
	floor := 0
	inToken := make([]bool, len(text)+1)
	for _, t := range tokens {
		for p := t.start; p < t.end; p++ {
			inToken[p] = true
		}
		if t.kind != tokenAtom && t.end <= limit {
			floor = max(floor, t.end)
		}
	}

	var opening, closing []rune
	for i, o := range open {
		end := o.end
		if c.dialect == MarkdownV2 && o.name == "pre" {
			// the language tag belongs to the opening fence
			nl := indexRune(text, o.end, '\n')
			if nl < 0 || nl >= limit {
				return nil, nil, false
			}
			end = nl + 1
			floor = max(floor, end)
		}
		opening = append(opening, text[o.start:end]...)

		closer := c.dialect.closing(open[len(open)-1-i].name)
		if closer == "" {
			return nil, nil, false
		}
		closing = append(closing, []rune(closer)...)
	}

	budget := c.maxLength - utf16Len(closing)
	for _, sep := range []rune{'\n', ' '} {
		units := utf16Len(text[:limit])
		for p := limit - 1; p > floor; p-- {
			units -= runeUnits(text[p])
			if units > budget || text[p] != sep || inToken[p] || text[p-1] == '\\' {
				continue
			}
			head := append(append([]rune{}, text[:p]...), closing...)
			tail := append(append([]rune{}, opening...), text[p+1:]...)
			return head, tail, true
		}
	}

	return nil, nil, false
}

// lastSentenceEnd finds ". " close to the candidate and splits right after
// the period.
func lastSentenceEnd(text []rune, safe []bool, candidate int) int {
	for p := candidate; p >= 1 && candidate-p <= sentenceWindow; p-- {
		if p < len(text) && text[p] == ' ' && text[p-1] == '.' && safe[p] {
			return p
		}
	}
	return 0
}

func lastIndexWithin(text []rune, safe []bool, candidate int, r rune, window int) int {
	for p := candidate; p >= 1 && candidate-p <= window; p-- {
		if p < len(text) && text[p] == r && safe[p] {
			return p
		}
	}
	return 0
}

// runesWithin returns how many leading runes fit into limit UTF-16 units.
func runesWithin(text []rune, limit int) int {
	units := 0
	for i, r := range text {
		units += runeUnits(r)
		if units > limit {
			return i
		}
	}
	return len(text)
}

func utf16Len(text []rune) int {
	n := 0
	for _, r := range text {
		n += runeUnits(r)
	}
	return n
}

// Truncate shortens s to at most limit UTF-16 units and marks the cut
// with an ellipsis.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if utf16Len(runes) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	return strings.TrimRightFunc(string(runes[:runesWithin(runes, limit-1)]), unicode.IsSpace) + "…"
}

// UTF16Len is the message length as Telegram counts it.
func UTF16Len(s string) int {
	return utf16Len([]rune(s))
}

func runeUnits(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
