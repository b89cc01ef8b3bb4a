package markdown

import "strings"

type tokenKind int

const (
	tokenAtom tokenKind = iota
	tokenOpen
	tokenClose
)

// token is a markup construct in rendered text, in rune offsets.
type token struct {
	start, end int
	kind       tokenKind
	name       string
}

// safePoints reports for every rune offset of text whether a chunk may end
// there: no tag or entity is cut and every opened construct is closed.
func safePoints(d Dialect, text []rune) []bool {
	safe := make([]bool, len(text)+1)
	for i := range safe {
		safe[i] = true
	}

	block := func(from, to int) {
		for p := from; p < to && p <= len(text); p++ {
			safe[p] = false
		}
	}

	type open struct {
		name  string
		start int
	}
	var stack []open

	for _, t := range d.scan(text) {
		block(t.start+1, t.end)

		switch t.kind {
		case tokenOpen:
			stack = append(stack, open{name: t.name, start: t.start})
		case tokenClose:
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name != t.name {
					continue
				}
				for _, o := range stack[i:] {
					block(o.start+1, t.end)
				}
				stack = stack[:i]
				break
			}
		}
	}

	for _, o := range stack {
		block(o.start+1, len(text)+1)
	}

	return safe
}

// openAt lists the constructs still open at offset p, outermost first.
func openAt(tokens []token, p int) []token {
	var stack []token
	for _, t := range tokens {
		if t.end > p {
			break
		}
		switch t.kind {
		case tokenOpen:
			stack = append(stack, t)
		case tokenClose:
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name == t.name {
					stack = stack[:i]
					break
				}
			}
		}
	}
	return stack
}

var htmlPairedTags = map[string]bool{
	"b": true, "strong": true, "i": true, "em": true, "u": true, "ins": true,
	"s": true, "strike": true, "del": true, "code": true, "pre": true, "a": true,
	"tg-spoiler": true, "tg-emoji": true, "span": true, "blockquote": true,
}

func (htmlDialect) scan(text []rune) []token {
	var tokens []token

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '<':
			end := indexRune(text, i+1, '>')
			if end < 0 {
				continue
			}
			tag := string(text[i+1 : end])
			kind := tokenOpen
			if strings.HasPrefix(tag, "/") {
				kind = tokenClose
				tag = tag[1:]
			}
			name := strings.ToLower(tagName(tag))
			if !htmlPairedTags[name] || strings.HasSuffix(tag, "/") {
				kind = tokenAtom
			}
			tokens = append(tokens, token{start: i, end: end + 1, kind: kind, name: name})
			i = end
		case '&':
			end := indexRune(text, i+1, ';')
			if end < 0 || end-i > 10 {
				continue
			}
			if entityLength(string(text[i:end+1])) == end+1-i {
				tokens = append(tokens, token{start: i, end: end + 1, kind: tokenAtom})
				i = end
			}
		}
	}

	return tokens
}

func (htmlDialect) closing(name string) string {
	if !htmlPairedTags[name] {
		return ""
	}
	return "</" + name + ">"
}

func tagName(tag string) string {
	for i, r := range tag {
		if r == ' ' || r == '\t' || r == '\n' || r == '/' {
			return tag[:i]
		}
	}
	return tag
}

type scanMode int

const (
	modeText scanMode = iota
	modeFence
	modeCode
	modeURL
)

func (markdownV2) scan(text []rune) []token {
	var tokens []token
	toggled := map[string]bool{}
	mode := modeText

	toggle := func(name string, start, end int) {
		kind := tokenOpen
		if toggled[name] {
			kind = tokenClose
		}
		toggled[name] = !toggled[name]
		tokens = append(tokens, token{start: start, end: end, kind: kind, name: name})
	}

	for i := 0; i < len(text); {
		r := text[i]

		if r == '\\' && i+1 < len(text) {
			tokens = append(tokens, token{start: i, end: i + 2, kind: tokenAtom})
			i += 2
			continue
		}

		switch mode {
		case modeFence:
			if hasRunePrefix(text, i, fence) {
				tokens = append(tokens, token{start: i, end: i + 3, kind: tokenClose, name: "pre"})
				mode = modeText
				i += 3
				continue
			}
			i++
			continue
		case modeCode:
			if r == '`' {
				tokens = append(tokens, token{start: i, end: i + 1, kind: tokenClose, name: "code"})
				mode = modeText
			}
			i++
			continue
		case modeURL:
			if r == ')' {
				tokens = append(tokens, token{start: i, end: i + 1, kind: tokenClose, name: "a"})
				mode = modeText
			}
			i++
			continue
		}

		switch {
		case hasRunePrefix(text, i, fence):
			tokens = append(tokens, token{start: i, end: i + 3, kind: tokenOpen, name: "pre"})
			mode = modeFence
			i += 3
		case r == '`':
			tokens = append(tokens, token{start: i, end: i + 1, kind: tokenOpen, name: "code"})
			mode = modeCode
			i++
		case hasRunePrefix(text, i, "__"):
			toggle("u", i, i+2)
			i += 2
		case hasRunePrefix(text, i, "||"):
			toggle("spoiler", i, i+2)
			i += 2
		case r == '*':
			toggle("b", i, i+1)
			i++
		case r == '_':
			toggle("i", i, i+1)
			i++
		case r == '~':
			toggle("s", i, i+1)
			i++
		case r == '[':
			tokens = append(tokens, token{start: i, end: i + 1, kind: tokenOpen, name: "a"})
			i++
		case r == ']' && i+1 < len(text) && text[i+1] == '(':
			tokens = append(tokens, token{start: i, end: i + 2, kind: tokenAtom})
			mode = modeURL
			i += 2
		default:
			i++
		}
	}

	return tokens
}

var markdownV2Closers = map[string]string{
	"pre":     "\n" + fence,
	"code":    "`",
	"b":       "*",
	"i":       "_",
	"u":       "__",
	"s":       "~",
	"spoiler": "||",
}

// closing has no entry for links: the url comes after the text.
func (markdownV2) closing(name string) string {
	return markdownV2Closers[name]
}

func hasRunePrefix(text []rune, at int, prefix string) bool {
	for _, r := range prefix {
		if at >= len(text) || text[at] != r {
			return false
		}
		at++
	}
	return true
}

func indexRune(text []rune, from int, r rune) int {
	for i := from; i < len(text); i++ {
		if text[i] == r {
			return i
		}
	}
	return -1
}
