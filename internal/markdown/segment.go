package markdown

import (
	"strings"
	"unicode"
)

const fence = "```"

// Segment scans text once, left to right, and splits it into code blocks,
// inline code and plain text. A triple fence always wins over a single
// backtick. An unterminated fence turns the rest of the input into plain
// text, an unterminated backtick is kept as a plain character.
func Segment(text string) []Fragment {
	var fragments []Fragment
	plainStart := 0

	flushPlain := func(end int) {
		if end > plainStart {
			fragments = append(fragments, Fragment{
				Kind:    KindPlain,
				Content: text[plainStart:end],
				Raw:     text[plainStart:end],
			})
		}
	}

	i := 0
	for i < len(text) {
		if text[i] != '`' {
			i++
			continue
		}

		if strings.HasPrefix(text[i:], fence) {
			bodyStart := i + len(fence)
			closing := strings.Index(text[bodyStart:], fence)
			if closing < 0 {
				break
			}
			bodyEnd := bodyStart + closing
			flushPlain(i)
			language, code := splitFenceBody(text[bodyStart:bodyEnd])
			fragments = append(fragments, Fragment{
				Kind:     KindCodeBlock,
				Content:  code,
				Language: language,
				Raw:      text[i : bodyEnd+len(fence)],
			})
			i = bodyEnd + len(fence)
			plainStart = i
			continue
		}

		end := strings.IndexAny(text[i+1:], "`\n")
		if end > 0 && text[i+1+end] == '`' {
			flushPlain(i)
			fragments = append(fragments, Fragment{
				Kind:    KindInlineCode,
				Content: text[i+1 : i+1+end],
				Raw:     text[i : i+end+2],
			})
			i += end + 2
			plainStart = i
			continue
		}
		i++
	}
	flushPlain(len(text))

	return fragments
}

// splitFenceBody separates an optional language tag on the opening line
// from the block content.
func splitFenceBody(body string) (string, string) {
	newline := strings.IndexByte(body, '\n')
	if newline < 0 {
		return "", strings.TrimSpace(body)
	}

	firstLine := strings.TrimSpace(body[:newline])
	if firstLine == "" || isLanguageTag(firstLine) {
		return firstLine, strings.TrimSpace(body[newline+1:])
	}

	return "", strings.TrimSpace(body)
}

func isLanguageTag(s string) bool {
	if len(s) > 32 {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '+', '#', '-', '_', '.':
			continue
		}
		return false
	}
	return true
}
