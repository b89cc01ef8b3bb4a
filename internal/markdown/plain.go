package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// StripMarkup turns markdown into readable plain text. It is used when
// Telegram rejects formatted output.
func StripMarkup(source string) string {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				sb.Write(node.URL(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			if !entering && len(node.Destination) > 0 {
				sb.WriteString(" (" + string(node.Destination) + ")")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					line := lines.At(i)
					sb.Write(line.Value(src))
				}
				sb.WriteString("\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if entering {
				sb.WriteString("• ")
			}
		case *ast.TextBlock:
			if !entering {
				sb.WriteString("\n")
			}
		case *ast.Paragraph, *ast.Heading, *ast.ThematicBreak:
			if !entering {
				sb.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(extraBlankLines.ReplaceAllString(sb.String(), "\n\n"))
}

// Unformat removes the markup of an already converted chunk so it can be
// sent without a parse mode.
func Unformat(d Dialect, chunk string) string {
	switch d.Name() {
	case DialectMarkdownV2:
		return unformatMarkdownV2(chunk)
	case DialectHTML:
		return unformatHTML(chunk)
	default:
		return chunk
	}
}

func unformatMarkdownV2(s string) string {
	rs := []rune(s)
	var sb strings.Builder
	inCode := false
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\\' && i+1 < len(rs):
			i++
			sb.WriteRune(rs[i])
		case hasRunePrefix(rs, i, "```"):
			i += 2
			if !inCode {
				// language tag
				for i+1 < len(rs) && rs[i+1] != '\n' && rs[i+1] != ' ' {
					i++
				}
			}
			inCode = !inCode
		case r == '`':
			inCode = !inCode
		case inCode:
			sb.WriteRune(r)
		case r == '*' || r == '_' || r == '~' || r == '|' || r == '[':
		case r == ']' && i+1 < len(rs) && rs[i+1] == '(':
			end := i + 2
			var url strings.Builder
			for ; end < len(rs) && rs[end] != ')'; end++ {
				if rs[end] == '\\' && end+1 < len(rs) {
					end++
				}
				url.WriteRune(rs[end])
			}
			sb.WriteString(" (" + url.String() + ")")
			i = end
		case r == ']':
		default:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

func unformatHTML(s string) string {
	var (
		sb    strings.Builder
		hrefs []string
	)
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(sb.String())
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				continue
			}
			href := ""
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" {
					href = string(val)
				}
			}
			hrefs = append(hrefs, href)
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != "a" || len(hrefs) == 0 {
				continue
			}
			if href := hrefs[len(hrefs)-1]; href != "" {
				sb.WriteString(" (" + href + ")")
			}
			hrefs = hrefs[:len(hrefs)-1]
		}
	}
}
