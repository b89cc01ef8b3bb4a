package markdown

import "strings"

// Converter renders raw model output in a dialect.
type Converter struct {
	dialect  Dialect
	detector LanguageDetector
}

func NewConverter(d Dialect, detector LanguageDetector) *Converter {
	if d == nil {
		d = Plain
	}
	return &Converter{dialect: d, detector: detector}
}

// Convert renders raw with the given dialect.
func Convert(raw string, d Dialect) string {
	return NewConverter(d, nil).Convert(raw)
}

func (c *Converter) Convert(raw string) string {
	if raw == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(raw) + len(raw)/4)

	atLineStart := true
	for _, f := range Segment(raw) {
		switch f.Kind {
		case KindCodeBlock:
			language := NormalizeLanguage(f.Language)
			if language == "" && c.detector != nil {
				language = c.detector.Detect(f.Content)
			}
			sb.WriteString(c.dialect.CodeBlock(language, f.Content))
		case KindInlineCode:
			sb.WriteString(c.dialect.InlineCode(f.Content))
		default:
			sb.WriteString(convertPlain(c.dialect, f.Content, atLineStart))
		}
		atLineStart = strings.HasSuffix(f.Raw, "\n")
	}

	return sb.String()
}
