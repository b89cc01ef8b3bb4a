package markdown

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// LanguageDetector guesses the language of an untagged code block.
type LanguageDetector interface {
	Detect(code string) string
}

type chromaDetector struct{}

// NewLanguageDetector returns a detector backed by chroma lexer analysers.
func NewLanguageDetector() LanguageDetector {
	return chromaDetector{}
}

func (chromaDetector) Detect(code string) string {
	lexer := lexers.Analyse(code)
	if lexer == nil || lexer == lexers.Fallback {
		return ""
	}
	return lexerAlias(lexer)
}

// NormalizeLanguage maps a tag like "golang" to the lexer alias, keeping
// unknown tags unchanged.
func NormalizeLanguage(tag string) string {
	if tag == "" {
		return ""
	}
	lexer := lexers.Get(tag)
	if lexer == nil {
		return tag
	}
	return lexerAlias(lexer)
}

func lexerAlias(lexer chroma.Lexer) string {
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}
