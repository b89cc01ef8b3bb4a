package service

import (
	"regexp"
	"strings"

	"github.com/muratoffalex/omnibot/internal/config"
)

// Guard stops prompts that mention blocked words before they reach a model.
// Every letter of a blocked word may be repeated, so "saur" also matches
// "Saaauuur".
type Guard struct {
	pattern *regexp.Regexp
	reply   string
}

func NewGuard(cfg config.GuardConfig) *Guard {
	g := &Guard{reply: cfg.Reply}
	if !cfg.Enabled {
		return g
	}

	alternatives := make([]string, 0, len(cfg.BlockedWords))
	for _, word := range cfg.BlockedWords {
		if p := repeatedLettersPattern(word); p != "" {
			alternatives = append(alternatives, p)
		}
	}
	if len(alternatives) > 0 {
		g.pattern = regexp.MustCompile(`(?i)(` + strings.Join(alternatives, "|") + `)`)
	}
	return g
}

func repeatedLettersPattern(word string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(word) {
		sb.WriteString(regexp.QuoteMeta(string(r)))
		sb.WriteByte('+')
	}
	return sb.String()
}

// Check returns the reply to send instead of answering when text is blocked.
func (g *Guard) Check(text string) (string, bool) {
	if g == nil || g.pattern == nil || !g.pattern.MatchString(text) {
		return "", false
	}
	return g.reply, true
}
