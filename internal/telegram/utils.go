package telegram

import (
	"regexp"
	"strings"
)

// LargestPhoto picks the biggest size Telegram offers for a photo.
func LargestPhoto(photos []PhotoSize) *PhotoSize {
	var best *PhotoSize
	for i := range photos {
		if best == nil || photos[i].Width*photos[i].Height > best.Width*best.Height {
			best = &photos[i]
		}
	}
	return best
}

// StripMention removes every @username mention of the bot from text.
func StripMention(text, username string) (string, bool) {
	if username == "" {
		return text, false
	}
	re := regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(username) + `\b`)
	if !re.MatchString(text) {
		return text, false
	}
	return strings.TrimSpace(re.ReplaceAllString(text, "")), true
}

// SplitCommandTarget splits "cmd@botname" into its parts.
func SplitCommandTarget(command string) (string, string) {
	name, target, _ := strings.Cut(command, "@")
	return strings.ToLower(name), target
}
