package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// VideoID extracts the 11 character id from watch, youtu.be, shorts, embed
// and live links. A bare id is accepted as well.
func VideoID(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if videoIDPattern.MatchString(link) {
		return link, true
	}
	if !strings.Contains(link, "://") {
		link = "https://" + link
	}

	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	path := strings.Trim(u.Path, "/")

	var id string
	switch host {
	case "youtu.be":
		id, _, _ = strings.Cut(path, "/")
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if path == "watch" {
			id = u.Query().Get("v")
			break
		}
		prefix, rest, found := strings.Cut(path, "/")
		if !found {
			return "", false
		}
		switch prefix {
		case "shorts", "embed", "live", "v", "e":
			id, _, _ = strings.Cut(rest, "/")
		}
	default:
		return "", false
	}

	if !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
