package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/muratoffalex/omnibot/internal/logger"
)

var (
	ErrNoVideoLanguage = errors.New("video language not available")
	ErrGetSubtitleURL  = errors.New("failed to get subtitle URL")
	ErrFetchTranscript = errors.New("failed to fetch transcript")
	ErrNoCaptions      = errors.New("no captions available for this video")
)

type SubtitleFetcherer interface {
	Fetch(ctx context.Context, info *ytdlp.ExtractedInfo) (string, error)
}

type SubtitleFetcher struct {
	httpClient HTTPClient
	logger     logger.Logger
}

func NewSubtitleFetcher(httpClient HTTPClient, logger logger.Logger) *SubtitleFetcher {
	return &SubtitleFetcher{
		httpClient: httpClient,
		logger:     logger,
	}
}

func (sf *SubtitleFetcher) Fetch(ctx context.Context, info *ytdlp.ExtractedInfo) (string, error) {
	if info.Language == nil {
		return "", ErrNoVideoLanguage
	}
	lang := *info.Language

	subtitleURL, err := sf.getSubtitleURL(info, lang)
	if err != nil {
		return "", errors.Join(ErrGetSubtitleURL, err)
	}

	content, err := sf.fetchSubtitles(ctx, subtitleURL)
	if err != nil {
		return "", errors.Join(ErrFetchTranscript, err)
	}

	return content, nil
}

func (sf *SubtitleFetcher) fetchSubtitles(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := sf.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return srtToText(string(body)), nil
}

// srtToText drops cue numbers and timings and joins the caption lines.
// Auto captions repeat the tail of the previous cue, so consecutive
// duplicates are collapsed.
func srtToText(srt string) string {
	var textLines []string
	for line := range strings.SplitSeq(srt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "-->") {
			continue
		}
		if _, err := strconv.Atoi(line); err == nil {
			continue
		}
		if n := len(textLines); n > 0 && textLines[n-1] == line {
			continue
		}
		textLines = append(textLines, line)
	}

	return strings.Join(textLines, " ")
}

func (sf *SubtitleFetcher) getSubtitleURL(info *ytdlp.ExtractedInfo, language string) (string, error) {
	if info.Language == nil || (info.AutomaticCaptions == nil && info.Subtitles == nil) {
		return "", ErrNoCaptions
	}

	baseLanguage := strings.Split(language, "-")[0]

	// Manual subtitles beat auto captions, exact language beats base language (en-US -> en).
	var languageCaptions []*ytdlp.ExtractedSubtitle
	exists := false
	for _, tracks := range []map[string][]*ytdlp.ExtractedSubtitle{info.Subtitles, info.AutomaticCaptions} {
		for _, lang := range []string{language, baseLanguage} {
			if languageCaptions, exists = tracks[lang]; exists {
				break
			}
		}
		if exists {
			break
		}
	}

	if !exists {
		return "", fmt.Errorf("%w: %s", ErrNoCaptions, language)
	}

	sf.logger.WithFields(logger.Fields{
		"language":           language,
		"available_captions": len(languageCaptions),
	}).Debug("Available captions")

	for _, caption := range languageCaptions {
		if strings.Contains(strings.ToLower(caption.URL), "fmt=srt") && caption.URL != "" {
			return caption.URL, nil
		}
	}

	return "", errors.New("no subtitle URL found")
}
