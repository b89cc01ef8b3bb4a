package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/muratoffalex/omnibot/internal/logger"
)

// TranscriptFetcher scrapes video transcripts from a youtubetotranscript
// compatible site. It doubles as the transcript fallback of the youtube
// service.
type TranscriptFetcher struct {
	BaseFetcher
	baseURL string
}

func NewTranscriptFetcher(l logger.Logger, httpClient HTTPClient, baseURL string) TranscriptFetcher {
	pattern := `youtubetotranscript\.com/transcript`
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		pattern = strings.ReplaceAll(u.Host+u.Path, ".", `\.`)
	}
	return TranscriptFetcher{
		BaseFetcher: NewBaseFetcher(FetcherNameTranscript, pattern, httpClient, l),
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// Transcript returns the transcript of the video as a single line of text.
func (f TranscriptFetcher) Transcript(ctx context.Context, videoID string) (string, error) {
	request, err := NewRequestPayload(f.baseURL+"?v="+url.QueryEscape(videoID), nil, nil)
	if err != nil {
		return "", err
	}
	doc, err := f.getHTML(ctx, request)
	if err != nil {
		return "", err
	}

	text := f.extract(doc)
	if text == "" {
		return "", fmt.Errorf("%w: transcript for %s", ErrNotFound, videoID)
	}
	return text, nil
}

func (f TranscriptFetcher) Handle(ctx context.Context, request Request) (Response, error) {
	doc, err := f.getHTML(ctx, request)
	if err != nil {
		return f.errorResponse(err)
	}

	text := f.extract(doc)
	if text == "" {
		return f.errorResponse(fmt.Errorf("%w: transcript on %s", ErrNotFound, request.URL()))
	}
	return Response{
		Content: []Content{{Type: ContentTypeText, Text: text}},
	}, nil
}

func (f TranscriptFetcher) extract(doc *goquery.Document) string {
	var parts []string
	doc.Find("#transcript p span").Each(func(_ int, s *goquery.Selection) {
		if text := f.cleanText(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}
