package fetcher

import (
	"context"
	"errors"

	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/service/youtube"
)

var ErrCreateYoutubeRequest = errors.New("failed to create youtube request")

const (
	OptYtFetchFlags  = "fetch_flags"
	OptYtMaxComments = "max_comments"
)

type YoutubeRequest struct {
	RequestPayload
	// fetchFlags determines what to load (transcription, comments).
	fetchFlags youtube.FetchFlag
	// maxComments limits the number of comments to be loaded.
	maxComments int
}

func NewYoutubeRequest(
	url string,
	headers map[string]string,
	fetchFlags youtube.FetchFlag, maxComments int,
) (YoutubeRequest, error) {
	payload, err := NewRequestPayload(url, headers, nil)
	if err != nil {
		return YoutubeRequest{}, errors.Join(ErrCreateYoutubeRequest, err)
	}
	return YoutubeRequest{
		RequestPayload: payload,
		fetchFlags:     fetchFlags,
		maxComments:    maxComments,
	}, nil
}

func (r YoutubeRequest) Options() map[string]any {
	return map[string]any{
		OptYtFetchFlags:  r.fetchFlags,
		OptYtMaxComments: r.maxComments,
	}
}

type youtubeService interface {
	FetchYoutubeData(ctx context.Context, url string, flags youtube.FetchFlag, maxComments int) (*youtube.YoutubeData, error)
}

type YoutubeFetcher struct {
	BaseFetcher
	service youtubeService
}

func NewYoutubeFetcher(l logger.Logger, httpClient HTTPClient, ytService youtubeService) YoutubeFetcher {
	return YoutubeFetcher{
		BaseFetcher: NewBaseFetcher(FetcherNameYoutube, `youtube\.com|youtu\.be|youtube-nocookie\.com`, httpClient, l),
		service:     ytService,
	}
}

func (f YoutubeFetcher) Handle(ctx context.Context, request Request) (Response, error) {
	fetchFlags := youtube.FetchTranscript
	maxComments := 0

	// try to get parameters from Options.
	if opts := request.Options(); opts != nil {
		if flags, ok := opts[OptYtFetchFlags].(youtube.FetchFlag); ok {
			fetchFlags = flags
		}
		if mc, ok := opts[OptYtMaxComments].(int); ok {
			maxComments = mc
		}
	}

	data, err := f.service.FetchYoutubeData(ctx, request.URL(), fetchFlags, maxComments)
	if err != nil {
		if errors.Is(err, youtube.ErrInvalidVideoURL) {
			// channel pages and playlists go to the default fetcher
			return Response{}, errors.Join(ErrNotHandle, err)
		}
		return f.errorResponse(err)
	}
	data.Transcript = f.cleanText(data.Transcript)

	return Response{
		Content: []Content{{Type: ContentTypeText, Text: data.Text()}},
	}, nil
}
