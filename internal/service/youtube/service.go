package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/storage"
)

type FetchFlag uint16

const (
	FetchTranscript FetchFlag = 1 << iota
	FetchComments
)

var (
	ErrInvalidVideoURL    = errors.New("invalid youtube video url")
	ErrExtractYoutubeData = errors.New("failed to extract youtube data")
	ErrExtractVideoInfo   = errors.New("failed to extract video info")
	ErrNoVideoInfo        = errors.New("no video info available")
	ErrNoTranscript       = errors.New("transcript not available")
)

type ContentExtractor interface {
	Extract(ctx context.Context, url string, options ExtractOptions) (*ytdlp.Result, error)
}

// TranscriptSource provides a transcript by video id when the video itself
// has no usable captions or yt-dlp fails.
type TranscriptSource interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

type Config struct {
	Proxy       string
	MaxComments int
	CacheTTL    time.Duration
}

type Service struct {
	config           Config
	logger           logger.Logger
	contentExtractor ContentExtractor
	subtitleFetcher  SubtitleFetcherer
	commentProcessor *CommentProcessor
	fallback         TranscriptSource
	cache            storage.Store
}

func NewService(
	l logger.Logger,
	httpClient HTTPClient,
	cache storage.Store,
	fallback TranscriptSource,
	config Config,
) *Service {
	return &Service{
		config:           config,
		logger:           l.WithField("service", "youtube"),
		contentExtractor: NewYtdlpExtractor(),
		subtitleFetcher:  NewSubtitleFetcher(httpClient, l),
		commentProcessor: &CommentProcessor{
			maxComments: config.MaxComments,
		},
		fallback: fallback,
		cache:    cache,
	}
}

type YoutubeData struct {
	VideoID      string     `json:"video_id"`
	LikeCount    *float64   `json:"like_count,omitempty"`
	CommentCount *float64   `json:"comment_count,omitempty"`
	ViewCount    *float64   `json:"view_count,omitempty"`
	UploadedAt   *time.Time `json:"uploaded_at,omitempty"`
	Title        string     `json:"title,omitempty"`
	Transcript   string     `json:"transcript,omitempty"`
	Comments     string     `json:"comments,omitempty"`
}

// Text renders the data as a prompt context block.
func (d *YoutubeData) Text() string {
	var sb strings.Builder
	if d.Title != "" {
		sb.WriteString("Title: " + d.Title + "\n")
	}

	metadataItems := []string{}
	if val := d.UploadedAt; val != nil {
		metadataItems = append(metadataItems, "Uploaded at: "+val.UTC().Format(time.DateTime))
	}
	if val := d.ViewCount; val != nil {
		metadataItems = append(metadataItems, "Views: "+FormatCount(*val))
	}
	if val := d.LikeCount; val != nil {
		metadataItems = append(metadataItems, "Likes: "+FormatCount(*val))
	}
	if val := d.CommentCount; val != nil {
		metadataItems = append(metadataItems, "Comments count: "+FormatCount(*val))
	}
	if len(metadataItems) > 0 {
		sb.WriteString(strings.Join(metadataItems, " | ") + "\n")
	}

	if d.Transcript != "" {
		sb.WriteString("Transcript:\n" + strings.TrimSpace(d.Transcript) + "\n")
	}
	if d.Comments != "" {
		sb.WriteString("Popular comments:\n" + d.Comments + "\n")
	}
	return strings.TrimSpace(sb.String())
}

func (f *Service) FetchYoutubeData(ctx context.Context, url string, flags FetchFlag, maxComments int) (*YoutubeData, error) {
	videoID, ok := VideoID(url)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVideoURL, url)
	}
	if maxComments <= 0 {
		maxComments = f.config.MaxComments
	}
	if maxComments <= 0 {
		flags &^= FetchComments
	}

	log := f.logger.WithField("video_id", videoID)
	key := fmt.Sprintf("youtube:%s:%d:%d", videoID, flags, maxComments)
	if data := f.fromCache(ctx, key); data != nil {
		log.Debug("Youtube data loaded from cache")
		return data, nil
	}

	result, err := f.fetch(ctx, videoID, flags, maxComments)
	if err != nil {
		return nil, err
	}

	f.toCache(ctx, key, result)
	return result, nil
}

func (f *Service) fetch(ctx context.Context, videoID string, flags FetchFlag, maxComments int) (*YoutubeData, error) {
	log := f.logger.WithField("video_id", videoID)

	output, err := f.contentExtractor.Extract(ctx, WatchURL(videoID), ExtractOptions{
		Comments: flags&FetchComments != 0,
		Proxy:    f.config.Proxy,
	})
	if err != nil {
		if flags&FetchTranscript == 0 || f.fallback == nil {
			return nil, errors.Join(ErrExtractYoutubeData, err)
		}
		log.WithError(err).Warn("yt-dlp failed, using transcript fallback")
		transcript, fbErr := f.fallback.Transcript(ctx, videoID)
		if fbErr != nil {
			return nil, errors.Join(ErrExtractYoutubeData, err, fbErr)
		}
		return &YoutubeData{VideoID: videoID, Transcript: transcript}, nil
	}

	info, err := output.GetExtractedInfo()
	if err != nil {
		return nil, errors.Join(ErrExtractVideoInfo, err)
	}

	if len(info) == 0 || info[0] == nil {
		return nil, ErrNoVideoInfo
	}

	file := info[0]
	result := f.extractVideoInfo(file)
	result.VideoID = videoID

	if flags&FetchTranscript != 0 {
		content, err := f.transcript(ctx, videoID, file)
		if err != nil {
			return nil, err
		}
		result.Transcript = content
	}

	if flags&FetchComments != 0 {
		result.Comments = f.commentProcessor.processComments(file.Comments, maxComments)
	}

	return result, nil
}

func (f *Service) transcript(ctx context.Context, videoID string, info *ytdlp.ExtractedInfo) (string, error) {
	content, err := f.subtitleFetcher.Fetch(ctx, info)
	if err == nil && strings.TrimSpace(content) != "" {
		return content, nil
	}
	if err == nil {
		err = ErrNoTranscript
	}
	if f.fallback == nil {
		return "", err
	}

	f.logger.WithError(err).WithField("video_id", videoID).Debug("Subtitles unavailable, using transcript fallback")
	content, fbErr := f.fallback.Transcript(ctx, videoID)
	if fbErr != nil {
		return "", errors.Join(ErrNoTranscript, err, fbErr)
	}
	return content, nil
}

func (f *Service) fromCache(ctx context.Context, key string) *YoutubeData {
	if f.cache == nil {
		return nil
	}
	raw, ok, err := f.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil
	}
	var data YoutubeData
	if err := json.Unmarshal(raw, &data); err != nil {
		f.logger.WithError(err).Warn("Broken youtube cache entry")
		return nil
	}
	return &data
}

func (f *Service) toCache(ctx context.Context, key string, data *YoutubeData) {
	if f.cache == nil || f.config.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, key, raw, f.config.CacheTTL); err != nil {
		f.logger.WithError(err).Warn("Failed to cache youtube data")
	}
}

func (f *Service) extractVideoInfo(info *ytdlp.ExtractedInfo) *YoutubeData {
	result := &YoutubeData{
		LikeCount:    info.LikeCount,
		CommentCount: info.CommentCount,
		ViewCount:    info.ViewCount,
	}

	if info.Title != nil {
		result.Title = *info.Title
	}
	if timestamp := info.Timestamp; timestamp != nil {
		val := time.Unix(int64(*timestamp), 0)
		result.UploadedAt = &val
	}

	return result
}

func FormatCount(count float64) string {
	switch {
	case count < 1000:
		return fmt.Sprintf("%.0f", count)
	case count < 10000:
		return fmt.Sprintf("%.1fK", count/1000)
	case count < 1000000:
		return fmt.Sprintf("%.0fK", count/1000)
	case count < 10000000:
		return fmt.Sprintf("%.1fM", count/1000000)
	default:
		return fmt.Sprintf("%.0fM", count/1000000)
	}
}
