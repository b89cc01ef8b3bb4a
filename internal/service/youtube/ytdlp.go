package youtube

import (
	"context"

	"github.com/lrstanley/go-ytdlp"
)

// ExtractOptions tune a metadata run. Media is never downloaded.
type ExtractOptions struct {
	Comments bool
	Proxy    string
}

type ytdlpExtractor struct{}

func NewYtdlpExtractor() ContentExtractor {
	return ytdlpExtractor{}
}

// Extract dumps the metadata of a single video, subtitle urls included.
// Playlist parameters in the link are ignored.
func (ytdlpExtractor) Extract(ctx context.Context, url string, options ExtractOptions) (*ytdlp.Result, error) {
	cmd := ytdlp.New().
		NoPlaylist().
		SkipDownload().
		PrintJSON()
	if options.Comments {
		cmd = cmd.WriteComments()
	}
	if options.Proxy != "" {
		cmd = cmd.Proxy(options.Proxy)
	}
	return cmd.Run(ctx, url)
}
