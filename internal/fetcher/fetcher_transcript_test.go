package fetcher

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/omnibot/internal/logger"
)

func TestTranscriptFetcher_Transcript(t *testing.T) {
	var gotVideo string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVideo = r.URL.Query().Get("v")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch gotVideo {
		case "dQw4w9WgXcQ":
			_, _ = w.Write([]byte(`<html><body><div id="transcript">
				<p><span>We're no strangers</span><span>  to love </span></p>
				<p><span>You know the rules</span><span></span></p>
			</div></body></html>`))
		case "missing00000":
			_, _ = w.Write([]byte(`<html><body><div id="transcript"></div></body></html>`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	f := NewTranscriptFetcher(logger.NewTestLogger(), server.Client(), server.URL+"/transcript/")

	t.Run("spans joined", func(t *testing.T) {
		text, err := f.Transcript(t.Context(), "dQw4w9WgXcQ")

		require.NoError(t, err)
		assert.Equal(t, "dQw4w9WgXcQ", gotVideo)
		assert.Equal(t, "We're no strangers to love You know the rules", text)
	})

	t.Run("empty transcript", func(t *testing.T) {
		_, err := f.Transcript(t.Context(), "missing00000")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := f.Transcript(t.Context(), "broken000000")

		assert.ErrorIs(t, err, ErrHTTPStatus)
	})
}

func TestNewTranscriptFetcher_Pattern(t *testing.T) {
	f := NewTranscriptFetcher(logger.NewTestLogger(), &http.Client{}, "https://youtubetotranscript.com/transcript")

	assert.Equal(t, FetcherNameTranscript, f.GetName())
	assert.True(t, f.CanHandle("https://youtubetotranscript.com/transcript?v=dQw4w9WgXcQ"))
	assert.False(t, f.CanHandle("https://youtubetotranscriptXcom/transcript"))
	assert.False(t, f.CanHandle("https://example.com"))
}
