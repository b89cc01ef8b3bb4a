package youtube

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

const defaultMaxComments = 10

type CommentProcessor struct {
	maxComments int
}

// processComments renders the most liked comments, one header line and one
// text line per comment. Without like counts the original order is kept.
func (cp *CommentProcessor) processComments(comments []*ytdlp.ExtractedVideoComment, maxComments int) string {
	if maxComments <= 0 {
		maxComments = cmp.Or(cp.maxComments, defaultMaxComments)
	}

	validComments := slices.DeleteFunc(slices.Clone(comments), func(c *ytdlp.ExtractedVideoComment) bool {
		return c == nil || c.Text == nil || *c.Text == ""
	})
	if len(validComments) == 0 {
		return "Not found"
	}

	if validComments[0].LikeCount != nil {
		slices.SortStableFunc(validComments, func(a, b *ytdlp.ExtractedVideoComment) int {
			return cmp.Compare(likes(b), likes(a))
		})
	}

	blocks := make([]string, 0, min(maxComments, len(validComments)))
	for _, comment := range validComments[:min(maxComments, len(validComments))] {
		var header []string
		if comment.Author != nil && *comment.Author != "" {
			header = append(header, "Author: "+*comment.Author)
		}
		if comment.LikeCount != nil {
			header = append(header, "Likes: "+FormatCount(*comment.LikeCount))
		}
		if comment.Timestamp != nil {
			date := time.Unix(int64(*comment.Timestamp), 0).UTC().Format(time.DateTime)
			header = append(header, "Date: "+date)
		}

		block := fmt.Sprintf("Text: %s", *comment.Text)
		if len(header) > 0 {
			block = strings.Join(header, " | ") + "\n" + block
		}
		blocks = append(blocks, block)
	}

	return strings.Join(blocks, "\n")
}

func likes(c *ytdlp.ExtractedVideoComment) float64 {
	if c.LikeCount == nil {
		return 0
	}
	return *c.LikeCount
}
