package fetcher

import (
	"context"

	"github.com/muratoffalex/omnibot/internal/logger"
)

func defaultHandle(ctx context.Context, f BaseFetcher, request Request) (Response, error) {
	resp, body, err := f.fetch(ctx, request)
	if err != nil {
		return f.errorResponse(err)
	}

	if !f.isHTMLContent(resp, body) {
		return Response{
			Content: []Content{{Type: ContentTypeText, Text: body}},
		}, nil
	}

	doc, err := f.getGoqueryDoc(body)
	if err != nil {
		return f.errorResponse(err)
	}

	f.cleanDoc(doc)
	title := f.cleanText(doc.Find("title").First().Text())
	text := f.cleanText(doc.Find("body").Text())
	if text == "" {
		text = f.cleanText(doc.Text())
	}
	if title != "" {
		text = "Title: " + title + "\n" + text
	}

	return Response{
		Content: []Content{{Type: ContentTypeText, Text: text}},
	}, nil
}

func NewDefaultFetcher(l logger.Logger, httpClient HTTPClient) FuncFetcher {
	return NewFuncFetcher(FetcherNameDefault, "", httpClient, l, defaultHandle)
}
