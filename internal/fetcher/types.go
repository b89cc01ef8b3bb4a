package fetcher

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
)

const (
	FetcherNameDefault    = "default"
	FetcherNameYoutube    = "youtube"
	FetcherNameTranscript = "transcript"
	FetcherNameMedicine   = "medicine"
)

const (
	ContentTypeText ContentType = "text"
	ContentTypeURL  ContentType = "url"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:138.0) Gecko/20100101 Firefox/138.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 YaBrowser/25.4.1.1015 Yowser/2.5 Safari/537.36",
}

func RandomUserAgent() string {
	return UserAgents[rand.Intn(len(UserAgents))]
}

type Fetcher interface {
	Handle(ctx context.Context, request Request) (Response, error)
	CanHandle(url string) bool
	GetName() string
}

type ContentType string

type fetchHandler func(ctx context.Context, f BaseFetcher, request Request) (Response, error)

type Request interface {
	URL() string
	Method() string
	Headers() map[string]string
	// Options returns a map of options for a specific fetcher.
	// Keys must be consistent between the fetcher and the request.
	Options() map[string]any
}

type RequestPayload struct {
	url     string
	method  string
	headers map[string]string
	options map[string]any
}

func NewRequestPayload(
	urlString string,
	headers map[string]string,
	options map[string]any,
) (RequestPayload, error) {
	return NewRequestPayloadWithMethod(urlString, http.MethodGet, headers, options)
}

func NewRequestPayloadWithMethod(
	urlString string,
	method string,
	headers map[string]string,
	options map[string]any,
) (RequestPayload, error) {
	if strings.TrimSpace(urlString) == "" {
		return RequestPayload{}, ErrCannotBeEmpty
	}
	parsedURL, err := url.ParseRequestURI(urlString)
	if err != nil {
		return RequestPayload{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if parsedURL.Scheme == "" {
		return RequestPayload{}, fmt.Errorf("URL must have a scheme (http:// or https://)")
	}

	if parsedURL.Host == "" {
		return RequestPayload{}, fmt.Errorf("URL must have a host")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return RequestPayload{}, fmt.Errorf("unsupported URL scheme: %s", parsedURL.Scheme)
	}
	return RequestPayload{
		url:     urlString,
		method:  method,
		headers: headers,
		options: options,
	}, nil
}

// MustNewRequestPayload is NewRequestPayload for URLs built by the bot itself.
func MustNewRequestPayload(
	urlString string,
	headers map[string]string,
	options map[string]any,
) RequestPayload {
	payload, err := NewRequestPayload(urlString, headers, options)
	if err != nil {
		panic(err)
	}
	return payload
}

func (r RequestPayload) URL() string {
	return r.url
}

func (r RequestPayload) Method() string {
	return r.method
}

func (r RequestPayload) Headers() map[string]string {
	return r.headers
}

func (r RequestPayload) Options() map[string]any {
	return r.options
}

type Content struct {
	Type ContentType
	Text string
}
