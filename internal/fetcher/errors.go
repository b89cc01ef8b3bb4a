package fetcher

import "errors"

var (
	ErrNotHandle     = errors.New("not handling")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrCannotBeEmpty = errors.New("URL cannot be empty")
	ErrNoFetcher     = errors.New("no fetcher found for URL")
	ErrHTTPStatus    = errors.New("unexpected HTTP status")
	ErrNotFound      = errors.New("nothing found")
)
