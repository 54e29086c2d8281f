// Package fetch retrieves pages over HTTP and pulls links and words out of them.
package fetch

import (
	"context"
	"errors"
)

var (
	// ErrBadStatus is returned when the server answers with a non-success status.
	ErrBadStatus = errors.New("unexpected HTTP status")

	// ErrUnsupportedContentType is returned for responses that are not HTML.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	ErrInvalidBaseURL = errors.New("invalid base URL")
)

// Fetcher retrieves the body of a URL. An error or a non-2xx status means
// the page could not be crawled; callers treat both the same way.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, status int, err error)
}

// Extractor pulls absolute outbound links and words out of a page body.
type Extractor interface {
	Extract(body []byte, baseURL string) (links, words []string, err error)
}
