package fetch

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// FetcherOptions configures a CollyFetcher
type FetcherOptions struct {
	UserAgent      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxBodyBytes   int
}

// CollyFetcher fetches pages with a synchronous colly collector.
// Deduplication is left to the caller, so URL revisits are allowed.
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a fetcher. The connect timeout bounds dialing,
// the read timeout bounds the wait for response headers, and their sum
// bounds the whole request.
func NewCollyFetcher(opts FetcherOptions) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(opts.MaxBodyBytes),
	)

	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	})
	c.SetRequestTimeout(opts.ConnectTimeout + opts.ReadTimeout)

	return &CollyFetcher{collector: c}
}

// Fetch retrieves url and returns its body and status code.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	// Clones share the HTTP backend but carry their own callbacks and context
	c := f.collector.Clone()
	c.Context = ctx

	var (
		body        []byte
		status      int
		contentType string
	)

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
	})

	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(url); err != nil {
		if status >= 300 || (status > 0 && status < 200) {
			return nil, status, fmt.Errorf("%w: %d from %s", ErrBadStatus, status, url)
		}
		return nil, status, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if status < 200 || status > 299 {
		return nil, status, fmt.Errorf("%w: %d from %s", ErrBadStatus, status, url)
	}

	if !isHTML(contentType) {
		return nil, status, fmt.Errorf("%w: %q from %s", ErrUnsupportedContentType, contentType, url)
	}

	return body, status, nil
}

// isHTML accepts a missing content type, since many servers omit it
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml" || strings.HasPrefix(mediaType, "text/plain")
}
