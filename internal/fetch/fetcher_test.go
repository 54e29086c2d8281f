package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *CollyFetcher {
	return NewCollyFetcher(FetcherOptions{
		UserAgent:      "TestCrawler/1.0",
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		MaxBodyBytes:   1 << 20,
	})
}

func TestCollyFetcher_Returns200Body(t *testing.T) {
	t.Parallel()

	gotUA := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello world</body></html>"))
	}))
	defer srv.Close()

	body, status, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "hello world")
	assert.Equal(t, "TestCrawler/1.0", <-gotUA)
}

func TestCollyFetcher_BadStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}))

		body, status, err := newTestFetcher().Fetch(context.Background(), srv.URL)
		srv.Close()

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadStatus)
		assert.Equal(t, code, status)
		assert.Nil(t, body)
	}
}

func TestCollyFetcher_RevisitsAllowed(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>x</p>"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	for i := 0; i < 2; i++ {
		_, _, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestCollyFetcher_NonHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer srv.Close()

	_, status, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
	assert.Equal(t, http.StatusOK, status)
}

func TestCollyFetcher_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestFetcher().Fetch(ctx, "http://127.0.0.1:1/")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollyFetcher_ReadTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	f := NewCollyFetcher(FetcherOptions{
		UserAgent:      "TestCrawler/1.0",
		ConnectTimeout: time.Second,
		ReadTimeout:    50 * time.Millisecond,
		MaxBodyBytes:   1024,
	})

	start := time.Now()
	_, _, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestIsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"", true},
		{"text/html", true},
		{"text/html; charset=ISO-8859-1", true},
		{"application/xhtml+xml", true},
		{"application/json", false},
		{"image/png", false},
		{";;", false},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isHTML(tt.contentType))
		})
	}
}
