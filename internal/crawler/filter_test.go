package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "http://a.test", want: "http://a.test", wantOK: true},
		{in: "http://a.test#frag", want: "http://a.test", wantOK: true},
		{in: "HTTPS://a.test/path?q=1#x", want: "https://a.test/path?q=1", wantOK: true},
		{in: "  http://a.test/  ", want: "http://a.test/", wantOK: true},
		{in: "ftp://a.test/file", wantOK: false},
		{in: "mailto:me@a.test", wantOK: false},
		{in: "/relative", wantOK: false},
		{in: "http://", wantOK: false},
		{in: "", wantOK: false},
		{in: "http://[::1", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeLink(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	t.Parallel()

	d, err := ExtractDomain("https://WWW.Example.com:8080/x")
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", d)

	_, err = ExtractDomain("http://[::1")
	assert.Error(t, err)
}

func TestFilter_FilterLinks(t *testing.T) {
	t.Parallel()

	f, err := NewFilter([]string{`(?i)facebook\.com$`, `^ads\.`})
	require.NoError(t, err)

	got := f.FilterLinks([]string{
		"http://a.test/one#top",
		"http://a.test/one",
		"https://www.facebook.com/share",
		"http://ads.tracker.test/pixel",
		"javascript:void(0)",
		"http://b.test",
	})
	assert.Equal(t, []string{"http://a.test/one", "http://b.test"}, got)
	assert.True(t, f.IsExcluded("FACEBOOK.com"))
	assert.False(t, f.IsExcluded("a.test"))
}

func TestNewFilter_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFilter([]string{"("})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
