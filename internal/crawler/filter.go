package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Filter decides which discovered links are worth scheduling
type Filter struct {
	excluded []*regexp.Regexp
}

// NewFilter compiles the host exclusion patterns
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		f.excluded = append(f.excluded, re)
	}
	return f, nil
}

// NormalizeLink returns the absolute http(s) form of raw with the fragment
// removed. The second result is false for anything that cannot be crawled.
func NormalizeLink(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if parsed.Hostname() == "" {
		return "", false
	}

	parsed.Scheme = scheme
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String(), true
}

// ExtractDomain extracts the lowercased hostname from a URL string
func ExtractDomain(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	return strings.ToLower(parsed.Hostname()), nil
}

// IsExcluded checks if a domain matches any excluded pattern
func (f *Filter) IsExcluded(domain string) bool {
	for _, pattern := range f.excluded {
		if pattern.MatchString(domain) {
			return true
		}
	}
	return false
}

// FilterLinks normalizes links and drops the ones that cannot or should not
// be crawled. Order is preserved and duplicates within the page are removed.
func (f *Filter) FilterLinks(links []string) []string {
	seen := make(map[string]bool, len(links))
	filtered := make([]string, 0, len(links))

	for _, link := range links {
		normalized, ok := NormalizeLink(link)
		if !ok {
			continue
		}

		domain, err := ExtractDomain(normalized)
		if err != nil || domain == "" {
			continue
		}

		// Skip excluded domains
		if f.IsExcluded(domain) {
			continue
		}

		// Skip duplicates
		if seen[normalized] {
			continue
		}

		seen[normalized] = true
		filtered = append(filtered, normalized)
	}

	return filtered
}
