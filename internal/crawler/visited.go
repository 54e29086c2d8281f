package crawler

import (
	"sync"
	"sync/atomic"
)

// VisitedSet records URLs that have been claimed for crawling
type VisitedSet struct {
	urls sync.Map
	size atomic.Int64
}

// NewVisitedSet creates an empty set
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{}
}

// Claim marks url as visited. It returns true for exactly one caller per
// URL, no matter how many goroutines race on it.
func (v *VisitedSet) Claim(url string) bool {
	if _, loaded := v.urls.LoadOrStore(url, struct{}{}); loaded {
		return false
	}
	v.size.Add(1)
	return true
}

// Len returns the number of claimed URLs
func (v *VisitedSet) Len() int {
	return int(v.size.Load())
}

// URLs returns a snapshot of every claimed URL in no particular order
func (v *VisitedSet) URLs() []string {
	urls := make([]string, 0, v.Len())
	v.urls.Range(func(key, _ any) bool {
		urls = append(urls, key.(string))
		return true
	})
	return urls
}
