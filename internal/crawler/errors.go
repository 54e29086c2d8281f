package crawler

import "errors"

var (
	// ErrAlreadyCrawled is returned by Crawl when the Crawler was used before.
	ErrAlreadyCrawled = errors.New("crawler already used; create a new one per crawl")

	ErrInvalidPattern = errors.New("invalid exclude pattern")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("missing crawler dependency")
)
