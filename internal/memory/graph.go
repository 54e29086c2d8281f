package memory

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mnty4/multi-threaded-webcrawler/internal/storage"
)

// PageStore persists pages and link edges of a run
type PageStore interface {
	UpsertPage(runID, url string, status, wordCount int) (int64, error)
	UpsertEdge(runID string, fromID, toID int64, weight int) error
}

type edgeKey struct {
	from, to string
}

// MemoryGraph holds the page link graph of a crawl in memory until it is flushed
type MemoryGraph struct {
	pages  map[string]*storage.Page // url -> page
	edges  map[edgeKey]int          // weight
	logger logrus.FieldLogger
	mu     sync.RWMutex
}

// NewMemoryGraph creates a new in-memory graph
func NewMemoryGraph(logger logrus.FieldLogger) *MemoryGraph {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MemoryGraph{
		pages:  make(map[string]*storage.Page),
		edges:  make(map[edgeKey]int),
		logger: logger,
	}
}

// RecordPage stores the outcome of a fetch
func (mg *MemoryGraph) RecordPage(url string, status, wordCount int) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	page := mg.upsert(url)
	page.Status = status
	page.WordCount = wordCount
	page.CrawledAt = time.Now()
}

// RecordLink adds a directed edge, creating the target page if it is new
func (mg *MemoryGraph) RecordLink(from, to string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	mg.upsert(from)
	mg.upsert(to)
	mg.edges[edgeKey{from: from, to: to}]++
}

// upsert must be called with mu held
func (mg *MemoryGraph) upsert(url string) *storage.Page {
	if page, exists := mg.pages[url]; exists {
		return page
	}
	page := &storage.Page{URL: url}
	mg.pages[url] = page
	return page
}

// GetPage retrieves a page by URL
func (mg *MemoryGraph) GetPage(url string) *storage.Page {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	if page, exists := mg.pages[url]; exists {
		// Return a copy to prevent external modifications
		pageCopy := *page
		return &pageCopy
	}

	return nil
}

// EdgeWeight returns how many times from linked to to
func (mg *MemoryGraph) EdgeWeight(from, to string) int {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	return mg.edges[edgeKey{from: from, to: to}]
}

// GetStats returns current graph statistics
func (mg *MemoryGraph) GetStats() (pageCount, edgeCount int) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	return len(mg.pages), len(mg.edges)
}

// Flush writes all in-memory data to storage under runID.
// Failures are logged and the first one is returned once everything was attempted.
func (mg *MemoryGraph) Flush(store PageStore, runID string) error {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	startTime := time.Now()
	mg.logger.WithField("run", runID).Info("Starting flush to database...")

	pagesWritten := 0
	edgesWritten := 0
	var firstErr error

	// Flush pages, remembering their database IDs for the edges
	idMap := make(map[string]int64, len(mg.pages))
	for url, page := range mg.pages {
		pageID, err := store.UpsertPage(runID, url, page.Status, page.WordCount)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			mg.logger.WithError(err).WithField("url", url).Warn("Failed to flush page")
			continue
		}
		idMap[url] = pageID
		pagesWritten++
	}

	for key, weight := range mg.edges {
		fromID, fromExists := idMap[key.from]
		toID, toExists := idMap[key.to]

		if !fromExists || !toExists {
			mg.logger.WithFields(logrus.Fields{
				"from": key.from,
				"to":   key.to,
			}).Warn("Skipping edge: page ID mapping not found")
			continue
		}

		if err := store.UpsertEdge(runID, fromID, toID, weight); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			mg.logger.WithError(err).Warnf("Failed to flush edge %d->%d", fromID, toID)
			continue
		}

		edgesWritten++
	}

	mg.logger.Infof("Flush complete: %d pages, %d edges written in %v", pagesWritten, edgesWritten, time.Since(startTime))

	return firstErr
}
