package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mnty4/multi-threaded-webcrawler/internal/storage"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int64
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
	}
}

// IncrementTasksScheduled counts a task accepted by the worker pool
func (t *Tracker) IncrementTasksScheduled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.TasksScheduled++
}

// IncrementTasksRejected counts a task the worker pool refused
func (t *Tracker) IncrementTasksRejected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.TasksRejected++
}

// IncrementDuplicatesSkipped counts a task whose URL was already claimed
func (t *Tracker) IncrementDuplicatesSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.DuplicatesSkipped++
}

// IncrementPagesFetched increments the successful fetch counter
func (t *Tracker) IncrementPagesFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
}

// IncrementPagesFailed increments the failed fetch counter
func (t *Tracker) IncrementPagesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
}

func (t *Tracker) IncrementExtractErrors() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ExtractErrors++
}

func (t *Tracker) IncrementTaskPanics() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.TaskPanics++
}

// AddLinksDiscovered adds the number of crawlable links found on a page
func (t *Tracker) AddLinksDiscovered(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksDiscovered += int64(n)
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	// Calculate average fetch time
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / t.fetchCount
	}

	return snapshot
}

// Finish stamps the end time and termination reason and returns the final metrics
func (t *Tracker) Finish(reason string) storage.Metrics {
	t.mu.Lock()
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.mu.Unlock()

	return t.GetSnapshot()
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	final := t.Finish(reason)

	// Marshal to JSON
	jsonData, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, jsonData, 0o644); err != nil { //nolint:gosec // metrics are not secret
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Tasks: %d scheduled, %d rejected, %d duplicate | Pages: %d fetched, %d failed | Links: %d",
		t.data.TasksScheduled,
		t.data.TasksRejected,
		t.data.DuplicatesSkipped,
		t.data.PagesFetched,
		t.data.PagesFailed,
		t.data.LinksDiscovered,
	)
}
