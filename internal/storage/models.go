package storage

import "time"

// Run is one invocation of the crawler
type Run struct {
	RunID             string
	Seeds             []string
	StartedAt         time.Time
	FinishedAt        time.Time // zero while the run is in progress
	TerminationReason string
	PagesFetched      int64
	PagesFailed       int64
	TotalWords        int64
}

// WordCount is a single ranked entry of a word frequency snapshot
type WordCount struct {
	Word  string
	Count int64
}

// Snapshot is a persisted word frequency report
type Snapshot struct {
	SnapshotID int64
	RunID      string
	TakenAt    time.Time
	TotalWords int64
	Entries    []WordCount
}

// Page is a crawled URL within a run
type Page struct {
	PageID    int64
	RunID     string
	URL       string
	Status    int
	WordCount int
	CrawledAt time.Time
}

// Edge represents a directed link between two pages of the same run
type Edge struct {
	EdgeID     int64
	RunID      string
	FromPageID int64
	ToPageID   int64
	Weight     int
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	TasksScheduled    int64     `json:"tasks_scheduled"`
	TasksRejected     int64     `json:"tasks_rejected"`
	DuplicatesSkipped int64     `json:"duplicates_skipped"`
	PagesFetched      int64     `json:"pages_fetched"`
	PagesFailed       int64     `json:"pages_failed"`
	ExtractErrors     int64     `json:"extract_errors"`
	TaskPanics        int64     `json:"task_panics"`
	LinksDiscovered   int64     `json:"links_discovered"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
