package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seeds TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		termination_reason TEXT NOT NULL DEFAULT '',
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		total_words INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		snapshot_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		taken_at TIMESTAMP NOT NULL,
		total_words INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);

	CREATE TABLE IF NOT EXISTS snapshot_words (
		snapshot_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		word TEXT NOT NULL,
		occurrences INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, position),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(snapshot_id)
	);

	CREATE TABLE IF NOT EXISTS pages (
		page_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		word_count INTEGER NOT NULL DEFAULT 0,
		crawled_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(run_id),
		UNIQUE(run_id, url)
	);

	CREATE TABLE IF NOT EXISTS edges (
		edge_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		from_page_id INTEGER NOT NULL,
		to_page_id INTEGER NOT NULL,
		weight INTEGER DEFAULT 1,
		FOREIGN KEY (from_page_id) REFERENCES pages(page_id),
		FOREIGN KEY (to_page_id) REFERENCES pages(page_id),
		UNIQUE(from_page_id, to_page_id)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_page_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_page_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StartRun records a new run and returns its ID
func (s *Storage) StartRun(seeds []string) (string, error) {
	seedsJSON, err := json.Marshal(seeds)
	if err != nil {
		return "", fmt.Errorf("failed to encode seeds: %w", err)
	}

	runID := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO runs (run_id, seeds, started_at)
		VALUES (?, ?, ?)
	`, runID, string(seedsJSON), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}

	return runID, nil
}

// FinishRun stores the final counters of a run
func (s *Storage) FinishRun(runID string, m Metrics, totalWords int64) error {
	finishedAt := m.EndTime
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	res, err := s.db.Exec(`
		UPDATE runs SET
			finished_at = ?,
			termination_reason = ?,
			pages_fetched = ?,
			pages_failed = ?,
			total_words = ?
		WHERE run_id = ?
	`, finishedAt.UTC(), m.TerminationReason, m.PagesFetched, m.PagesFailed, totalWords, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun retrieves a run by ID, returns nil if not found
func (s *Storage) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, seeds, started_at, finished_at, termination_reason, pages_fetched, pages_failed, total_words
		FROM runs
		WHERE run_id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first
func (s *Storage) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, seeds, started_at, finished_at, termination_reason, pages_fetched, pages_failed, total_words
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		seedsJSON  string
		finishedAt sql.NullTime
	)
	err := row.Scan(&run.RunID, &seedsJSON, &run.StartedAt, &finishedAt,
		&run.TerminationReason, &run.PagesFetched, &run.PagesFailed, &run.TotalWords)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(seedsJSON), &run.Seeds); err != nil {
		return nil, fmt.Errorf("failed to decode seeds: %w", err)
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}

// SaveSnapshot persists a word frequency snapshot and its ranked entries
func (s *Storage) SaveSnapshot(runID string, snap Snapshot) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	res, err := tx.Exec(`
		INSERT INTO snapshots (run_id, taken_at, total_words)
		VALUES (?, ?, ?)
	`, runID, takenAt.UTC(), snap.TotalWords)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	snapshotID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve snapshot_id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO snapshot_words (snapshot_id, position, word, occurrences) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare snapshot words: %w", err)
	}
	defer stmt.Close()

	for i, entry := range snap.Entries {
		if _, err := stmt.Exec(snapshotID, i+1, entry.Word, entry.Count); err != nil {
			return 0, fmt.Errorf("failed to insert snapshot word %q: %w", entry.Word, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return snapshotID, nil
}

// LatestSnapshot returns the newest snapshot of a run, or nil if none exists
func (s *Storage) LatestSnapshot(runID string) (*Snapshot, error) {
	snap := Snapshot{RunID: runID}
	err := s.db.QueryRow(`
		SELECT snapshot_id, taken_at, total_words
		FROM snapshots
		WHERE run_id = ?
		ORDER BY snapshot_id DESC
		LIMIT 1
	`, runID).Scan(&snap.SnapshotID, &snap.TakenAt, &snap.TotalWords)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT word, occurrences
		FROM snapshot_words
		WHERE snapshot_id = ?
		ORDER BY position ASC
	`, snap.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot words: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wc WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot word: %w", err)
		}
		snap.Entries = append(snap.Entries, wc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot words: %w", err)
	}

	return &snap, nil
}

// UpsertPage inserts a page or updates its status if the run already has it
// Returns the page_id of the inserted/existing page
func (s *Storage) UpsertPage(runID, url string, status, wordCount int) (int64, error) {
	_, err := s.db.Exec(`
		INSERT INTO pages (run_id, url, status, word_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, url) DO UPDATE SET
			status = CASE WHEN EXCLUDED.status > 0 THEN EXCLUDED.status ELSE pages.status END,
			word_count = MAX(pages.word_count, EXCLUDED.word_count)
	`, runID, url, status, wordCount)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert page: %w", err)
	}

	// Get the page_id
	var pageID int64
	err = s.db.QueryRow("SELECT page_id FROM pages WHERE run_id = ? AND url = ?", runID, url).Scan(&pageID)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve page_id: %w", err)
	}

	return pageID, nil
}

// GetPage retrieves a page by URL within a run, returns nil if not found
func (s *Storage) GetPage(runID, url string) (*Page, error) {
	var page Page
	err := s.db.QueryRow(`
		SELECT page_id, run_id, url, status, word_count, crawled_at
		FROM pages
		WHERE run_id = ? AND url = ?
	`, runID, url).Scan(&page.PageID, &page.RunID, &page.URL, &page.Status, &page.WordCount, &page.CrawledAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	return &page, nil
}

// UpsertEdge inserts a new edge or adds weight if it exists
func (s *Storage) UpsertEdge(runID string, fromID, toID int64, weight int) error {
	_, err := s.db.Exec(`
		INSERT INTO edges (run_id, from_page_id, to_page_id, weight)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(from_page_id, to_page_id) DO UPDATE SET
			weight = weight + EXCLUDED.weight
	`, runID, fromID, toID, weight)

	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// GetStats returns the number of pages and edges stored for a run
func (s *Storage) GetStats(runID string) (pages, edges int, err error) {
	if err := s.db.QueryRow("SELECT COUNT(*) FROM pages WHERE run_id = ?", runID).Scan(&pages); err != nil {
		return 0, 0, fmt.Errorf("failed to count pages: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM edges WHERE run_id = ?", runID).Scan(&edges); err != nil {
		return 0, 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return pages, edges, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
