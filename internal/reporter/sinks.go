package reporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/sirupsen/logrus"

	"github.com/mnty4/multi-threaded-webcrawler/internal/storage"
	"github.com/mnty4/multi-threaded-webcrawler/internal/words"
)

// LogSink writes one "<word> <count>" line per ranked word followed by the total
type LogSink struct {
	logger logrus.FieldLogger
}

// NewLogSink creates a sink logging at info level
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit logs the snapshot
func (s *LogSink) Emit(_ context.Context, snap words.Snapshot) error {
	for _, e := range snap.Entries {
		s.logger.Infof("%s %d", e.Word, e.Count)
	}
	s.logger.Infof("Total words seen: %d", snap.Total)
	return nil
}

// SnapshotStore persists snapshots
type SnapshotStore interface {
	SaveSnapshot(runID string, snap storage.Snapshot) (int64, error)
}

// StoreSink saves every snapshot under a run
type StoreSink struct {
	store SnapshotStore
	runID string
}

func NewStoreSink(store SnapshotStore, runID string) *StoreSink {
	return &StoreSink{store: store, runID: runID}
}

// Emit saves the snapshot
func (s *StoreSink) Emit(_ context.Context, snap words.Snapshot) error {
	entries := make([]storage.WordCount, len(snap.Entries))
	for i, e := range snap.Entries {
		entries[i] = storage.WordCount{Word: e.Word, Count: e.Count}
	}

	_, err := s.store.SaveSnapshot(s.runID, storage.Snapshot{
		RunID:      s.runID,
		TakenAt:    snap.TakenAt,
		TotalWords: snap.Total,
		Entries:    entries,
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// MarkdownSink rewrites a Markdown ranking file on every report
type MarkdownSink struct {
	path      string
	threshold int64
}

// NewMarkdownSink creates a sink writing to path. threshold is shown in the report header.
func NewMarkdownSink(path string, threshold int64) *MarkdownSink {
	return &MarkdownSink{path: path, threshold: threshold}
}

// Emit replaces the file with the latest ranking
func (s *MarkdownSink) Emit(_ context.Context, snap words.Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".report-*.md")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	if err := s.write(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace report file: %w", err)
	}
	return nil
}

func (s *MarkdownSink) write(f *os.File, snap words.Snapshot) error {
	md := markdown.NewMarkdown(f)

	md.H1("Word Frequency Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Taken At", snap.TakenAt.Format("2006-01-02 15:04:05 MST")},
			{"Total Words", strconv.FormatInt(snap.Total, 10)},
			{"Threshold", strconv.FormatInt(s.threshold, 10)},
			{"Ranked Words", strconv.Itoa(len(snap.Entries))},
		},
	})
	md.PlainText("")

	md.H2("Ranking")
	md.PlainText("")

	if len(snap.Entries) == 0 {
		md.PlainText("No word has reached the threshold yet.")
	} else {
		rows := make([][]string, len(snap.Entries))
		for i, e := range snap.Entries {
			rows[i] = []string{e.Word, strconv.FormatInt(e.Count, 10)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Word", "Count"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	if err := md.Build(); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	return nil
}
