package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnty4/multi-threaded-webcrawler/internal/storage"
)

func TestTracker_Counters(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.IncrementTasksScheduled()
	tr.IncrementTasksScheduled()
	tr.IncrementTasksRejected()
	tr.IncrementDuplicatesSkipped()
	tr.IncrementPagesFetched()
	tr.IncrementPagesFailed()
	tr.IncrementExtractErrors()
	tr.IncrementTaskPanics()
	tr.AddLinksDiscovered(7)
	tr.RecordFetchTime(10 * time.Millisecond)
	tr.RecordFetchTime(30 * time.Millisecond)

	snap := tr.GetSnapshot()
	assert.Equal(t, int64(2), snap.TasksScheduled)
	assert.Equal(t, int64(1), snap.TasksRejected)
	assert.Equal(t, int64(1), snap.DuplicatesSkipped)
	assert.Equal(t, int64(1), snap.PagesFetched)
	assert.Equal(t, int64(1), snap.PagesFailed)
	assert.Equal(t, int64(1), snap.ExtractErrors)
	assert.Equal(t, int64(1), snap.TaskPanics)
	assert.Equal(t, int64(7), snap.LinksDiscovered)
	assert.Equal(t, int64(40), snap.TotalFetchTimeMs)
	assert.Equal(t, int64(20), snap.AvgFetchTimeMs)
	assert.True(t, snap.EndTime.IsZero())
}

func TestTracker_ConcurrentIncrements(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.IncrementPagesFetched()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(2000), tr.GetSnapshot().PagesFetched)
}

func TestTracker_WriteToFile(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.IncrementPagesFetched()
	path := filepath.Join(t.TempDir(), "metrics.json")

	require.NoError(t, tr.WriteToFile(path, "quiescent"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got storage.Metrics
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "quiescent", got.TerminationReason)
	assert.Equal(t, int64(1), got.PagesFetched)
	assert.False(t, got.EndTime.IsZero())
}

func TestTracker_WriteToFileBadPath(t *testing.T) {
	t.Parallel()

	err := NewTracker().WriteToFile(filepath.Join(t.TempDir(), "missing", "m.json"), "signal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write metrics file")
}

func TestTracker_LogProgress(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.IncrementPagesFetched()
	tr.AddLinksDiscovered(3)

	line := tr.LogProgress()
	assert.Contains(t, line, "1 fetched")
	assert.Contains(t, line, "Links: 3")
}
