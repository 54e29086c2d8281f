package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "crawler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStorage_RunLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStorage(t)

	runID, err := store.StartRun([]string{"http://a.test", "http://b.test"})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, run.Seeds)
	assert.True(t, run.FinishedAt.IsZero())

	err = store.FinishRun(runID, Metrics{
		EndTime:           time.Now(),
		PagesFetched:      10,
		PagesFailed:       2,
		TerminationReason: "quiescent",
	}, 1234)
	require.NoError(t, err)

	run, err = store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "quiescent", run.TerminationReason)
	assert.Equal(t, int64(10), run.PagesFetched)
	assert.Equal(t, int64(2), run.PagesFailed)
	assert.Equal(t, int64(1234), run.TotalWords)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestStorage_GetRunMissing(t *testing.T) {
	t.Parallel()

	run, err := newTestStorage(t).GetRun("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestStorage_FinishRunMissing(t *testing.T) {
	t.Parallel()

	err := newTestStorage(t).FinishRun("does-not-exist", Metrics{}, 0)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStorage_ListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStorage(t)
	first, err := store.StartRun([]string{"http://first.test"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.StartRun([]string{"http://second.test"})
	require.NoError(t, err)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].RunID)
	assert.Equal(t, first, runs[1].RunID)

	runs, err = store.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStorage_Snapshots(t *testing.T) {
	t.Parallel()

	store := newTestStorage(t)
	runID, err := store.StartRun([]string{"http://a.test"})
	require.NoError(t, err)

	latest, err := store.LatestSnapshot(runID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = store.SaveSnapshot(runID, Snapshot{TotalWords: 10, Entries: []WordCount{{Word: "old", Count: 5}}})
	require.NoError(t, err)

	id, err := store.SaveSnapshot(runID, Snapshot{
		TakenAt:    time.Now(),
		TotalWords: 500,
		Entries: []WordCount{
			{Word: "cat", Count: 100},
			{Word: "the", Count: 300},
		},
	})
	require.NoError(t, err)

	latest, err = store.LatestSnapshot(runID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, id, latest.SnapshotID)
	assert.Equal(t, int64(500), latest.TotalWords)
	assert.Equal(t, []WordCount{{Word: "cat", Count: 100}, {Word: "the", Count: 300}}, latest.Entries)
}

func TestStorage_SnapshotUnknownRun(t *testing.T) {
	t.Parallel()

	_, err := newTestStorage(t).SaveSnapshot("no-such-run", Snapshot{TotalWords: 1})
	assert.Error(t, err, "foreign keys are enforced")
}

func TestStorage_PagesAndEdges(t *testing.T) {
	t.Parallel()

	store := newTestStorage(t)
	runID, err := store.StartRun([]string{"http://a.test"})
	require.NoError(t, err)

	a, err := store.UpsertPage(runID, "http://a.test", 200, 42)
	require.NoError(t, err)
	b, err := store.UpsertPage(runID, "http://b.test", 0, 0)
	require.NoError(t, err)

	again, err := store.UpsertPage(runID, "http://b.test", 404, 0)
	require.NoError(t, err)
	assert.Equal(t, b, again)

	page, err := store.GetPage(runID, "http://b.test")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 404, page.Status)

	require.NoError(t, store.UpsertEdge(runID, a, b, 1))
	require.NoError(t, store.UpsertEdge(runID, a, b, 2))

	pages, edges, err := store.GetStats(runID)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Equal(t, 1, edges)

	missing, err := store.GetPage(runID, "http://nowhere.test")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
