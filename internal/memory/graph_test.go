package memory

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnty4/multi-threaded-webcrawler/internal/storage"
)

func newTestGraph() *MemoryGraph {
	logger, _ := test.NewNullLogger()
	return NewMemoryGraph(logger)
}

func TestMemoryGraph_RecordPageAndLink(t *testing.T) {
	t.Parallel()

	g := newTestGraph()
	g.RecordPage("http://a.test", 200, 12)
	g.RecordLink("http://a.test", "http://b.test")
	g.RecordLink("http://a.test", "http://b.test")

	pages, edges := g.GetStats()
	assert.Equal(t, 2, pages)
	assert.Equal(t, 1, edges)
	assert.Equal(t, 2, g.EdgeWeight("http://a.test", "http://b.test"))

	a := g.GetPage("http://a.test")
	require.NotNil(t, a)
	assert.Equal(t, 200, a.Status)
	assert.Equal(t, 12, a.WordCount)

	b := g.GetPage("http://b.test")
	require.NotNil(t, b)
	assert.Equal(t, 0, b.Status, "link targets start unfetched")

	assert.Nil(t, g.GetPage("http://c.test"))
}

func TestMemoryGraph_ConcurrentRecording(t *testing.T) {
	t.Parallel()

	g := newTestGraph()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.RecordLink("http://hub.test", "http://leaf.test")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, g.EdgeWeight("http://hub.test", "http://leaf.test"))
}

func TestMemoryGraph_FlushToSQLite(t *testing.T) {
	t.Parallel()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer store.Close()

	runID, err := store.StartRun([]string{"http://a.test"})
	require.NoError(t, err)

	g := newTestGraph()
	g.RecordPage("http://a.test", 200, 3)
	g.RecordLink("http://a.test", "http://b.test")
	g.RecordLink("http://a.test", "http://c.test")
	g.RecordPage("http://b.test", 500, 0)

	require.NoError(t, g.Flush(store, runID))

	pages, edges, err := store.GetStats(runID)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Equal(t, 2, edges)

	b, err := store.GetPage(runID, "http://b.test")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 500, b.Status)
}

type failingStore struct {
	failURL string
	edges   int
}

func (f *failingStore) UpsertPage(_, url string, _, _ int) (int64, error) {
	if url == f.failURL {
		return 0, errors.New("disk full")
	}
	return int64(len(url)), nil
}

func (f *failingStore) UpsertEdge(string, int64, int64, int) error {
	f.edges++
	return nil
}

func TestMemoryGraph_FlushContinuesAfterError(t *testing.T) {
	t.Parallel()

	g := newTestGraph()
	g.RecordLink("http://a.test", "http://bad.test")
	g.RecordLink("http://a.test", "http://good.test")

	store := &failingStore{failURL: "http://bad.test"}
	err := g.Flush(store, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, store.edges, "edge to the unflushed page is skipped")
}
