package reporter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnty4/multi-threaded-webcrawler/internal/words"
)

type countingSink struct {
	mu    sync.Mutex
	snaps []words.Snapshot
}

func (s *countingSink) Emit(_ context.Context, snap words.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func TestReporter_ReportFansOutToSinks(t *testing.T) {
	t.Parallel()

	agg := words.NewAggregator(1)
	agg.Add("hello")

	a, b := &countingSink{}, &countingSink{}
	r := New(agg, []Sink{a, b})
	r.Report(context.Background())

	require.Equal(t, 1, a.count())
	require.Equal(t, 1, b.count())
	assert.Equal(t, int64(1), a.snaps[0].Total)
	assert.Equal(t, []words.Entry{{Word: "hello", Count: 1}}, a.snaps[0].Entries)
}

func TestReporter_SinkFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	agg := words.NewAggregator(1)
	after := &countingSink{}

	r := New(agg, []Sink{
		SinkFunc(func(context.Context, words.Snapshot) error { return errors.New("disk full") }),
		SinkFunc(func(context.Context, words.Snapshot) error { panic("sink exploded") }),
		after,
	}, WithLogger(logger))

	assert.NotPanics(t, func() { r.Report(context.Background()) })
	assert.Equal(t, 1, after.count(), "later sinks still run")

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestReporter_PeriodicLoop(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	r := New(words.NewAggregator(1), []Sink{sink},
		WithInitialDelay(5*time.Millisecond),
		WithInterval(10*time.Millisecond),
	)

	r.Start(context.Background())
	r.Start(context.Background())
	assert.Eventually(t, func() bool { return sink.count() >= 3 }, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	stopped := sink.count()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, sink.count(), "no reports after Stop")
}

func TestReporter_InitialDelay(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	r := New(words.NewAggregator(1), []Sink{sink}, WithInitialDelay(time.Hour))
	r.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	assert.Equal(t, 0, sink.count())
}

func TestReporter_StopWithoutStart(t *testing.T) {
	t.Parallel()

	r := New(words.NewAggregator(1), nil)
	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without Start")
	}
}

func TestReporter_ContextCancelStopsLoop(t *testing.T) {
	t.Parallel()

	var reports atomic.Int64
	sink := SinkFunc(func(context.Context, words.Snapshot) error {
		reports.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	r := New(words.NewAggregator(1), []Sink{sink}, WithInitialDelay(0), WithInterval(5*time.Millisecond))
	r.Start(ctx)
	assert.Eventually(t, func() bool { return reports.Load() > 0 }, time.Second, time.Millisecond)

	cancel()
	r.Stop()
	n := reports.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, reports.Load())
}

func TestReporter_DoesNotMutateSource(t *testing.T) {
	t.Parallel()

	agg := words.NewAggregator(1)
	agg.Add("a")
	agg.Add("b")

	r := New(agg, []Sink{&countingSink{}})
	for i := 0; i < 3; i++ {
		r.Report(context.Background())
	}

	assert.Equal(t, map[string]int64{"a": 1, "b": 1}, agg.Counts())
	assert.Equal(t, int64(2), agg.Total())
}
