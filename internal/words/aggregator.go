// Package words keeps live word frequency counts shared by all crawl workers.
package words

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultThreshold is the minimum count for a word to appear in a Snapshot.
const DefaultThreshold = 100

// Entry is one word and its count at snapshot time
type Entry struct {
	Word  string
	Count int64
}

// Snapshot is a point-in-time view of the counters. Each count was read
// atomically but the snapshot as a whole is not a single atomic cut.
type Snapshot struct {
	Entries []Entry
	Total   int64
	TakenAt time.Time
}

// Aggregator counts word occurrences. Add never takes a lock once a word
// has been seen, and readers never block writers.
type Aggregator struct {
	counts    sync.Map // string -> *atomic.Int64
	total     atomic.Int64
	threshold int64
}

// NewAggregator creates an aggregator whose snapshots keep words with at
// least threshold occurrences. A threshold below 1 uses DefaultThreshold.
func NewAggregator(threshold int64) *Aggregator {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Aggregator{threshold: threshold}
}

// Add records one occurrence of word. Empty words are ignored.
func (a *Aggregator) Add(word string) {
	if word == "" {
		return
	}

	counter, ok := a.counts.Load(word)
	if !ok {
		counter, _ = a.counts.LoadOrStore(word, new(atomic.Int64))
	}
	counter.(*atomic.Int64).Add(1)
	a.total.Add(1)
}

// Count returns the current count for word
func (a *Aggregator) Count(word string) int64 {
	counter, ok := a.counts.Load(word)
	if !ok {
		return 0
	}
	return counter.(*atomic.Int64).Load()
}

// Total returns the number of words added so far
func (a *Aggregator) Total() int64 {
	return a.total.Load()
}

// Threshold returns the snapshot cut-off
func (a *Aggregator) Threshold() int64 {
	return a.threshold
}

// Counts returns a copy of every counter
func (a *Aggregator) Counts() map[string]int64 {
	out := make(map[string]int64)
	a.counts.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}

// Distinct returns the number of different words seen
func (a *Aggregator) Distinct() int {
	n := 0
	a.counts.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Snapshot returns the words at or above the threshold in ascending order
// of count, ties broken alphabetically, together with the grand total.
func (a *Aggregator) Snapshot() Snapshot {
	var entries []Entry
	a.counts.Range(func(key, value any) bool {
		if n := value.(*atomic.Int64).Load(); n >= a.threshold {
			entries = append(entries, Entry{Word: key.(string), Count: n})
		}
		return true
	})

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count < entries[j].Count
		}
		return entries[i].Word < entries[j].Word
	})

	return Snapshot{
		Entries: entries,
		Total:   a.total.Load(),
		TakenAt: time.Now(),
	}
}
