// Package reporter periodically publishes word frequency snapshots to sinks.
package reporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mnty4/multi-threaded-webcrawler/internal/words"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultInitialDelay = 5 * time.Second
)

// Source provides snapshots. *words.Aggregator satisfies it.
type Source interface {
	Snapshot() words.Snapshot
}

// Sink receives each snapshot
type Sink interface {
	Emit(ctx context.Context, snap words.Snapshot) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, snap words.Snapshot) error

// Emit calls f
func (f SinkFunc) Emit(ctx context.Context, snap words.Snapshot) error {
	return f(ctx, snap)
}

// Reporter emits a snapshot after an initial delay and then on every
// interval until stopped. It only reads from its source.
type Reporter struct {
	source       Source
	sinks        []Sink
	interval     time.Duration
	initialDelay time.Duration
	logger       logrus.FieldLogger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Option configures a Reporter
type Option func(*Reporter)

// WithInterval sets the period between reports
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithInitialDelay sets the wait before the first report
func WithInitialDelay(d time.Duration) Option {
	return func(r *Reporter) {
		if d >= 0 {
			r.initialDelay = d
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// New creates a reporter for source
func New(source Source, sinks []Sink, opts ...Option) *Reporter {
	r := &Reporter{
		source:       source,
		sinks:        sinks,
		interval:     DefaultInterval,
		initialDelay: DefaultInitialDelay,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the reporting loop. Calling it more than once has no effect.
func (r *Reporter) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		r.cancel = cancel

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.loop(ctx)
		}()
	})
}

func (r *Reporter) loop(ctx context.Context) {
	timer := time.NewTimer(r.initialDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		r.Report(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Report(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the loop and waits for an in-progress report to finish
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
	})
	r.wg.Wait()
}

// Report takes one snapshot and hands it to every sink. Sink errors and
// panics are logged and never propagate.
func (r *Reporter) Report(ctx context.Context) {
	snap := r.source.Snapshot()
	for i, sink := range r.sinks {
		if err := r.emit(ctx, sink, snap); err != nil {
			r.logger.WithError(err).WithField("sink", i).Warn("Report sink failed")
		}
	}
}

func (r *Reporter) emit(ctx context.Context, sink Sink, snap words.Snapshot) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sink panicked: %v", p)
		}
	}()
	return sink.Emit(ctx, snap)
}
