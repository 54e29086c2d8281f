package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mnty4/multi-threaded-webcrawler/internal/config"
	"github.com/mnty4/multi-threaded-webcrawler/internal/fetch"
	"github.com/mnty4/multi-threaded-webcrawler/internal/metrics"
	"github.com/mnty4/multi-threaded-webcrawler/internal/pool"
	"github.com/mnty4/multi-threaded-webcrawler/internal/words"
)

// GraphRecorder receives the pages and links seen during a crawl
type GraphRecorder interface {
	RecordPage(url string, status, wordCount int)
	RecordLink(from, to string)
}

// scheduler is the part of pool.Pool the crawler drives
type scheduler interface {
	Start(ctx context.Context) error
	Submit(task pool.Task) error
	Shutdown(grace time.Duration) error
}

// Summary describes a finished crawl
type Summary struct {
	Seeds      int
	Visited    int
	Fetched    int64
	Failed     int64
	Skipped    int64
	Rejected   int64
	Links      int64
	TotalWords int64
	Distinct   int
	Duration   time.Duration
	// Abandoned is set when the pool had to be force-stopped after the grace period
	Abandoned bool
}

// Crawler orchestrates the web crawling process
type Crawler struct {
	cfg       *config.Config
	fetcher   fetch.Fetcher
	extractor fetch.Extractor
	words     *words.Aggregator
	filter    *Filter
	visited   *VisitedSet
	tracker   *QuiescenceTracker
	metrics   *metrics.Tracker
	graph     GraphRecorder
	logger    logrus.FieldLogger
	sched     scheduler
	used      atomic.Bool
}

// Option configures optional Crawler collaborators
type Option func(*Crawler)

// WithLogger sets the logger used for crawl events
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithMetrics shares a metrics tracker with the caller
func WithMetrics(tracker *metrics.Tracker) Option {
	return func(c *Crawler) {
		c.metrics = tracker
	}
}

// WithGraph records every crawled page and followed link
func WithGraph(graph GraphRecorder) Option {
	return func(c *Crawler) {
		c.graph = graph
	}
}

func withScheduler(s scheduler) Option {
	return func(c *Crawler) {
		c.sched = s
	}
}

// NewCrawler creates a new crawler instance. A Crawler runs a single crawl.
func NewCrawler(cfg *config.Config, fetcher fetch.Fetcher, extractor fetch.Extractor, agg *words.Aggregator, opts ...Option) (*Crawler, error) {
	if cfg == nil || fetcher == nil || extractor == nil || agg == nil {
		return nil, ErrMissingDependency
	}

	filter, err := NewFilter(cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	c := &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		words:     agg,
		filter:    filter,
		visited:   NewVisitedSet(),
		tracker:   NewQuiescenceTracker(),
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewTracker()
	}
	return c, nil
}

// Crawl fetches the seeds and everything reachable from them, blocking
// until no task is pending, running or about to be submitted, and the
// worker pool has shut down. ctx only reaches the fetcher: cancelling it
// makes outstanding fetches fail fast while the crawl drains normally.
func (c *Crawler) Crawl(ctx context.Context, seeds []string) (Summary, error) {
	if !c.used.CompareAndSwap(false, true) {
		return Summary{}, ErrAlreadyCrawled
	}
	start := time.Now()

	if c.sched == nil {
		p, err := pool.New(c.cfg.ConcurrentWorkers, c.cfg.QueueSize, c.logger)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to create worker pool: %w", err)
		}
		c.sched = p
	}
	if err := c.sched.Start(ctx); err != nil {
		return Summary{}, fmt.Errorf("failed to start worker pool: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"seeds":   len(seeds),
		"workers": c.cfg.ConcurrentWorkers,
	}).Info("Starting crawl")

	// Held until every seed is registered so the count cannot touch zero early
	c.tracker.Register()
	accepted := 0
	for _, seed := range seeds {
		normalized, ok := NormalizeLink(seed)
		if !ok {
			c.logger.WithField("url", seed).Warn("Skipping invalid seed URL")
			continue
		}
		accepted++
		c.submit(normalized)
	}
	c.tracker.Arrive()

	c.tracker.Wait()
	c.logger.WithField("visited", c.visited.Len()).Info("Crawl quiesced, shutting down workers")

	summary := Summary{Seeds: accepted}
	if err := c.sched.Shutdown(c.cfg.ShutdownGrace()); err != nil {
		summary.Abandoned = errors.Is(err, pool.ErrShutdownTimeout)
		c.logger.WithError(err).Warn("Worker pool shutdown incomplete")
	}

	snap := c.metrics.GetSnapshot()
	summary.Visited = c.visited.Len()
	summary.Fetched = snap.PagesFetched
	summary.Failed = snap.PagesFailed
	summary.Skipped = snap.DuplicatesSkipped
	summary.Rejected = snap.TasksRejected
	summary.Links = snap.LinksDiscovered
	summary.TotalWords = c.words.Total()
	summary.Distinct = c.words.Distinct()
	summary.Duration = time.Since(start)

	return summary, nil
}

// submit registers a task for url and hands it to the pool.
// A rejected task is completed on the spot and never retried.
func (c *Crawler) submit(url string) {
	c.tracker.Register()

	err := c.sched.Submit(func(ctx context.Context) {
		c.handle(ctx, url)
	})
	if err != nil {
		c.tracker.Arrive()
		c.metrics.IncrementTasksRejected()
		c.logger.WithFields(logrus.Fields{
			"url":    url,
			"reason": err,
		}).Debug("Task rejected by worker pool")
		return
	}
	c.metrics.IncrementTasksScheduled()
}

// handle crawls one URL. Every exit path completes the task's registration.
func (c *Crawler) handle(ctx context.Context, url string) {
	defer c.tracker.Arrive()
	defer func() {
		if r := recover(); r != nil {
			c.metrics.IncrementTaskPanics()
			c.logger.WithFields(logrus.Fields{
				"url":   url,
				"panic": r,
			}).Error("Crawl task panicked")
		}
	}()

	if !c.visited.Claim(url) {
		c.metrics.IncrementDuplicatesSkipped()
		return
	}

	log := c.logger.WithField("url", url)
	log.Info("Crawling")

	begin := time.Now()
	body, status, err := c.fetcher.Fetch(ctx, url)
	c.metrics.RecordFetchTime(time.Since(begin))

	if err == nil && (status < 200 || status > 299) {
		err = fmt.Errorf("%w: %d", fetch.ErrBadStatus, status)
	}
	if err != nil {
		c.metrics.IncrementPagesFailed()
		log.WithFields(logrus.Fields{
			"status": status,
			"error":  err,
		}).Warn("Fetch failed")
		if c.graph != nil {
			c.graph.RecordPage(url, status, 0)
		}
		return
	}
	c.metrics.IncrementPagesFetched()

	links, pageWords, err := c.extractor.Extract(body, url)
	if err != nil {
		c.metrics.IncrementExtractErrors()
		log.WithError(err).Warn("Extraction failed")
		links, pageWords = nil, nil
	}

	for _, w := range pageWords {
		c.words.Add(w)
	}

	next := c.filter.FilterLinks(links)
	c.metrics.AddLinksDiscovered(len(next))

	if c.graph != nil {
		c.graph.RecordPage(url, status, len(pageWords))
		for _, link := range next {
			c.graph.RecordLink(url, link)
		}
	}

	log.WithFields(logrus.Fields{
		"status": status,
		"links":  len(next),
		"words":  len(pageWords),
	}).Debug("Page crawled")

	for _, link := range next {
		c.submit(link)
	}
}

// Visited returns the set of URLs claimed so far
func (c *Crawler) Visited() *VisitedSet {
	return c.visited
}

// Outstanding returns the number of tasks not yet completed
func (c *Crawler) Outstanding() int64 {
	return c.tracker.Outstanding()
}

// Metrics returns the tracker receiving crawl counters
func (c *Crawler) Metrics() *metrics.Tracker {
	return c.metrics
}
