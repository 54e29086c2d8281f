package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mnty4/multi-threaded-webcrawler/internal/config"
	"github.com/mnty4/multi-threaded-webcrawler/internal/crawler"
	"github.com/mnty4/multi-threaded-webcrawler/internal/fetch"
	"github.com/mnty4/multi-threaded-webcrawler/internal/memory"
	"github.com/mnty4/multi-threaded-webcrawler/internal/metrics"
	"github.com/mnty4/multi-threaded-webcrawler/internal/reporter"
	"github.com/mnty4/multi-threaded-webcrawler/internal/storage"
	"github.com/mnty4/multi-threaded-webcrawler/internal/version"
	"github.com/mnty4/multi-threaded-webcrawler/internal/words"
)

const progressInterval = 10 * time.Second

// Termination reasons written to the metrics file and the runs table
const (
	reasonQuiescent       = "quiescent"
	reasonSignal          = "signal"
	reasonShutdownTimeout = "shutdown_timeout"
	reasonForcedExit      = "forced_exit"
)

func addCrawlFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntP("workers", "w", 0, "Number of concurrent workers")
	f.Int("queue-size", 0, "Maximum number of queued tasks before submissions are rejected")
	f.Int64P("threshold", "t", 0, "Minimum count for a word to be reported")
	f.Duration("interval", 0, "Time between word frequency reports")
	f.Duration("initial-delay", 0, "Time before the first report")
	f.Duration("grace", 0, "How long to wait for workers after the crawl quiesces")
	f.Duration("connect-timeout", 0, "Connect timeout per request")
	f.Duration("read-timeout", 0, "Read timeout per request")
	f.String("user-agent", "", "User-Agent header sent with every request")
	f.StringSlice("exclude", nil, "Regular expression of hosts not to follow (repeatable)")
	f.String("markdown", "", "Rewrite a Markdown ranking file on every report")
	f.String("metrics", "", "Path of the JSON metrics file written on exit")
	f.Bool("no-store", false, "Do not record the run in SQLite")
}

// loadConfig resolves the config file, applies flag overrides and validates.
// Seeds from the command line replace the configured ones.
func loadConfig(cmd *cobra.Command, seeds []string) (*config.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	path := config.FindConfigFile(explicit)
	if explicit != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicit)
	}

	cfg := config.NewConfig()
	if path != "" {
		loaded, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(seeds) > 0 {
		cfg.SeedURLs = seeds
	}

	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	ms := func(d time.Duration) int { return int(d / time.Millisecond) }

	if f.Changed("workers") {
		cfg.ConcurrentWorkers, _ = f.GetInt("workers")
	}
	if f.Changed("queue-size") {
		cfg.QueueSize, _ = f.GetInt("queue-size")
	}
	if f.Changed("threshold") {
		cfg.ReportThreshold, _ = f.GetInt64("threshold")
	}
	if f.Changed("interval") {
		d, _ := f.GetDuration("interval")
		cfg.ReportIntervalMs = ms(d)
	}
	if f.Changed("initial-delay") {
		d, _ := f.GetDuration("initial-delay")
		cfg.ReportInitialDelayMs = ms(d)
	}
	if f.Changed("grace") {
		d, _ := f.GetDuration("grace")
		cfg.ShutdownGraceMs = ms(d)
	}
	if f.Changed("connect-timeout") {
		d, _ := f.GetDuration("connect-timeout")
		cfg.ConnectTimeoutMs = ms(d)
	}
	if f.Changed("read-timeout") {
		d, _ := f.GetDuration("read-timeout")
		cfg.ReadTimeoutMs = ms(d)
	}
	if f.Changed("user-agent") {
		cfg.UserAgent, _ = f.GetString("user-agent")
	}
	if f.Changed("exclude") {
		patterns, _ := f.GetStringSlice("exclude")
		cfg.ExcludePatterns = append(cfg.ExcludePatterns, patterns...)
	}
	if f.Changed("markdown") {
		cfg.ReportMarkdownPath, _ = f.GetString("markdown")
	}
	if f.Changed("metrics") {
		cfg.MetricsPath, _ = f.GetString("metrics")
	}
	if f.Changed("no-store") {
		cfg.DisableStorage, _ = f.GetBool("no-store")
	}
	if f.Changed("db") {
		cfg.DBPath, _ = f.GetString("db")
	}
	if verbose, _ := f.GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	logger.Infof("Crawler %s starting...", version.String())
	logger.Infof("Configuration loaded: seeds=%s, workers=%d, queue=%d, threshold=%d",
		strings.Join(cfg.SeedURLs, ","), cfg.ConcurrentWorkers, cfg.QueueSize, cfg.ReportThreshold)

	// Initialize storage
	var (
		store *storage.Storage
		graph *memory.MemoryGraph
		runID string
	)
	if !cfg.DisableStorage {
		store, err = storage.NewStorage(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		runID, err = store.StartRun(cfg.SeedURLs)
		if err != nil {
			return err
		}
		graph = memory.NewMemoryGraph(logger)
		logger.WithField("run", runID).Infof("Database initialized: %s", cfg.DBPath)
	}

	tracker := metrics.NewTracker()
	agg := words.NewAggregator(cfg.ReportThreshold)

	fetcher := fetch.NewCollyFetcher(fetch.FetcherOptions{
		UserAgent:      cfg.UserAgent,
		ConnectTimeout: cfg.ConnectTimeout(),
		ReadTimeout:    cfg.ReadTimeout(),
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	opts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithMetrics(tracker),
	}
	if graph != nil {
		opts = append(opts, crawler.WithGraph(graph))
	}

	c, err := crawler.NewCrawler(cfg, fetcher, fetch.NewHTMLExtractor(), agg, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}

	sinks := []reporter.Sink{reporter.NewLogSink(logger)}
	if store != nil {
		sinks = append(sinks, reporter.NewStoreSink(store, runID))
	}
	if cfg.ReportMarkdownPath != "" {
		sinks = append(sinks, reporter.NewMarkdownSink(cfg.ReportMarkdownPath, cfg.ReportThreshold))
	}
	rep := reporter.New(agg, sinks,
		reporter.WithInterval(cfg.ReportInterval()),
		reporter.WithInitialDelay(cfg.ReportInitialDelay()),
		reporter.WithLogger(logger),
	)

	flush := func() error {
		if graph == nil {
			return nil
		}
		return graph.Flush(store, runID)
	}

	// The first signal cancels outstanding fetches so the crawl drains quickly.
	// The second one forces an exit after an emergency save.
	crawlCtx, cancelCrawl := context.WithCancel(cmd.Context())
	defer cancelCrawl()

	var (
		reasonMu sync.Mutex
		reason   = reasonQuiescent
	)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	crawlDone := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			logger.Warnf("Received signal (%v) - cancelling outstanding fetches, press again to force exit", sig)
			reasonMu.Lock()
			reason = reasonSignal
			reasonMu.Unlock()
			cancelCrawl()
		case <-crawlDone:
			return
		}

		select {
		case sig := <-sigChan:
			logger.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
			logger.Warn("Attempting emergency save...")
			if err := flush(); err != nil {
				logger.Errorf("Emergency graph flush failed: %v", err)
			}
			if err := tracker.WriteToFile(cfg.MetricsPath, reasonForcedExit); err != nil {
				logger.Errorf("Emergency metrics save failed: %v", err)
			}
			os.Exit(1)
		case <-crawlDone:
		}
	}()

	// Start progress logger
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logger.Info(tracker.LogProgress())
			case <-crawlDone:
				return
			}
		}
	}()

	rep.Start(cmd.Context())

	summary, crawlErr := c.Crawl(crawlCtx, cfg.SeedURLs)
	close(crawlDone)
	wg.Wait()

	logger.Info("Step 1/4: Stopping reporter and emitting final report...")
	rep.Stop()
	if crawlErr == nil {
		rep.Report(context.Background())
	}

	reasonMu.Lock()
	finalReason := reason
	reasonMu.Unlock()
	if summary.Abandoned {
		finalReason = reasonShutdownTimeout
	}

	logger.Info("Step 2/4: Flushing in-memory graph to database...")
	if err := flush(); err != nil {
		logger.Errorf("Failed to flush memory graph: %v", err)
	}

	logger.Info("Step 3/4: Writing final metrics...")
	logger.Info("Final stats: " + tracker.LogProgress())
	if err := tracker.WriteToFile(cfg.MetricsPath, finalReason); err != nil {
		logger.Errorf("Failed to write metrics: %v", err)
	} else {
		logger.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	logger.Info("Step 4/4: Recording run and closing database...")
	if store != nil {
		if err := store.FinishRun(runID, tracker.GetSnapshot(), agg.Total()); err != nil {
			logger.Errorf("Failed to record run: %v", err)
		}
	}

	if crawlErr != nil {
		if errors.Is(crawlErr, crawler.ErrAlreadyCrawled) {
			return crawlErr
		}
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}

	logger.WithFields(logrus.Fields{
		"visited":  summary.Visited,
		"fetched":  summary.Fetched,
		"failed":   summary.Failed,
		"rejected": summary.Rejected,
		"words":    summary.TotalWords,
		"duration": summary.Duration.Round(time.Millisecond),
		"reason":   finalReason,
	}).Info("Crawl complete. Goodbye!")

	fmt.Fprintf(cmd.OutOrStdout(), "Visited %d pages (%d fetched, %d failed), %d words seen\n",
		summary.Visited, summary.Fetched, summary.Failed, summary.TotalWords)
	return nil
}
