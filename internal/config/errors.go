package config

import "errors"

// Configuration errors returned by LoadConfigFile and Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrNoSeeds is returned when neither the config file nor the command line provides a seed URL.
	ErrNoSeeds = errors.New("no seed URLs specified")

	// ErrInvalidWorkers is returned when concurrent_workers is below one.
	ErrInvalidWorkers = errors.New("invalid concurrent_workers: must be at least 1")

	ErrInvalidQueueSize = errors.New("invalid queue_size: must be at least 1")

	// ErrInvalidTimeout is returned when a connect or read timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	ErrInvalidShutdownGrace = errors.New("invalid shutdown_grace_ms: must be non-negative")

	// ErrInvalidReportInterval covers both the period and the initial delay.
	ErrInvalidReportInterval = errors.New("invalid report interval: period must be positive and delay non-negative")

	ErrInvalidReportThreshold = errors.New("invalid report_threshold: must be at least 1")

	// ErrInvalidExcludePattern is returned when an exclude pattern is not a valid regular expression.
	ErrInvalidExcludePattern = errors.New("invalid exclude pattern")
)
