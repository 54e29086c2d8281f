package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName is used for the XDG configuration directory.
const AppName = "multi-threaded-webcrawler"

// Default values for unspecified fields
const (
	DefaultConcurrentWorkers    = 8
	DefaultQueueSize            = 100000
	DefaultConnectTimeoutMs     = 5000
	DefaultReadTimeoutMs        = 5000
	DefaultShutdownGraceMs      = 60000
	DefaultReportIntervalMs     = 30000
	DefaultReportInitialDelayMs = 5000
	DefaultReportThreshold      = 100
	DefaultUserAgent            = "SimpleCrawler/1.0"
	DefaultMaxBodyBytes         = 10 * 1024 * 1024
	DefaultDBPath               = "crawler.db"
	DefaultMetricsPath          = "metrics.json"
	DefaultLogLevel             = "info"
)

// Config holds all runtime configuration parameters
type Config struct {
	SeedURLs             []string `json:"seed_urls" yaml:"seed_urls"`
	ConcurrentWorkers    int      `json:"concurrent_workers" yaml:"concurrent_workers"`
	QueueSize            int      `json:"queue_size" yaml:"queue_size"`
	ConnectTimeoutMs     int      `json:"connect_timeout_ms" yaml:"connect_timeout_ms"`
	ReadTimeoutMs        int      `json:"read_timeout_ms" yaml:"read_timeout_ms"`
	ShutdownGraceMs      int      `json:"shutdown_grace_ms" yaml:"shutdown_grace_ms"`
	ReportIntervalMs     int      `json:"report_interval_ms" yaml:"report_interval_ms"`
	ReportInitialDelayMs int      `json:"report_initial_delay_ms" yaml:"report_initial_delay_ms"`
	ReportThreshold      int64    `json:"report_threshold" yaml:"report_threshold"`
	UserAgent            string   `json:"user_agent" yaml:"user_agent"`
	MaxBodyBytes         int      `json:"max_body_bytes" yaml:"max_body_bytes"`
	ExcludePatterns      []string `json:"exclude_patterns" yaml:"exclude_patterns"`
	DBPath               string   `json:"db_path" yaml:"db_path"`
	DisableStorage       bool     `json:"disable_storage" yaml:"disable_storage"`
	MetricsPath          string   `json:"metrics_path" yaml:"metrics_path"`
	ReportMarkdownPath   string   `json:"report_markdown_path" yaml:"report_markdown_path"`
	LogLevel             string   `json:"log_level" yaml:"log_level"`
}

// NewConfig returns a Config populated with defaults and no seeds.
func NewConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfigFile reads a JSON or YAML config file and applies defaults
// without validating. The format is picked from the file extension; anything
// that is not .yaml or .yml is decoded as JSON. Callers merge command line
// flags on top and call Validate afterwards.
func LoadConfigFile(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return &cfg, nil
}

// FindConfigFile returns the first existing config file, searching in order:
// the explicit path, crawler.yaml/crawler.yml/crawler.json in the working
// directory, then the same names under the XDG config directory.
// It returns an empty string when nothing is found.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	names := []string{"crawler.yaml", "crawler.yml", "crawler.json"}
	dirs := []string{"."}
	dirs = append(dirs, XDGConfigDir())

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// XDGConfigDir returns the per-user configuration directory.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.ConcurrentWorkers == 0 {
		cfg.ConcurrentWorkers = DefaultConcurrentWorkers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.ConnectTimeoutMs == 0 {
		cfg.ConnectTimeoutMs = DefaultConnectTimeoutMs
	}
	if cfg.ReadTimeoutMs == 0 {
		cfg.ReadTimeoutMs = DefaultReadTimeoutMs
	}
	if cfg.ShutdownGraceMs == 0 {
		cfg.ShutdownGraceMs = DefaultShutdownGraceMs
	}
	if cfg.ReportIntervalMs == 0 {
		cfg.ReportIntervalMs = DefaultReportIntervalMs
	}
	if cfg.ReportInitialDelayMs == 0 {
		cfg.ReportInitialDelayMs = DefaultReportInitialDelayMs
	}
	if cfg.ReportThreshold == 0 {
		cfg.ReportThreshold = DefaultReportThreshold
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultMetricsPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}

// Validate checks that required fields are present and values are sensible
func (c *Config) Validate() error {
	if len(c.SeedURLs) == 0 {
		return ErrNoSeeds
	}
	if c.ConcurrentWorkers < 1 {
		return ErrInvalidWorkers
	}
	if c.QueueSize < 1 {
		return ErrInvalidQueueSize
	}
	if c.ConnectTimeoutMs < 1 || c.ReadTimeoutMs < 1 {
		return ErrInvalidTimeout
	}
	if c.ShutdownGraceMs < 0 {
		return ErrInvalidShutdownGrace
	}
	if c.ReportIntervalMs < 1 || c.ReportInitialDelayMs < 0 {
		return ErrInvalidReportInterval
	}
	if c.ReportThreshold < 1 {
		return ErrInvalidReportThreshold
	}
	for _, pattern := range c.ExcludePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidExcludePattern, pattern, err)
		}
	}
	return nil
}

// ConnectTimeout is the dial timeout for a single request.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// ReadTimeout bounds the wait for a response once connected.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// ShutdownGrace is how long the pool waits for running tasks after quiescence.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceMs) * time.Millisecond
}

// ReportInterval is the period between word frequency reports.
func (c *Config) ReportInterval() time.Duration {
	return time.Duration(c.ReportIntervalMs) * time.Millisecond
}

// ReportInitialDelay is the wait before the first report.
func (c *Config) ReportInitialDelay() time.Duration {
	return time.Duration(c.ReportInitialDelayMs) * time.Millisecond
}
