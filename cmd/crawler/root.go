package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnty4/multi-threaded-webcrawler/internal/version"
)

// NewRootCmd creates the root command. Running it without a subcommand starts a crawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawler [seed-url...]",
		Short: "Concurrent web crawler with live word frequency reports",
		Long: `crawler fetches the seed URLs, follows every http(s) link it finds and
keeps a running count of the words seen across all pages. The most
frequent words are reported periodically and once more when the crawl
has nothing left to visit.

Seeds given on the command line replace seed_urls from the config file.`,
		Version:       version.String(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCrawl,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringP("config", "c", "", "Path to a JSON or YAML config file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("db", "", "SQLite database path (overrides db_path)")

	addCrawlFlags(cmd)

	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
