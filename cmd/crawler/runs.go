package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/mnty4/multi-threaded-webcrawler/internal/config"
	"github.com/mnty4/multi-threaded-webcrawler/internal/storage"
)

const defaultRunsLimit = 10

// NewRunsCmd creates the runs subcommand
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent crawl runs recorded in the database",
		Args:  cobra.NoArgs,
		RunE:  runRuns,
	}
	cmd.Flags().IntP("limit", "n", defaultRunsLimit, "Maximum number of runs to list")
	return cmd
}

func runRuns(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", limit)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no database at %s: %w", dbPath, err)
	}

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		finished := "running"
		if !run.FinishedAt.IsZero() {
			finished = run.FinishedAt.Format("2006-01-02 15:04:05")
		}
		reason := run.TerminationReason
		if reason == "" {
			reason = "-"
		}
		rows = append(rows, []string{
			run.RunID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			finished,
			reason,
			strconv.FormatInt(run.PagesFetched, 10),
			strconv.FormatInt(run.PagesFailed, 10),
			strconv.FormatInt(run.TotalWords, 10),
			strings.Join(run.Seeds, " "),
		})
	}

	md := markdown.NewMarkdown(out)
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "Finished", "Reason", "Fetched", "Failed", "Words", "Seeds"},
		Rows:   rows,
	})
	if err := md.Build(); err != nil {
		return fmt.Errorf("failed to render runs: %w", err)
	}
	return nil
}

// resolveDBPath picks --db, then db_path from the config file, then the default.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("db") {
		return cmd.Flags().GetString("db")
	}

	explicit, _ := cmd.Flags().GetString("config")
	path := config.FindConfigFile(explicit)
	if explicit != "" && path == "" {
		return "", fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicit)
	}
	if path == "" {
		return config.DefaultDBPath, nil
	}

	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		return "", err
	}
	return cfg.DBPath, nil
}
