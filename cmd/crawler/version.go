package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnty4/multi-threaded-webcrawler/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crawler version %s\n", version.String())
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", version.Commit())
		},
	}
}
