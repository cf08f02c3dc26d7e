package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for crawlcore.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawlcore",
		Short: "Link admission and crawl statistics for a focused web crawler",
		Long: `crawlcore is the decision core of a focused web crawler.

Given a fetched page it returns the outgoing links worth crawling. It rejects
crawler traps (calendars, session ids, deep repeated paths, near-identical
URLs), skips near-duplicate and low-information pages, and keeps running crawl
statistics (unique pages, subdomains, word frequencies, longest page) in a
checkpoint file.

crawlcore performs no network I/O. A host crawler fetches pages and hands them
over one at a time (process) or as a JSON Lines fetch log (replay).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write log records as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .crawlcore in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewProcessCmd())
	cmd.AddCommand(NewReplayCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
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
