package main

import (
	"context"
	"fmt"

	"github.com/nao1215/crawlcore/internal/checkpoint"
	"github.com/nao1215/crawlcore/internal/model"
	"github.com/nao1215/crawlcore/internal/report"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare OLD NEW",
		Short: "Compare two checkpoints",
		Long: `Compare shows how a crawl progressed between two checkpoint files:
- Change in pages processed and unique pages
- New subdomains and per-subdomain growth
- Whether the longest page changed
- How the top words moved in rank

The format of each file is taken from its extension: .json files are read
as JSON checkpoints, anything else as SQLite.

Examples:
  # Compare yesterday's checkpoint with the current one
  crawlcore compare report-yesterday.db ~/.local/share/crawlcore/report.db

  # Output the comparison as Markdown
  crawlcore compare --markdown old.json new.json -o progress.md`,
		Args: cobra.ExactArgs(2),
		RunE: runCompareCmd,
	}

	addReportFormatFlags(cmd)

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	output, err := parseReportOutput(cmd, cfg.TopWords)
	if err != nil {
		return err
	}

	older, err := loadSnapshot(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	newer, err := loadSnapshot(cmd.Context(), args[1])
	if err != nil {
		return err
	}

	comparison := report.Compare(older, newer, output.topK)

	w, closeOutput, err := openOutput(cmd, output.path)
	if err != nil {
		return err
	}
	if _, err := output.writer(w).WriteComparison(comparison); err != nil {
		_ = closeOutput()
		return fmt.Errorf("failed to write comparison: %w", err)
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("failed to close comparison: %w", err)
	}

	if output.path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Comparison written to %s\n", output.path)
	}
	return nil
}

// loadSnapshot reads the checkpoint at path in the format its extension implies.
func loadSnapshot(ctx context.Context, path string) (*model.Snapshot, error) {
	snap, err := checkpoint.DetectStore(path).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", path, err)
	}
	return snap, nil
}
