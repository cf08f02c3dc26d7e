package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/crawlcore/internal/checkpoint"
	"github.com/nao1215/crawlcore/internal/report"
	"github.com/spf13/cobra"
)

// noCheckpointMessage is printed when report finds nothing to summarize.
const noCheckpointMessage = "No analytics file found yet."

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the crawl statistics in the checkpoint",
		Long: `Report reads the checkpoint and prints:
- The number of unique pages discovered so far
- The longest accepted page and its word count
- Unique pages per subdomain of the monitored domain
- The most frequent words, excluding English stop words

The checkpoint can be read while a crawl is still writing it.

Examples:
  # Summarize the default checkpoint
  crawlcore report

  # Write a Markdown report with the top 100 words
  crawlcore report --markdown --top 100 -o report.md

  # Read a JSON checkpoint and emit JSON
  crawlcore report -C crawl.json --json`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	addReportFormatFlags(cmd)
	cmd.Flags().IntP("limit", "l", 0, "Maximum number of subdomains to list (0 lists all)")
	addCheckpointFlags(cmd)

	return cmd
}

// addReportFormatFlags registers the output flags shared by report and compare.
func addReportFormatFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().IntP("top", "k", 0, "Number of top words to list (default: from config)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
}

// reportOutput holds the parsed output flags.
type reportOutput struct {
	jsonOutput     bool
	markdownOutput bool
	path           string
	topK           int
}

// parseReportOutput reads the flags registered by addReportFormatFlags.
func parseReportOutput(cmd *cobra.Command, defaultTopK int) (reportOutput, error) {
	var out reportOutput
	var err error

	if out.jsonOutput, err = cmd.Flags().GetBool("json"); err != nil {
		return out, err
	}
	if out.markdownOutput, err = cmd.Flags().GetBool("markdown"); err != nil {
		return out, err
	}
	if out.path, err = cmd.Flags().GetString("output"); err != nil {
		return out, err
	}
	if out.topK, err = cmd.Flags().GetInt("top"); err != nil {
		return out, err
	}
	if out.topK <= 0 {
		out.topK = defaultTopK
	}
	return out, nil
}

// writer returns the report writer for the selected format.
func (o reportOutput) writer(w io.Writer) report.Writer {
	switch {
	case o.jsonOutput:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case o.markdownOutput:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w)
	}
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	output, err := parseReportOutput(cmd, cfg.TopWords)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	snap, err := store.Load(cmd.Context())
	if errors.Is(err, checkpoint.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), noCheckpointMessage)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	summary := report.Summarize(snap, report.Options{
		TopK:            output.topK,
		Limit:           limit,
		MonitoredDomain: cfg.MonitoredDomain,
	})

	w, closeOutput, err := openOutput(cmd, output.path)
	if err != nil {
		return err
	}
	if _, err := output.writer(w).WriteSummary(summary); err != nil {
		_ = closeOutput()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}

	if output.path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", output.path)
	}
	return nil
}
