package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/nao1215/crawlcore/internal/checkpoint"
	"github.com/nao1215/crawlcore/internal/crawler"
	"github.com/nao1215/crawlcore/internal/model"
	"github.com/nao1215/crawlcore/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewReplayCmd creates the replay command.
func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Replay a fetch log through the crawl core",
		Long: `Replay feeds a log of fetched pages through crawlcore, as the crawler
would have, and prints the admitted links of every page.

The log holds one JSON object per line:
  {"url": "...", "final_url": "...", "status": 200,
   "content_type": "text/html", "body": "<base64>"}
"body_file" may replace "body"; relative paths resolve against the log's
directory. Blank lines and lines starting with # are ignored.

Pages are parsed in parallel and decided one at a time in log order, so
the first of several near-duplicate pages is always the one kept. A line
that is not valid JSON is reported and skipped. Checkpoints are written
every checkpoint.every pages and once more at the end, including after
Ctrl-C.

Examples:
  # Replay a log, starting from an empty crawl
  crawlcore replay fetches.jsonl

  # Continue from the last checkpoint with 8 workers
  crawlcore replay --resume -n 8 fetches.jsonl

  # Emit one JSON decision per page
  crawlcore replay --json fetches.jsonl > decisions.jsonl`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReplayCmd,
	}

	cmd.Flags().IntP("concurrency", "n", 0, "Number of parsing workers (default: from config)")
	cmd.Flags().BoolP("resume", "r", false, "Load the checkpoint before replaying")
	cmd.Flags().BoolP("json", "j", false, "Print one JSON decision per page")
	cmd.Flags().Bool("no-checkpoint", false, "Do not read or write the checkpoint")
	addCheckpointFlags(cmd)

	return cmd
}

// replayOptions holds the parsed replay flags.
type replayOptions struct {
	concurrency  int
	resume       bool
	jsonOutput   bool
	noCheckpoint bool
}

// parseReplayFlags reads the replay flags, falling back to cfgConcurrency.
func parseReplayFlags(cmd *cobra.Command, cfgConcurrency int) (replayOptions, error) {
	var opts replayOptions
	var err error

	if opts.concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return opts, err
	}
	if opts.concurrency <= 0 {
		opts.concurrency = cfgConcurrency
	}
	if opts.resume, err = cmd.Flags().GetBool("resume"); err != nil {
		return opts, err
	}
	if opts.jsonOutput, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.noCheckpoint, err = cmd.Flags().GetBool("no-checkpoint"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runReplayCmd executes the replay command.
func runReplayCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	opts, err := parseReplayFlags(cmd, cfg.Concurrency)
	if err != nil {
		return err
	}

	var store checkpoint.Store
	if !opts.noCheckpoint {
		if store, err = newStore(cfg); err != nil {
			return err
		}
	}

	path := stdinPath
	if len(args) > 0 {
		path = args[0]
	}
	input, baseDir, err := openInput(cmd, path)
	if err != nil {
		return err
	}
	defer input.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	proc := pipeline.NewProcessor(cfg, store, pipeline.WithProcessorLogger(logger))
	if opts.resume {
		if err := proc.Resume(ctx); err != nil {
			return err
		}
	}

	batch := pipeline.NewBatchProcessor(proc,
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(opts.concurrency),
		pipeline.WithBaseDir(baseDir),
	)

	printer := &replayPrinter{
		out:        cmd.OutOrStdout(),
		errOut:     cmd.ErrOrStderr(),
		jsonOutput: opts.jsonOutput,
	}

	batchErr := batch.ProcessSource(ctx, pipeline.NewJSONLSource(input), printer.print)

	// The final checkpoint is written even when the replay was interrupted.
	flushCheckpoint(context.WithoutCancel(ctx), proc, logger)

	writeReplaySummary(cmd.ErrOrStderr(), proc.Stats())

	if printer.err != nil {
		return printer.err
	}
	if batchErr != nil {
		return fmt.Errorf("replay stopped: %w", batchErr)
	}
	return nil
}

// replayPrinter writes batch results as they are decided.
type replayPrinter struct {
	out        io.Writer
	errOut     io.Writer
	jsonOutput bool

	// err is the first output error.
	err error
}

// print is the batch callback.
func (p *replayPrinter) print(_ int, _ *model.FetchRecord, result pipeline.Result) {
	if p.err != nil {
		return
	}

	if p.jsonOutput {
		data, err := json.Marshal(newPageOutput(result))
		if err != nil {
			p.err = err
			return
		}
		if _, err := fmt.Fprintln(p.out, string(data)); err != nil {
			p.err = err
		}
		return
	}

	if result.Err != nil && result.URL == "" {
		fmt.Fprintln(p.errOut, result.Err)
		return
	}
	if result.Err != nil {
		fmt.Fprintf(p.errOut, "%s: %v\n", result.URL, result.Err)
		return
	}
	for _, link := range result.Links {
		if _, err := fmt.Fprintln(p.out, link); err != nil {
			p.err = err
			return
		}
	}
}

// writeReplaySummary prints the page outcome and filter rule counters.
func writeReplaySummary(w io.Writer, stats pipeline.Stats) {
	fmt.Fprintf(w, "\nPages processed: %d\n", stats.PagesProcessed)
	fmt.Fprintf(w, "Unique pages:    %d\n", stats.UniquePages)
	fmt.Fprintf(w, "Links emitted:   %d\n", stats.LinksEmitted)
	if stats.CheckpointWrites > 0 || stats.CheckpointFailures > 0 {
		fmt.Fprintf(w, "Checkpoints:     %d written, %d failed\n",
			stats.CheckpointWrites, stats.CheckpointFailures)
	}

	fmt.Fprintln(w, "\nPages by outcome:")
	for _, reason := range model.Reasons() {
		if n := stats.Reasons[reason]; n > 0 {
			fmt.Fprintf(w, "  %-18s %d\n", reason, n)
		}
	}

	if len(stats.Rules) == 0 {
		return
	}
	rules := make([]crawler.Rule, 0, len(stats.Rules))
	for rule := range stats.Rules {
		rules = append(rules, rule)
	}
	slices.Sort(rules)

	fmt.Fprintln(w, "\nLinks rejected by rule:")
	for _, rule := range rules {
		fmt.Fprintf(w, "  %-18s %d\n", rule, stats.Rules[rule])
	}
}
