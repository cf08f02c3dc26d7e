package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/crawlcore/internal/checkpoint"
	"github.com/nao1215/crawlcore/internal/model"
	"github.com/nao1215/crawlcore/internal/pipeline"
	"github.com/spf13/cobra"
)

// pageOutput is the JSON form of one processed page.
type pageOutput struct {
	URL         string   `json:"url"`
	Reason      string   `json:"reason"`
	Links       []string `json:"links"`
	DuplicateOf string   `json:"duplicate_of,omitempty"`
	Similarity  float64  `json:"similarity,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// newPageOutput converts a processor result for printing.
func newPageOutput(result pipeline.Result) pageOutput {
	out := pageOutput{
		URL:    result.URL,
		Reason: result.Reason.String(),
		Links:  result.Links,
	}
	if out.Links == nil {
		out.Links = []string{}
	}
	if result.Reason == model.ReasonNearDuplicate {
		out.DuplicateOf = result.DuplicateOf
		out.Similarity = result.Similarity
	}
	if result.Err != nil {
		out.Error = result.Err.Error()
	}
	return out
}

// NewProcessCmd creates the process command.
func NewProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [file]",
		Short: "Process one fetched page and print the links to crawl",
		Long: `Process runs a single fetched page through crawlcore and prints the
links worth crawling next, one per line.

The page body is read from FILE, or from standard input when FILE is "-" or
omitted. Crawl state is loaded from the checkpoint first and written back
afterwards, so links seen by earlier runs are not printed again.

The checkpoint holds statistics and seen links only. Near-duplicate and
similar-URL detection compare against pages of the current run, so each
process run starts with empty history and never flags a page as a copy of
one handled by an earlier run. Use replay to get that detection across a
whole fetch log.

Examples:
  # Process a saved page
  crawlcore process --url https://www.ics.uci.edu/ index.html

  # Pipe a page from curl, keeping the redirect target for relative links
  curl -sL https://www.ics.uci.edu/ | crawlcore process \
    --url http://ics.uci.edu --final-url https://www.ics.uci.edu/

  # Print the full decision as JSON without touching the checkpoint
  crawlcore process --url https://www.ics.uci.edu/ --json --no-checkpoint index.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProcessCmd,
	}

	cmd.Flags().StringP("url", "u", "", "Requested URL of the page (required)")
	cmd.Flags().String("final-url", "", "URL after redirects, used to resolve relative links")
	cmd.Flags().IntP("status", "s", 200, "HTTP status code of the response")
	cmd.Flags().StringP("content-type", "t", "text/html", "Content-Type header of the response")
	cmd.Flags().BoolP("json", "j", false, "Print the decision as JSON")
	cmd.Flags().Bool("no-checkpoint", false, "Do not read or write the checkpoint")
	addCheckpointFlags(cmd)

	_ = cmd.MarkFlagRequired("url") //nolint:errcheck // flag is registered above

	return cmd
}

// runProcessCmd executes the process command.
func runProcessCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	fetch, err := fetchFromFlags(cmd, args)
	if err != nil {
		return err
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	noCheckpoint, err := cmd.Flags().GetBool("no-checkpoint")
	if err != nil {
		return err
	}

	var store checkpoint.Store
	if !noCheckpoint {
		if store, err = newStore(cfg); err != nil {
			return err
		}
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	proc := pipeline.NewProcessor(cfg, store, pipeline.WithProcessorLogger(logger))
	if err := proc.Resume(ctx); err != nil {
		return err
	}

	result := proc.Process(ctx, fetch.URL, fetch)
	if result.Err != nil {
		return result.Err
	}

	flushCheckpoint(context.WithoutCancel(ctx), proc, logger)

	return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result, jsonOutput)
}

// fetchFromFlags builds the fetch result from the process flags and body.
func fetchFromFlags(cmd *cobra.Command, args []string) (*model.FetchResult, error) {
	pageURL, err := cmd.Flags().GetString("url")
	if err != nil {
		return nil, err
	}
	if pageURL == "" {
		return nil, errors.New("--url is required")
	}
	finalURL, err := cmd.Flags().GetString("final-url")
	if err != nil {
		return nil, err
	}
	status, err := cmd.Flags().GetInt("status")
	if err != nil {
		return nil, err
	}
	contentType, err := cmd.Flags().GetString("content-type")
	if err != nil {
		return nil, err
	}

	path := stdinPath
	if len(args) > 0 {
		path = args[0]
	}
	input, _, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	body, err := io.ReadAll(io.LimitReader(input, model.MaxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}

	return &model.FetchResult{
		URL:         pageURL,
		FinalURL:    finalURL,
		StatusCode:  status,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// flushCheckpoint writes the final checkpoint. A failure is logged and does
// not fail the command; the decision was already made.
func flushCheckpoint(ctx context.Context, proc *pipeline.Processor, logger *slog.Logger) {
	if err := proc.Flush(ctx); err != nil {
		logger.Error("final checkpoint failed", "error", err)
	}
}

// printResult writes the emitted links, or the whole decision as JSON.
// Rejections are explained on errOut in text mode.
func printResult(out, errOut io.Writer, result pipeline.Result, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(newPageOutput(result))
	}

	if result.Reason.Rejected() {
		fmt.Fprintf(errOut, "page skipped: %s\n", result.Reason)
		return nil
	}
	for _, link := range result.Links {
		if _, err := fmt.Fprintln(out, link); err != nil {
			return err
		}
	}
	return nil
}
