package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/crawlcore/internal/checkpoint"
	"github.com/nao1215/crawlcore/internal/config"
	"github.com/nao1215/crawlcore/internal/log"
	"github.com/spf13/cobra"
)

// stdinPath selects standard input wherever a file argument is accepted.
const stdinPath = "-"

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config file path from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// loadConfig builds the configuration from defaults, the config file and
// the checkpoint flags of cmd, then validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(getConfigFlag(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := applyCheckpointFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// addCheckpointFlags registers the checkpoint location flags.
func addCheckpointFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("checkpoint", "C", "",
		"Checkpoint file path (default: report.db in the XDG data directory)")
	cmd.Flags().String("format", "",
		"Checkpoint format: sqlite or json (default: from the file extension or config)")
}

// applyCheckpointFlags overrides the checkpoint settings of cfg with the
// flags registered by addCheckpointFlags. Commands without them are left alone.
func applyCheckpointFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Lookup("checkpoint") == nil {
		return nil
	}

	path, err := cmd.Flags().GetString("checkpoint")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	if path != "" {
		cfg.CheckpointPath = path
		if format == "" && filepath.Ext(path) == ".json" {
			format = config.FormatJSON
		}
	}
	if format != "" {
		cfg.CheckpointFormat = format
	}
	return nil
}

// newStore opens the checkpoint store selected by cfg.
func newStore(cfg *config.Config) (checkpoint.Store, error) {
	store, err := checkpoint.NewStore(cfg.CheckpointFormat, cfg.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	return store, nil
}

// setupLogger creates a structured logger that writes to the command's
// error stream and redacts sensitive values. --log-json selects JSON records.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Root().PersistentFlags().GetBool("log-json")
	if err == nil && jsonLogs {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openInput opens path for reading, with "-" meaning the command's stdin.
// The returned directory resolves paths relative to the input.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, string, error) {
	if path == stdinPath {
		return io.NopCloser(cmd.InOrStdin()), ".", nil
	}
	f, err := os.Open(path) //nolint:gosec // Input paths are user-provided by design
	if err != nil {
		return nil, "", fmt.Errorf("failed to open input: %w", err)
	}
	return f, filepath.Dir(path), nil
}

// openOutput returns the destination for a report: the file at path, or the
// command's stdout when path is empty. The returned function closes the file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list every crawled host, so keep them private to the owner.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // Output paths are user-provided by design
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
