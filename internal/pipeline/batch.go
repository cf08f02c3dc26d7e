package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/crawlcore/internal/log"
	"github.com/nao1215/crawlcore/internal/model"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency is the number of pages processed at once when
// WithConcurrency is not given.
const defaultConcurrency = 4

// RecordCallback receives each processed record. index is the record's
// position in the source, starting at 0. Calls are made one at a time in
// index order. rec is nil for a record the source could not decode.
type RecordCallback func(index int, rec *model.FetchRecord, result Result)

// BatchProcessor replays a stream of fetch records through one Processor
// with several workers, the way a multi-threaded crawler would call it.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Processor because:
//  1. It keeps the Processor focused on single-page decisions
//  2. The Processor is the only place that owns crawl state, so workers share it
//  3. It provides cleaner separation between input handling and decisions
type BatchProcessor struct {
	// processor is shared by every worker.
	processor *Processor

	// concurrency is the maximum number of pages in flight.
	concurrency int

	// baseDir resolves relative body files.
	baseDir string

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of pages processed at once.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBaseDir sets the directory relative body_file paths resolve against.
func WithBaseDir(dir string) BatchOption {
	return func(b *BatchProcessor) {
		b.baseDir = dir
	}
}

// NewBatchProcessor creates a new BatchProcessor around proc.
func NewBatchProcessor(proc *Processor, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		processor:   proc,
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = log.Discard()
	}

	return bp
}

// ProcessSource reads every record from src and processes it, calling
// callback (when non-nil) for each one.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Reading stays on the calling goroutine so records are dispatched in
// log order. Workers extract in parallel, then each waits for the record
// before it so pages are decided in log order. Which of two near-duplicate
// pages is kept therefore never depends on worker timing.
//
// A record that cannot be decoded or converted is reported to the callback
// with Result.Err set and does not stop the batch. Any other read error from
// src or cancellation of ctx stops the batch and is returned.
func (bp *BatchProcessor) ProcessSource(ctx context.Context, src RecordSource, callback RecordCallback) error {
	bp.logger.Info("starting batch processing",
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	// prev is closed once the previous record has been decided.
	prev := make(chan struct{})
	close(prev)

	index := 0
	var readErr error
	for {
		rec, err := src.Next(gctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, ErrInvalidRecord) {
			readErr = err
			break
		}
		if err != nil {
			bp.logger.Warn("skipping fetch record", "index", index, "error", err)
		}

		i, recErr := index, err
		index++
		wait, done := prev, make(chan struct{})
		prev = done
		g.Go(func() error {
			defer close(done)

			state, result := bp.extractRecord(gctx, rec, recErr)
			<-wait
			if state != nil {
				result = bp.processor.Decide(gctx, state)
			}
			if callback != nil {
				callback(i, rec, result)
			}
			if result.Err != nil && gctx.Err() != nil {
				return result.Err
			}
			return nil
		})
	}

	waitErr := g.Wait()

	bp.logger.Info("batch processing complete",
		"records", index,
		"elapsed", time.Since(startTime),
	)

	if readErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return readErr
	}
	if waitErr != nil {
		return waitErr
	}
	return ctx.Err()
}

// extractRecord runs the stateless half of processing for rec. It returns a
// nil state and a finished Result when the record cannot be decided.
func (bp *BatchProcessor) extractRecord(ctx context.Context, rec *model.FetchRecord, recErr error) (*PageState, Result) {
	if recErr != nil {
		return nil, Result{Err: recErr}
	}
	fetch, err := rec.FetchResult(bp.baseDir)
	if err != nil {
		bp.logger.Warn("skipping fetch record",
			"url", rec.URL,
			"error", err,
		)
		return nil, Result{URL: rec.URL, Err: fmt.Errorf("%w: %w", ErrInvalidRecord, err)}
	}
	state, err := bp.processor.Extract(ctx, rec.URL, fetch)
	if err != nil {
		return nil, Result{URL: rec.URL, Err: err}
	}
	return state, Result{}
}
