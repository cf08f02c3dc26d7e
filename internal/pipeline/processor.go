package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/nao1215/crawlcore/internal/checkpoint"
	"github.com/nao1215/crawlcore/internal/config"
	"github.com/nao1215/crawlcore/internal/crawler"
	"github.com/nao1215/crawlcore/internal/dedup"
	"github.com/nao1215/crawlcore/internal/log"
	"github.com/nao1215/crawlcore/internal/model"
	"github.com/nao1215/crawlcore/internal/stats"
)

// Result is what the Processor hands back to the host framework for one page.
type Result struct {
	// URL is the requested URL of the page.
	URL string

	// Links are the canonical, admitted URLs to enqueue, in document order.
	Links []string

	// Reason is ReasonNone for a fully processed page, otherwise why the
	// page was dropped.
	Reason model.Reason

	// DuplicateOf is the recent page a near-duplicate matched.
	DuplicateOf string

	// Similarity is the Jaccard score against DuplicateOf.
	Similarity float64

	// Tokens is the number of word tokens on the page.
	Tokens int

	// Discovered is the number of link targets seen for the first time.
	Discovered int

	// Checkpointed reports whether this page triggered a successful checkpoint.
	Checkpointed bool

	// CheckpointErr is set when a triggered checkpoint failed to write.
	// It wraps checkpoint.ErrCheckpointWrite and never stops processing.
	CheckpointErr error

	// Err is set when processing was cancelled before the page was counted.
	Err error
}

// Stats summarizes what a Processor has done so far.
type Stats struct {
	// PagesProcessed counts every page handed to Process, rejected or not.
	PagesProcessed int64

	// UniquePages is the size of the unique page set.
	UniquePages int

	// Reasons counts pages by outcome.
	Reasons map[model.Reason]int64

	// Rules counts admission filter rejections by rule.
	Rules map[crawler.Rule]int64

	// LinksEmitted counts links returned to the host.
	LinksEmitted int64

	// CheckpointWrites and CheckpointFailures count periodic and flush writes.
	CheckpointWrites   int
	CheckpointFailures int
}

// Processor is the decision core: it takes one fetched page at a time and
// returns the links worth crawling next.
//
// Design decision: All crawl state (statistics, both recent-history windows
// and the page counter) lives behind one mutex because:
//  1. Duplicate and URL-similarity decisions depend on a consistent, ordered
//     view of recent history
//  2. A checkpoint snapshot must capture a single instant
//  3. The components themselves stay lock-free and simple
//
// Parsing and tokenizing are pure and run outside the lock, so concurrent
// callers only serialize on the cheap stateful part. The checkpoint disk
// write also happens outside the lock.
type Processor struct {
	// extract runs the stateless steps outside the lock.
	extract *Pipeline

	// decide runs the stateful steps under mu.
	decide *Pipeline

	filter   *crawler.Filter
	detector *dedup.Detector
	stats    *stats.Aggregator
	writer   *checkpoint.Writer
	logger   *slog.Logger

	filterOpts []crawler.FilterOption

	mu           sync.Mutex
	pages        int64
	reasons      map[model.Reason]int64
	rules        map[crawler.Rule]int64
	linksEmitted int64
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets a custom logger for the processor and its pipelines.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithFilterOptions passes options to the admission filter.
func WithFilterOptions(opts ...crawler.FilterOption) ProcessorOption {
	return func(p *Processor) {
		p.filterOpts = append(p.filterOpts, opts...)
	}
}

// NewProcessor creates a Processor from cfg. A nil store disables
// checkpointing; a nil cfg uses config.NewConfig defaults.
func NewProcessor(cfg *config.Config, store checkpoint.Store, opts ...ProcessorOption) *Processor {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	p := &Processor{
		reasons: make(map[model.Reason]int64),
		rules:   make(map[crawler.Rule]int64),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.Discard()
	}

	p.filter = crawler.NewFilter(cfg, p.filterOpts...)
	p.detector = dedup.NewDetector(cfg.RecentPageCapacity, cfg.ContentSimilarityThreshold)
	p.stats = stats.New(cfg.MonitoredDomain)
	if store != nil {
		p.writer = checkpoint.NewWriter(store, cfg.CheckpointEvery)
	}

	p.extract = New([]Step{
		NewResponseStep(),
		NewExtractStep(cfg.MinTextLength),
		NewTokenizeStep(),
	}, WithLogger(p.logger))

	p.decide = New([]Step{
		NewDuplicateStep(p.detector),
		NewRecordPageStep(p.stats),
		NewLinkStep(p.stats),
		NewAdmissionStep(p.filter),
	}, WithLogger(p.logger))

	return p
}

// Process runs one fetched page through the core. It never panics on bad
// input and never returns links for a rejected page. The only error it
// reports is cancellation of ctx before the page was counted; checkpoint
// failures are reported in Result.CheckpointErr.
func (p *Processor) Process(ctx context.Context, requestedURL string, fetch *model.FetchResult) Result {
	state, err := p.Extract(ctx, requestedURL, fetch)
	if err != nil {
		return Result{URL: requestedURL, Err: err}
	}
	return p.Decide(ctx, state)
}

// Extract runs the stateless steps (response checks, parsing, tokenizing)
// for one page. It touches no crawl state, so callers may extract many pages
// at once and hand the states to Decide in fetch order.
func (p *Processor) Extract(ctx context.Context, requestedURL string, fetch *model.FetchResult) (*PageState, error) {
	if fetch != nil && fetch.URL == "" {
		f := *fetch
		f.URL = requestedURL
		fetch = &f
	}

	state := NewPageState(requestedURL, fetch)
	if err := p.extract.Execute(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Decide runs the stateful steps for a state produced by Extract and counts
// the page. Pages are decided one at a time in the order Decide is called.
func (p *Processor) Decide(ctx context.Context, state *PageState) Result {
	if err := ctx.Err(); err != nil {
		return Result{URL: state.URL, Err: err}
	}

	p.mu.Lock()
	p.pages++
	if !state.Rejected() {
		// The stateful steps must not stop half-way, or a page would be
		// recorded without its links.
		_ = p.decide.Execute(context.WithoutCancel(ctx), state) //nolint:errcheck // steps under lock never fail
	}
	p.reasons[state.Reason]++
	for rule, n := range state.Rules {
		p.rules[rule] += int64(n)
	}
	p.linksEmitted += int64(len(state.Links))

	var snap *model.Snapshot
	if p.writer != nil && p.writer.Tick() {
		snap = p.snapshotLocked()
	}
	p.mu.Unlock()

	result := Result{
		URL:         state.URL,
		Links:       state.Links,
		Reason:      state.Reason,
		DuplicateOf: state.DuplicateOf,
		Similarity:  state.Similarity,
		Tokens:      len(state.Tokens),
		Discovered:  len(state.Candidates),
	}

	p.logger.Debug("page processed",
		"url", state.URL,
		"reason", state.Reason.String(),
		"tokens", result.Tokens,
		"discovered", result.Discovered,
		"links", len(result.Links),
	)

	if snap != nil {
		result.CheckpointErr = p.write(ctx, snap)
		result.Checkpointed = result.CheckpointErr == nil
	}
	return result
}

// Flush writes a checkpoint regardless of the cadence. Hosts call it on
// shutdown so the last pages are not lost.
func (p *Processor) Flush(ctx context.Context) error {
	if p.writer == nil {
		return nil
	}
	p.mu.Lock()
	snap := p.snapshotLocked()
	p.mu.Unlock()
	return p.write(ctx, snap)
}

// Resume seeds the statistics and page counter from the store's checkpoint.
// A missing checkpoint is not an error; the crawl starts fresh.
func (p *Processor) Resume(ctx context.Context) error {
	if p.writer == nil {
		return nil
	}
	snap, err := p.writer.Store().Load(ctx)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			p.logger.Info("no checkpoint to resume from", "path", p.writer.Store().Path())
			return nil
		}
		return fmt.Errorf("failed to resume: %w", err)
	}

	p.mu.Lock()
	p.stats.Restore(snap)
	p.pages = max(p.pages, snap.PagesProcessed)
	p.mu.Unlock()

	p.logger.Info("resumed from checkpoint",
		"path", p.writer.Store().Path(),
		"pages_processed", snap.PagesProcessed,
		"unique_pages", len(snap.UniquePages),
	)
	return nil
}

// Snapshot returns a consistent copy of the current statistics.
func (p *Processor) Snapshot() *model.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Stats returns counters describing the work done so far.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		PagesProcessed: p.pages,
		UniquePages:    p.stats.UniqueCount(),
		Reasons:        maps.Clone(p.reasons),
		Rules:          maps.Clone(p.rules),
		LinksEmitted:   p.linksEmitted,
	}
	p.mu.Unlock()

	if p.writer != nil {
		s.CheckpointWrites, s.CheckpointFailures = p.writer.Stats()
	}
	return s
}

func (p *Processor) snapshotLocked() *model.Snapshot {
	snap := p.stats.Snapshot()
	snap.PagesProcessed = p.pages
	return snap
}

func (p *Processor) write(ctx context.Context, snap *model.Snapshot) error {
	if err := p.writer.Write(ctx, snap); err != nil {
		p.logger.Error("checkpoint failed",
			"path", p.writer.Store().Path(),
			"pages_processed", snap.PagesProcessed,
			"error", err,
		)
		return err
	}
	p.logger.Info("checkpoint written",
		"path", p.writer.Store().Path(),
		"pages_processed", snap.PagesProcessed,
		"unique_pages", len(snap.UniquePages),
	)
	return nil
}
