package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/crawlcore/internal/log"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the page state
// accumulated by previous steps.
//
// Design decision: We use an interface rather than function types because:
//  1. It allows steps to carry their collaborators (filter, detector, stats)
//  2. It provides a Name() method for logging and debugging
//  3. Tests can run a single step against a hand-built PageState
type Step interface {
	// Do executes the pipeline step.
	// A step rejects a page by setting state.Reason; that is not an error.
	// Errors are reserved for cancellation and broken invariants.
	Do(ctx context.Context, state *PageState) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It stops at the first step that rejects the page or fails.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, log output is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given steps and options.
func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: append([]Step(nil), steps...),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = log.Discard()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// Execute runs the pipeline steps in sequence until one rejects the page.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps are short and CPU-bound. A pipeline that must not
// stop half-way is run with context.WithoutCancel.
func (p *Pipeline) Execute(ctx context.Context, state *PageState) error {
	for _, step := range p.steps {
		if state.Rejected() {
			return nil
		}

		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"url", state.URL,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		if err := step.Do(ctx, state); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", state.URL,
				"error", err,
			)
			return err
		}

		if state.Rejected() {
			p.logger.Debug("page rejected",
				"step", step.Name(),
				"url", state.URL,
				"reason", state.Reason.String(),
			)
		}
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
