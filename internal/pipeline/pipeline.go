package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/safarnama/internal/model"
)

// Step is one stage of a run: crawling, writing the sitemap, writing the
// report. Every step sees the same session.
type Step interface {
	// Do runs the step. Problems that must not stop later steps are
	// logged and nil is returned.
	Do(ctx context.Context, session *model.CrawlSession) error

	Name() string
}

// Pipeline runs steps in order over one crawl session.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps running later steps after a failure.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. nil keeps slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError runs the remaining steps after a failed one. A crawl
// that ended early still leaves visited pages for the sitemap.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked before each step; steps handle their own
// timeouts. The first step error is recorded in session.Error. Execute
// returns the first error when continueOnError is false and the joined
// step errors otherwise.
func (p *Pipeline) Execute(ctx context.Context, session *model.CrawlSession) error {
	var errs []error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			return errors.Join(append(errs, err)...)
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"session", session.ID,
		)

		started := time.Now()
		if err := step.Do(ctx, session); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"session", session.ID,
				"elapsed", time.Since(started),
				"error", err,
			)
			if session.Error == "" {
				session.Error = err.Error()
			}
			if !p.continueOnError {
				return err
			}
			errs = append(errs, err)
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"session", session.ID,
			"elapsed", time.Since(started),
		)
	}

	return errors.Join(errs...)
}

// StepCount returns the number of steps.
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
