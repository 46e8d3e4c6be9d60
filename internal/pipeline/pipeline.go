// Package pipeline orchestrates a page audit run as an ordered
// sequence of steps sharing one accumulating report.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pagelift/pagelift/internal/model"
)

// Step is one stage of a pipeline run. Steps execute in sequence, each
// reading what earlier steps wrote into the report.
//
// Design decision: We use an interface rather than function types because:
//  1. It allows steps to carry configuration state
//  2. It provides a Name() method for logging and debugging
//  3. It's more extensible for future features (e.g., conditional steps)
type Step interface {
	// Do executes the step. A returned error aborts the run; conditions
	// the run can survive must be recorded as report warnings instead.
	Do(ctx context.Context, report *model.PageReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order against one report.
type Pipeline struct {
	steps []Step

	// finalSteps run after the regular steps no matter how the run
	// ended. They flush artifacts, so an aborted or timed-out run
	// still leaves its report behind.
	finalSteps []Step

	logger *slog.Logger

	// continueOnError keeps executing after a step fails. Off by
	// default: an early failure (root fetch) invalidates everything
	// downstream.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithContinueOnError keeps the pipeline running after a step fails,
// recording the error in the report instead of aborting.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline. Steps are added with AddStep.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:  make([]Step, 0),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalStep appends a step that runs after the regular steps even
// when one of them failed or the run deadline expired.
func (p *Pipeline) AddFinalStep(step Step) {
	p.finalSteps = append(p.finalSteps, step)
}

// Execute runs all steps in sequence, then the final steps
// unconditionally. Cancellation is checked between regular steps; a run
// cut short by the overall deadline finalizes as partial with whatever
// the completed steps produced, and the final steps still flush it.
func (p *Pipeline) Execute(ctx context.Context, report *model.PageReport) error {
	err := p.runSteps(ctx, report)

	for _, step := range p.finalSteps {
		p.logger.Info("executing step",
			slog.String("step", step.Name()),
			slog.String("url", report.URL))

		if ferr := step.Do(ctx, report); ferr != nil {
			p.logger.Error("step failed",
				slog.String("step", step.Name()),
				slog.String("url", report.URL),
				slog.String("error", ferr.Error()))
			if err == nil {
				report.Error = ferr
				report.ErrorMessage = ferr.Error()
				err = ferr
			}
			continue
		}
		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return err
}

// runSteps executes the regular steps in order.
func (p *Pipeline) runSteps(ctx context.Context, report *model.PageReport) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				slog.String("step", step.Name()),
				slog.String("reason", ctx.Err().Error()))
			report.Partial = true
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				report.Warn("run timeout reached before " + step.Name())
			}
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			slog.String("step", step.Name()),
			slog.String("url", report.URL))

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				slog.String("step", step.Name()),
				slog.String("url", report.URL),
				slog.String("error", err.Error()))

			report.Error = err
			report.ErrorMessage = err.Error()
			if !p.continueOnError {
				return err
			}
		}

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}
	return nil
}

// StepCount returns the number of steps in the pipeline, final steps
// included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalSteps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalSteps {
		names = append(names, step.Name())
	}
	return names
}
