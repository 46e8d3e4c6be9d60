package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/pagelift/pagelift/internal/model"
)

// fakeStep records whether it ran and optionally fails.
type fakeStep struct {
	name string
	err  error
	ran  bool
}

func (s *fakeStep) Name() string { return s.name }

func (s *fakeStep) Do(_ context.Context, _ *model.PageReport) error {
	s.ran = true
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPipelineExecutesInOrder(t *testing.T) {
	t.Parallel()

	first := &fakeStep{name: "first"}
	second := &fakeStep{name: "second"}

	p := New(WithLogger(discardLogger()))
	p.AddSteps(first, second)

	report := model.NewPageReport("https://example.com/")
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	if !first.ran || !second.ran {
		t.Error("all steps must run")
	}
	if len(report.PerformedSteps) != 2 ||
		report.PerformedSteps[0] != "first" || report.PerformedSteps[1] != "second" {
		t.Errorf("PerformedSteps = %v", report.PerformedSteps)
	}
}

func TestPipelineStopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := &fakeStep{name: "failing", err: boom}
	after := &fakeStep{name: "after"}

	p := New(WithLogger(discardLogger()))
	p.AddSteps(failing, after)

	report := model.NewPageReport("https://example.com/")
	if err := p.Execute(context.Background(), report); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if after.ran {
		t.Error("steps after a failure must not run")
	}
	if report.ErrorMessage != "boom" {
		t.Errorf("ErrorMessage = %q", report.ErrorMessage)
	}
}

func TestPipelineContinueOnError(t *testing.T) {
	t.Parallel()

	failing := &fakeStep{name: "failing", err: errors.New("boom")}
	after := &fakeStep{name: "after"}

	p := New(WithLogger(discardLogger()), WithContinueOnError(true))
	p.AddSteps(failing, after)

	report := model.NewPageReport("https://example.com/")
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	if !after.ran {
		t.Error("continueOnError must keep executing subsequent steps")
	}
}

func TestPipelineCancellationMarksPartial(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	step := &fakeStep{name: "never"}
	p := New(WithLogger(discardLogger()))
	p.AddStep(step)

	report := model.NewPageReport("https://example.com/")
	if err := p.Execute(ctx, report); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if step.ran {
		t.Error("no step may start after cancellation")
	}
	if !report.Partial {
		t.Error("a cancelled run must be marked partial")
	}
}

func TestPipelineFinalStepsRunAfterFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := &fakeStep{name: "failing", err: boom}
	flush := &fakeStep{name: "flush"}

	p := New(WithLogger(discardLogger()))
	p.AddStep(failing)
	p.AddFinalStep(flush)

	report := model.NewPageReport("https://example.com/")
	if err := p.Execute(context.Background(), report); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !flush.ran {
		t.Error("final steps must run even when an earlier step failed")
	}
	if len(report.PerformedSteps) != 1 || report.PerformedSteps[0] != "flush" {
		t.Errorf("PerformedSteps = %v", report.PerformedSteps)
	}
	// The step failure, not a final-step outcome, is what the report records.
	if report.ErrorMessage != "boom" {
		t.Errorf("ErrorMessage = %q", report.ErrorMessage)
	}
}

func TestPipelineFinalStepsRunAfterCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	never := &fakeStep{name: "never"}
	flush := &fakeStep{name: "flush"}

	p := New(WithLogger(discardLogger()))
	p.AddStep(never)
	p.AddFinalStep(flush)

	report := model.NewPageReport("https://example.com/")
	if err := p.Execute(ctx, report); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if never.ran {
		t.Error("no regular step may start after cancellation")
	}
	if !flush.ran {
		t.Error("a cancelled run must still execute its final steps")
	}
	if !report.Partial {
		t.Error("a cancelled run must be marked partial")
	}
}

func TestPipelineFinalStepFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	flush := &fakeStep{name: "flush", err: boom}

	p := New(WithLogger(discardLogger()))
	p.AddStep(&fakeStep{name: "ok"})
	p.AddFinalStep(flush)

	report := model.NewPageReport("https://example.com/")
	if err := p.Execute(context.Background(), report); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if report.ErrorMessage != "boom" {
		t.Errorf("ErrorMessage = %q", report.ErrorMessage)
	}
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New(WithLogger(discardLogger()))
	p.AddSteps(&fakeStep{name: "a"}, &fakeStep{name: "b"})
	p.AddFinalStep(&fakeStep{name: "z"})

	if p.StepCount() != 3 {
		t.Errorf("StepCount() = %d", p.StepCount())
	}
	names := p.StepNames()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "z" {
		t.Errorf("StepNames() = %v", names)
	}
}
