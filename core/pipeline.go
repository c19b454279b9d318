package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/pkg/logger"
	"go.uber.org/multierr"
)

type StepPublisher interface {
	PublishStep(step StepRecord)
	Error(step StepRecord, err error)
}

type DefaultStepPublisher struct{}

func (p *DefaultStepPublisher) PublishStep(step StepRecord) {}

func (p *DefaultStepPublisher) Error(step StepRecord, err error) {}

// Pipeline runs the steps of a registry, in order, against one tree.
type Pipeline struct {
	name      string
	registry  *Registry
	policy    Policy
	publisher StepPublisher
	journal   Journal
	nowFunc   func() time.Time
}

type Option func(*Pipeline)

func WithPolicy(p Policy) Option {
	return func(pl *Pipeline) { pl.policy = p }
}

func WithPublisher(pub StepPublisher) Option {
	return func(pl *Pipeline) { pl.publisher = pub }
}

func WithJournal(j Journal) Option {
	return func(pl *Pipeline) { pl.journal = j }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(pl *Pipeline) { pl.nowFunc = now }
}

// NewPipeline validates the registry and builds a pipeline. name keys the
// journal, so two recipes never share completion records.
func NewPipeline(name string, r *Registry, opts ...Option) (*Pipeline, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		name:      name,
		registry:  r,
		policy:    AbortOnError,
		publisher: &DefaultStepPublisher{},
		journal:   NopJournal{},
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Execute runs every step in declared order.
//
// Under AbortOnError the first failure ends the run: the report is Aborted,
// names the step, and the returned *StepError carries position and cause.
// Under ContinueOnError every failure is recorded and the combined error is
// returned once all steps had their turn. Cancelling ctx stops the run
// before the next step; the step in flight completes. The tree is never
// rolled back.
func (p *Pipeline) Execute(ctx context.Context, tree *ProjectTree) (*Report, error) {
	steps := p.registry.GetSteps()
	report := &Report{
		RunID:     uuid.NewString(),
		State:     InProgress,
		Steps:     make([]StepRecord, len(steps)),
		StartedAt: p.nowFunc(),
	}
	for i, s := range steps {
		report.Steps[i] = StepRecord{Index: i, Name: s.Name, State: Pending}
	}

	if tree.Logger == nil {
		tree.Logger = logger.NewNullLogger()
	}
	log := tree.Logger.WithField("run_id", report.RunID).WithField("recipe", p.name)
	log.Info("Starting pipeline execution")

	done, err := p.journal.Completed(p.name)
	if err != nil {
		report.State = Aborted
		report.FinishedAt = p.nowFunc()
		return report, errors.Wrap(err, "read journal")
	}

	satisfied := make(map[string]bool, len(steps))
	var errs error

	for i, step := range steps {
		rec := &report.Steps[i]
		stepLog := log.WithField("step", step.Name)

		if err := ctx.Err(); err != nil {
			stepLog.Info("Pipeline execution cancelled")
			report.State = Aborted
			report.FailedStep = step.Name
			report.FinishedAt = p.nowFunc()
			return report, &StepError{Step: step.Name, Index: i, Total: len(steps), Err: err}
		}

		if at, ok := done[step.Name]; ok {
			rec.State = Skipped
			rec.Outcome = "completed in an earlier run at " + at.Format(time.RFC3339)
			satisfied[step.Name] = true
			stepLog.Info("Step already completed, skipping")
			p.publisher.PublishStep(*rec)
			continue
		}

		rec.StartedAt = p.nowFunc()
		rec.State = Running
		stepLog.Debug(fmt.Sprintf("Attempting to execute step %d/%d", i+1, len(steps)))

		err := p.checkPreconditions(step, satisfied, tree)
		if err == nil {
			err = step.Execute(ctx, tree)
		}
		rec.FinishedAt = p.nowFunc()

		if err == nil {
			rec.State = Succeeded
			rec.Outcome = "ok"
			satisfied[step.Name] = true
			if jerr := p.journal.Record(p.name, step.Name, report.RunID, rec.FinishedAt); jerr != nil {
				stepLog.Warn(fmt.Sprintf("Failed to record step in journal: %v", jerr))
			}
			stepLog.Info(fmt.Sprintf("Step completed in %v", rec.Duration()))
			p.publisher.PublishStep(*rec)
			continue
		}

		stepErr := &StepError{Step: step.Name, Index: i, Total: len(steps), Err: err}
		rec.State = Failed
		rec.Err = err
		rec.Outcome = firstLine(err.Error())
		stepLog.Error(fmt.Sprintf("Error executing step: %v", err))
		p.publisher.Error(*rec, stepErr)

		if p.policy == AbortOnError && !step.ContinueOnError {
			report.State = Aborted
			report.FailedStep = step.Name
			report.FinishedAt = p.nowFunc()
			log.Info("Pipeline aborted")
			return report, stepErr
		}
		errs = multierr.Append(errs, stepErr)
	}

	report.State = Completed
	report.FinishedAt = p.nowFunc()
	log.Info("Pipeline execution completed")
	return report, errs
}

func (p *Pipeline) checkPreconditions(step *Step, satisfied map[string]bool, tree *ProjectTree) error {
	for _, req := range step.Requires {
		if !satisfied[req] {
			return errors.Wrapf(ErrPrecondition, "required step %q has not succeeded", req)
		}
	}
	for _, path := range step.Expects {
		if !tree.FS.Exists(path) {
			return errors.Wrapf(ErrPrecondition, "expected %s to exist", path)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
