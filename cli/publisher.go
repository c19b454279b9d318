package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/santiagomed/patchwork/core"
	"github.com/santiagomed/patchwork/pkg/logger"
)

type stepFailure struct {
	Record core.StepRecord
	Err    error
}

// CliStepPublisher forwards step records to the interactive view.
type CliStepPublisher struct {
	stepChan  chan core.StepRecord
	errorChan chan stepFailure
	logger    logger.Logger
}

func NewCliStepPublisher(logger logger.Logger) *CliStepPublisher {
	return &CliStepPublisher{
		stepChan:  make(chan core.StepRecord, 100),
		errorChan: make(chan stepFailure, 100),
		logger:    logger,
	}
}

func (p *CliStepPublisher) PublishStep(step core.StepRecord) {
	select {
	case p.stepChan <- step:
		p.logger.Debug(fmt.Sprintf("Successfully published step: %s", step.Name))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish step: %s. Channel full.", step.Name))
	}
}

func (p *CliStepPublisher) Error(step core.StepRecord, err error) {
	select {
	case p.errorChan <- stepFailure{Record: step, Err: err}:
		p.logger.Debug(fmt.Sprintf("Successfully published error for step: %s", step.Name))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish error for step: %s. Channel full.", step.Name))
	}
}

// PlainStepPublisher prints one line per finished step.
type PlainStepPublisher struct {
	w     io.Writer
	total int
}

func NewPlainStepPublisher(w io.Writer, total int) *PlainStepPublisher {
	return &PlainStepPublisher{w: w, total: total}
}

func (p *PlainStepPublisher) PublishStep(step core.StepRecord) {
	fmt.Fprintln(p.w, p.line(step))
}

func (p *PlainStepPublisher) Error(step core.StepRecord, err error) {
	fmt.Fprintln(p.w, p.line(step))
}

func (p *PlainStepPublisher) line(step core.StepRecord) string {
	s := fmt.Sprintf("[%2d/%d] %-24s %-9s", step.Index+1, p.total, step.Name, step.State)
	if d := step.Duration(); d > 0 {
		s += " " + d.Round(time.Millisecond).String()
	}
	if step.State != core.Succeeded && step.Outcome != "" {
		s += "  " + step.Outcome
	}
	return s
}
