package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrPrecondition is returned when a step's requirements are not met.
var ErrPrecondition = errors.New("precondition failed")

// StepError ties a failure to the step and position it happened at.
type StepError struct {
	Step  string
	Index int // zero based
	Total int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d/%d %q: %v", e.Index+1, e.Total, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepRecord is what the runner knows about one step.
type StepRecord struct {
	Index      int
	Name       string
	State      StepState
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Err        error
}

func (r StepRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Report is the result of one pipeline run.
type Report struct {
	RunID      string
	State      PipelineState
	Steps      []StepRecord
	StartedAt  time.Time
	FinishedAt time.Time
	// FailedStep names the step that aborted the pipeline, if any.
	FailedStep string
}

// Failed returns the records of every failed step.
func (r *Report) Failed() []StepRecord {
	var out []StepRecord
	for _, s := range r.Steps {
		if s.State == Failed {
			out = append(out, s)
		}
	}
	return out
}

// Step returns the record for name.
func (r *Report) Step(name string) (StepRecord, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepRecord{}, false
}

// Summary renders one line per step.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline %s", r.State)
	if r.FailedStep != "" {
		fmt.Fprintf(&b, " at %q", r.FailedStep)
	}
	b.WriteString("\n")
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  %2d. %-28s %-9s", s.Index+1, s.Name, s.State)
		if d := s.Duration(); d > 0 {
			fmt.Fprintf(&b, " %s", d.Round(time.Millisecond))
		}
		if s.Outcome != "" {
			fmt.Fprintf(&b, "  %s", s.Outcome)
		}
		b.WriteString("\n")
	}
	return b.String()
}
