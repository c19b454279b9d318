package core

import (
	"context"

	"github.com/santiagomed/patchwork/fs"
	"github.com/santiagomed/patchwork/pkg/logger"
	"github.com/santiagomed/patchwork/tool"
)

// ProjectTree is the generated project every step mutates. Steps share it
// one after another, never at the same time.
type ProjectTree struct {
	Root   string
	FS     *fs.FileSystem
	Tools  *tool.Adapter
	Logger logger.Logger
}

func NewProjectTree(root string, fsys *fs.FileSystem, tools *tool.Adapter, l logger.Logger) *ProjectTree {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &ProjectTree{Root: root, FS: fsys, Tools: tools, Logger: l}
}

// Action is one unit of work inside a step.
type Action interface {
	Execute(ctx context.Context, tree *ProjectTree) error
}

// ActionFunc lets a plain function serve as an Action.
type ActionFunc func(ctx context.Context, tree *ProjectTree) error

func (f ActionFunc) Execute(ctx context.Context, tree *ProjectTree) error {
	return f(ctx, tree)
}

// Step is a named, ordered unit of work.
type Step struct {
	Name        string
	Description string
	// Requires names earlier steps that must have succeeded.
	Requires []string
	// Expects lists paths that must exist in the tree before the step runs.
	Expects []string
	// ContinueOnError lets the pipeline carry on past this step's failure
	// even under the abort policy. Only for steps nothing else builds on.
	ContinueOnError bool
	Actions         []Action
}

func (s *Step) Execute(ctx context.Context, tree *ProjectTree) error {
	for _, a := range s.Actions {
		if err := a.Execute(ctx, tree); err != nil {
			return err
		}
	}
	return nil
}

type StepState int

const (
	Pending StepState = iota
	Running
	Succeeded
	Failed
	Skipped
)

func (s StepState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

type PipelineState int

const (
	NotStarted PipelineState = iota
	InProgress
	Completed
	Aborted
)

func (s PipelineState) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case InProgress:
		return "in progress"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Policy decides what a step failure does to the rest of the pipeline.
type Policy int

const (
	// AbortOnError stops at the first failing step.
	AbortOnError Policy = iota
	// ContinueOnError records the failure and runs the next step. Steps
	// that require the failed one then fail their precondition check.
	ContinueOnError
)

// ParsePolicy maps "abort" and "continue" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "abort":
		return AbortOnError, nil
	case "continue":
		return ContinueOnError, nil
	}
	return AbortOnError, &UnknownPolicyError{Value: s}
}

type UnknownPolicyError struct {
	Value string
}

func (e *UnknownPolicyError) Error() string {
	return "unknown failure policy " + e.Value + " (want abort or continue)"
}
