package recipe

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/core"
	"github.com/santiagomed/patchwork/patch"
	"github.com/santiagomed/patchwork/tool"
)

// RunAction invokes an external tool through the tree's adapter.
type RunAction struct {
	Invocation tool.Invocation
}

func (a *RunAction) Execute(ctx context.Context, tree *core.ProjectTree) error {
	if tree.Tools == nil {
		return errors.New("no tool adapter configured")
	}
	out, err := tree.Tools.Invoke(ctx, a.Invocation)
	if err != nil {
		return err
	}
	tree.Logger.WithField("command", a.Invocation.String()).
		Debug(fmt.Sprintf("Finished in %v", out.Duration))
	return nil
}

func (a *RunAction) String() string {
	return "run " + a.Invocation.String()
}

// PatchAction applies one patch operation to the tree.
type PatchAction struct {
	Op patch.Operation
}

func (a *PatchAction) Execute(ctx context.Context, tree *core.ProjectTree) error {
	results, err := a.Op.Apply(tree.FS)
	for _, res := range results {
		log := tree.Logger.WithField("path", res.Path).WithField("outcome", res.Outcome.String())
		if res.Outcome == patch.Skipped {
			log.Debug(fmt.Sprintf("Skipped %s: %s", a.Op, res.Reason))
			continue
		}
		log.Info(fmt.Sprintf("Applied %s", a.Op))
	}
	return err
}

func (a *PatchAction) String() string {
	return a.Op.String()
}

// WriteAction replaces a file's content.
type WriteAction struct {
	Path    string
	Content string
}

func (a *WriteAction) Execute(ctx context.Context, tree *core.ProjectTree) error {
	if err := tree.FS.WriteFile(a.Path, a.Content); err != nil {
		return err
	}
	tree.Logger.WithField("path", a.Path).Info("Wrote file")
	return nil
}

func (a *WriteAction) String() string {
	return "write " + a.Path
}

// Render returns a copy of the recipe with every string expanded against
// vars.
func (r *Recipe) Render(vars Vars) (*Recipe, error) {
	out := &Recipe{
		Name:        r.Name,
		Description: r.Description,
		Requires:    r.Requires,
		Vars:        vars,
		Steps:       make([]StepSpec, len(r.Steps)),
	}
	for i, s := range r.Steps {
		rs, err := renderStep(s, vars)
		if err != nil {
			return nil, errors.Wrapf(err, "step %s", s.Name)
		}
		out.Steps[i] = rs
	}
	return out, nil
}

// Build renders the recipe and registers its steps in order.
func (r *Recipe) Build(vars Vars) (*core.Registry, error) {
	rendered, err := r.Render(vars)
	if err != nil {
		return nil, err
	}

	reg := core.NewRegistry()
	for _, s := range rendered.Steps {
		step := &core.Step{
			Name:            s.Name,
			Description:     s.Description,
			Requires:        s.Requires,
			Expects:         s.Expects,
			ContinueOnError: s.ContinueOnError,
		}
		for j, a := range s.Actions {
			action, err := a.action()
			if err != nil {
				return nil, errors.Wrapf(err, "step %s action %d", s.Name, j+1)
			}
			step.Actions = append(step.Actions, action)
		}
		if err := reg.Register(step); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "recipe %s", r.Name)
	}
	return reg, nil
}

func (a ActionSpec) action() (core.Action, error) {
	kind, err := a.kind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "run":
		if a.Run.Command == "" {
			return nil, errors.New("run needs a command")
		}
		return &RunAction{Invocation: *a.Run}, nil
	case "patch":
		if err := a.Patch.Validate(); err != nil {
			return nil, err
		}
		return &PatchAction{Op: *a.Patch}, nil
	default:
		if a.Write.Path == "" {
			return nil, errors.New("write needs a path")
		}
		return &WriteAction{Path: a.Write.Path, Content: a.Write.Content}, nil
	}
}

func renderStep(s StepSpec, vars Vars) (StepSpec, error) {
	out := s
	out.Actions = make([]ActionSpec, len(s.Actions))

	var err error
	r := func(dst *string) {
		if err != nil {
			return
		}
		*dst, err = vars.Render(*dst)
	}

	if len(s.Expects) > 0 {
		out.Expects = append([]string(nil), s.Expects...)
		for i := range out.Expects {
			r(&out.Expects[i])
		}
	}
	r(&out.Description)

	for i, a := range s.Actions {
		switch {
		case a.Run != nil:
			inv := *a.Run
			r(&inv.Command)
			r(&inv.Stdin)
			inv.Args = append([]string(nil), a.Run.Args...)
			for j := range inv.Args {
				r(&inv.Args[j])
			}
			if len(a.Run.Env) > 0 {
				inv.Env = make(map[string]string, len(a.Run.Env))
				for k, v := range a.Run.Env {
					r(&v)
					inv.Env[k] = v
				}
			}
			out.Actions[i] = ActionSpec{Run: &inv}
		case a.Patch != nil:
			op := *a.Patch
			for _, f := range []*string{&op.Path, &op.Glob, &op.Under, &op.NewestUnder, &op.Pattern, &op.Anchor, &op.Text, &op.SkipIf} {
				r(f)
			}
			out.Actions[i] = ActionSpec{Patch: &op}
		case a.Write != nil:
			w := *a.Write
			r(&w.Path)
			r(&w.Content)
			out.Actions[i] = ActionSpec{Write: &w}
		default:
			out.Actions[i] = a
		}
		if err != nil {
			return out, errors.Wrapf(err, "action %d", i+1)
		}
	}
	return out, err
}

// Markdown describes the rendered recipe, one section per step.
func (r *Recipe) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Name)
	if r.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(r.Description))
	}
	for i, s := range r.Steps {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, s.Name)
		if s.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(s.Description))
		}
		if len(s.Requires) > 0 {
			fmt.Fprintf(&b, "*requires:* %s\n\n", strings.Join(s.Requires, ", "))
		}
		if s.ContinueOnError {
			b.WriteString("*failure does not stop the run*\n\n")
		}
		for _, a := range s.Actions {
			action, err := a.action()
			if err != nil {
				fmt.Fprintf(&b, "- invalid action: %v\n", err)
				continue
			}
			fmt.Fprintf(&b, "- `%s`\n", strings.ReplaceAll(fmt.Sprint(action), "`", "'"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
