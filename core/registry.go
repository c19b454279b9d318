package core

import (
	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

var (
	ErrDuplicateStep = errors.New("duplicate step")
	ErrUnknownStep   = errors.New("unknown step")
	ErrStepOrder     = errors.New("step order")
)

// Registry holds steps in the order they run.
type Registry struct {
	steps []*Step
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends step to the run order.
func (r *Registry) Register(step *Step) error {
	if step.Name == "" {
		return errors.New("step has no name")
	}
	if _, ok := r.index[step.Name]; ok {
		return errors.Wrap(ErrDuplicateStep, step.Name)
	}
	r.index[step.Name] = len(r.steps)
	r.steps = append(r.steps, step)
	return nil
}

// GetSteps returns the steps in run order.
func (r *Registry) GetSteps() []*Step {
	return r.steps
}

// GetStep looks a step up by name.
func (r *Registry) GetStep(name string) *Step {
	i, ok := r.index[name]
	if !ok {
		return nil
	}
	return r.steps[i]
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	return len(r.steps)
}

// Validate checks the declared requirements: every required step exists,
// runs earlier than the step requiring it, and no cycle exists.
func (r *Registry) Validate() error {
	_, err := r.graph()
	return err
}

// Dependents returns every step that directly or transitively requires
// name, in run order.
func (r *Registry) Dependents(name string) ([]string, error) {
	g, err := r.graph()
	if err != nil {
		return nil, err
	}
	if _, ok := r.index[name]; !ok {
		return nil, errors.Wrap(ErrUnknownStep, name)
	}

	reached := map[string]bool{}
	err = graph.DFS(g, name, func(v string) bool {
		if v != name {
			reached[v] = true
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	var out []string
	for _, s := range r.steps {
		if reached[s.Name] {
			out = append(out, s.Name)
		}
	}
	return out, nil
}

func (r *Registry) graph() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, s := range r.steps {
		if err := g.AddVertex(s.Name); err != nil {
			return nil, errors.Wrapf(ErrDuplicateStep, "%s: %v", s.Name, err)
		}
	}
	for i, s := range r.steps {
		for _, req := range s.Requires {
			j, ok := r.index[req]
			if !ok {
				return nil, errors.Wrapf(ErrUnknownStep, "%s requires %s", s.Name, req)
			}
			if err := g.AddEdge(req, s.Name); err != nil {
				if errors.Is(err, graph.ErrEdgeAlreadyExists) {
					continue
				}
				return nil, errors.Wrapf(err, "%s requires %s", s.Name, req)
			}
			if j >= i {
				return nil, errors.Wrapf(ErrStepOrder, "%s requires %s, which runs later", s.Name, req)
			}
		}
	}
	return g, nil
}
