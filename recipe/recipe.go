// Package recipe loads declarative step lists from YAML and turns them into
// a core.Registry.
package recipe

import (
	"bytes"
	"embed"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/patch"
	"github.com/santiagomed/patchwork/tool"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed recipes/*.yaml
var bundled embed.FS

// Recipe is the parsed form of a recipe file.
type Recipe struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Requires is a semver range the running patchwork version must satisfy.
	Requires string            `yaml:"requires,omitempty"`
	Vars     map[string]string `yaml:"vars,omitempty"`
	Steps    []StepSpec        `yaml:"steps"`
}

type StepSpec struct {
	Name            string       `yaml:"name"`
	Description     string       `yaml:"description,omitempty"`
	Requires        []string     `yaml:"requires,omitempty"`
	Expects         []string     `yaml:"expects,omitempty"`
	ContinueOnError bool         `yaml:"continue_on_error,omitempty"`
	Actions         []ActionSpec `yaml:"actions"`
}

// ActionSpec holds exactly one of Run, Patch or Write.
type ActionSpec struct {
	Run   *tool.Invocation `yaml:"run,omitempty"`
	Patch *patch.Operation `yaml:"patch,omitempty"`
	Write *WriteSpec       `yaml:"write,omitempty"`
}

// WriteSpec replaces a file's content wholesale.
type WriteSpec struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

func (a ActionSpec) kind() (string, error) {
	var kinds []string
	if a.Run != nil {
		kinds = append(kinds, "run")
	}
	if a.Patch != nil {
		kinds = append(kinds, "patch")
	}
	if a.Write != nil {
		kinds = append(kinds, "write")
	}
	if len(kinds) != 1 {
		return "", errors.Errorf("action needs exactly one of run, patch, write (got %d)", len(kinds))
	}
	return kinds[0], nil
}

// Parse decodes a recipe. Unknown keys are rejected.
func Parse(r io.Reader) (*Recipe, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var rec Recipe
	if err := dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("recipe is empty")
		}
		return nil, errors.Wrap(err, "decode recipe")
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadFile reads a recipe from fsys.
func LoadFile(fsys afero.Fs, name string) (*Recipe, error) {
	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read recipe %s", name)
	}
	rec, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return rec, nil
}

// Bundled returns a recipe shipped inside the binary.
func Bundled(name string) (*Recipe, error) {
	data, err := bundled.ReadFile(path.Join("recipes", name+".yaml"))
	if err != nil {
		return nil, errors.Errorf("no bundled recipe %q (have %s)", name, strings.Join(List(), ", "))
	}
	return Parse(bytes.NewReader(data))
}

// List names the bundled recipes.
func List() []string {
	entries, _ := bundled.ReadDir("recipes")
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Find loads ref as a file from fsys when it exists there, and as a
// bundled recipe name otherwise.
func Find(fsys afero.Fs, ref string) (*Recipe, error) {
	if ok, _ := afero.Exists(fsys, ref); ok {
		return LoadFile(fsys, ref)
	}
	return Bundled(ref)
}

// CheckVersion reports whether version satisfies the recipe's requires
// range. A recipe without one accepts any version.
func (r *Recipe) CheckVersion(version string) error {
	if r.Requires == "" {
		return nil
	}
	rng, err := semver.ParseRange(r.Requires)
	if err != nil {
		return errors.Wrapf(err, "recipe %s: invalid requires %q", r.Name, r.Requires)
	}
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return errors.Wrapf(err, "invalid version %q", version)
	}
	if !rng(v) {
		return errors.Errorf("recipe %s requires patchwork %s, this is %s", r.Name, r.Requires, v)
	}
	return nil
}

func (r *Recipe) validate() error {
	if r.Name == "" {
		return errors.New("recipe has no name")
	}
	if len(r.Steps) == 0 {
		return errors.Errorf("recipe %s has no steps", r.Name)
	}
	for i, s := range r.Steps {
		if s.Name == "" {
			return errors.Errorf("step %d has no name", i+1)
		}
		for j, a := range s.Actions {
			if _, err := a.kind(); err != nil {
				return errors.Wrapf(err, "step %s action %d", s.Name, j+1)
			}
		}
	}
	return nil
}
