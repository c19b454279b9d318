package cli

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/config"
	"github.com/santiagomed/patchwork/core"
	"github.com/santiagomed/patchwork/fs"
	"github.com/santiagomed/patchwork/pkg/logger"
	"github.com/santiagomed/patchwork/recipe"
	"github.com/santiagomed/patchwork/tool"
	"github.com/spf13/afero"
)

// session is everything one run needs, resolved from the configuration.
type session struct {
	recipe   *recipe.Recipe
	vars     recipe.Vars
	registry *core.Registry
	tree     *core.ProjectTree
	policy   core.Policy
	journal  core.Journal
}

// loadRecipe finds the configured recipe, checks it accepts this version
// and resolves its vars.
func loadRecipe(osfs afero.Fs, cfg *config.Config) (*recipe.Recipe, recipe.Vars, error) {
	rec, err := recipe.Find(osfs, cfg.Recipe)
	if err != nil {
		return nil, nil, err
	}
	if err := rec.CheckVersion(Version); err != nil {
		return nil, nil, err
	}
	vars, err := rec.ResolveVars(cfg.Vars)
	if err != nil {
		return nil, nil, err
	}
	return rec, vars, nil
}

// newSession prepares the project tree on osfs. In dry-run mode commands
// are only logged and file edits land in memory.
func newSession(osfs afero.Fs, cfg *config.Config, l logger.Logger) (*session, error) {
	if l == nil {
		l = logger.NewNullLogger()
	}
	rec, vars, err := loadRecipe(osfs, cfg)
	if err != nil {
		return nil, err
	}
	registry, err := rec.Build(vars)
	if err != nil {
		return nil, err
	}
	policy, err := core.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.ProjectDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve project dir")
	}

	var (
		fsys    *fs.FileSystem
		runner  tool.Runner
		journal core.Journal = core.NopJournal{}
	)
	if cfg.DryRun {
		fsys = fs.NewOverlay(afero.NewBasePathFs(osfs, root))
		runner = tool.NewDryRunner(l)
	} else {
		if err := osfs.MkdirAll(root, 0755); err != nil {
			return nil, errors.Wrap(err, "create project dir")
		}
		fsys = fs.NewRooted(osfs, root)
		runner = tool.NewExecRunner()
		if cfg.Journal {
			journal = core.NewFileJournal(fsys)
		}
	}

	l = l.WithField("project_dir", root)
	adapter := tool.NewAdapter(runner, fsys, root, l)
	return &session{
		recipe:   rec,
		vars:     vars,
		registry: registry,
		tree:     core.NewProjectTree(root, fsys, adapter, l),
		policy:   policy,
		journal:  journal,
	}, nil
}

func (s *session) pipeline(pub core.StepPublisher) (*core.Pipeline, error) {
	return core.NewPipeline(s.recipe.Name, s.registry,
		core.WithPolicy(s.policy),
		core.WithJournal(s.journal),
		core.WithPublisher(pub),
	)
}
