package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/config"
	pwlogger "github.com/santiagomed/patchwork/logger"
	"github.com/santiagomed/patchwork/recipe"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const dryRunNote = "dry run: commands are logged to ~/.patchwork/patchwork.log, nothing is written; " +
	"steps that need generator output will fail"

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

var (
	v          = config.New(nil)
	osfs       = afero.NewOsFs()
	configPath string
	varFlags   []string
)

var rootCmd = &cobra.Command{
	Use:   "patchwork",
	Short: "Patchwork applies a recipe of generators and text patches to a project",
	Long: `Patchwork runs a declarative recipe against a project directory: external
generators scaffold the project, then idempotent text patches wire it up.
The bundled rails-devise recipe builds a Rails app with Devise, OmniAuth,
MySQL, Slim, Bootstrap and Capistrano.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply the recipe to the project directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pwlogger.InitLogger(cfg.LogLevel)
		l := pwlogger.GetLogger()

		s, err := newSession(osfs, cfg, l)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if cfg.DryRun {
			fmt.Fprintln(out, faintStyle.Render(dryRunNote))
		}

		var res RunResult
		if cfg.Plain {
			res, err = runPlain(cmd.Context(), s, out)
		} else {
			res, err = runInteractive(cmd.Context(), s)
		}
		if err != nil {
			return err
		}
		return finish(out, res)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the steps the recipe would run, with vars filled in",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rec, vars, err := loadRecipe(osfs, cfg)
		if err != nil {
			return err
		}
		rendered, err := rec.Render(vars)
		if err != nil {
			return err
		}
		return printPlan(cmd.OutOrStdout(), rendered.Markdown(), cfg.Plain)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default patchwork.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("path")
		if err != nil {
			return err
		}
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return errors.Wrap(err, "unable to get home directory")
			}
			path = filepath.Join(home, ".patchwork", config.FileName)
		}
		created, err := config.CreateDefaultConfig(osfs, path)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file already exists at: %s\n", nameStyle.Render(path))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default configuration file created at: %s\n", nameStyle.Render(path))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the patchwork version and bundled recipes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "patchwork %s\n", Version)
		for _, name := range recipe.List() {
			fmt.Fprintf(cmd.OutOrStdout(), "  recipe %s\n", name)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to a patchwork.yaml (default ./patchwork.yaml or ~/.patchwork/patchwork.yaml)")
	pf.StringP("project-dir", "C", ".", "Directory the project is generated in")
	pf.StringP("recipe", "r", "rails-devise", "Bundled recipe name or path to a recipe file")
	pf.String("policy", "abort", "What a failing step does to the run: abort or continue")
	pf.Bool("journal", true, "Skip steps a previous run already finished")
	pf.Bool("dry-run", false, "Log external commands instead of running them and keep edits in memory.\n"+
		"Generators leave nothing behind, so on an empty directory the run stops at the first step expecting their files")
	pf.Bool("plain", false, "Plain line output instead of the interactive view")
	pf.String("log-level", "info", "Log level for ~/.patchwork/patchwork.log")
	pf.StringArrayVar(&varFlags, "var", nil, "Set a recipe variable, key=value (repeatable)")

	for key, flag := range map[string]string{
		"project_dir": "project-dir",
		"recipe":      "recipe",
		"policy":      "policy",
		"journal":     "journal",
		"dry_run":     "dry-run",
		"plain":       "plain",
		"log_level":   "log-level",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	initCmd.Flags().String("path", "", "Where to write the file (default ~/.patchwork/patchwork.yaml)")
}

// loadConfig merges defaults, config file, environment and flags, with
// --var pairs layered over the file's vars.
func loadConfig() (*config.Config, error) {
	home, _ := os.UserHomeDir()
	cfg, err := config.Load(v, configPath, home)
	if err != nil {
		return nil, err
	}
	overrides, err := recipe.ParseAssignments(varFlags)
	if err != nil {
		return nil, err
	}
	if cfg.Vars == nil {
		cfg.Vars = map[string]string{}
	}
	for k, val := range overrides {
		cfg.Vars[k] = val
	}
	return cfg, nil
}

func runPlain(ctx context.Context, s *session, out io.Writer) (RunResult, error) {
	p, err := s.pipeline(NewPlainStepPublisher(out, s.registry.Len()))
	if err != nil {
		return RunResult{}, err
	}
	fmt.Fprintf(out, "Applying %s to %s\n", s.recipe.Name, s.tree.Root)
	report, err := p.Execute(ctx, s.tree)
	return RunResult{Report: report, Err: err}, nil
}

func runInteractive(ctx context.Context, s *session) (RunResult, error) {
	l := s.tree.Logger
	pub := NewCliStepPublisher(l)
	p, err := s.pipeline(pub)
	if err != nil {
		return RunResult{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	engine := NewEngine(l)
	engine.Start(ctx)
	defer engine.Shutdown(5 * time.Second)

	resultChan := engine.AddRequest(p, s.tree)
	model := newRunModel(s.recipe.Name, s.registry.GetSteps(), pub, resultChan, cancel, l)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		cancel()
		return RunResult{}, errors.Wrap(err, "terminal view failed")
	}
	m, ok := final.(runModel)
	if !ok || m.result == nil {
		return RunResult{}, errors.New("run ended without a result")
	}
	return *m.result, nil
}

// finish prints the outcome and turns a failed run into errRunFailed.
func finish(out io.Writer, res RunResult) error {
	if res.Report != nil {
		fmt.Fprint(out, res.Report.Summary())
	}
	if res.Err == nil {
		fmt.Fprintf(out, "%s Project ready\n", checkStyle.Render("✓"))
		return nil
	}
	fmt.Fprint(out, "\n"+FailureReport(res.Report, res.Err))
	return errRunFailed
}

func printPlan(out io.Writer, md string, plain bool) error {
	if plain {
		_, err := fmt.Fprint(out, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	rendered, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

// Execute runs the root command. SIGINT and SIGTERM cancel the run before
// its next step.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if err != errRunFailed {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		}
		os.Exit(1)
	}
}
