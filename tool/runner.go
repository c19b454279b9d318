// Package tool runs the external generators a recipe relies on: the
// framework CLI, the database client, the package manager, template
// converters and deployment tooling.
package tool

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/santiagomed/patchwork/pkg/logger"
)

// Result holds the result of a command execution.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunOpts holds optional parameters for command execution.
type RunOpts struct {
	Dir   string            // working directory
	Env   map[string]string // extra environment variables (overlay)
	Stdin io.Reader
}

// Runner executes a command and reports its outcome. A non-zero exit is
// reported through Result.ExitCode with a nil error; the error is kept for
// failures to start or wait for the process.
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts RunOpts) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and captures stdout/stderr. The process is not
// tied to ctx cancellation: a started generator always runs to completion.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (Result, error) {
	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = opts.Stdin
	cmd.Dir = opts.Dir

	if len(opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, err
	}
	return result, nil
}

// DryRunner logs commands instead of running them.
type DryRunner struct {
	logger logger.Logger
}

func NewDryRunner(l logger.Logger) *DryRunner {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &DryRunner{logger: l}
}

func (r *DryRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (Result, error) {
	r.logger.WithField("dir", opts.Dir).Info("dry run: " + CommandLine(name, args))
	return Result{}, nil
}

// CommandLine renders name and args the way a shell user would type them.
func CommandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n'\"") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
