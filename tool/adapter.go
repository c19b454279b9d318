package tool

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/fs"
	"github.com/santiagomed/patchwork/pkg/logger"
)

// Invocation is one call out to an external tool.
type Invocation struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	// Stdin names a file in the project tree fed to the command's stdin.
	Stdin string `yaml:"stdin,omitempty"`
}

func (inv Invocation) String() string {
	s := CommandLine(inv.Command, inv.Args)
	if inv.Stdin != "" {
		s += " < " + inv.Stdin
	}
	return s
}

// ExternalToolError reports a command that exited non-zero.
type ExternalToolError struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", CommandLine(e.Command, e.Args), e.ExitCode)
	if out := strings.TrimSpace(e.Stderr); out != "" {
		msg += ": " + lastLines(out, 5)
	} else if out := strings.TrimSpace(e.Stdout); out != "" {
		msg += ": " + lastLines(out, 5)
	}
	return msg
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Output is a finished invocation. It also gives access to what the tool
// left in the project tree.
type Output struct {
	Result
	Duration time.Duration
	fs       *fs.FileSystem
}

// NewestFileUnder finds the most recently modified file under dir, e.g.
// the migration a generator just wrote.
func (o *Output) NewestFileUnder(dir string) (fs.Artifact, error) {
	return o.fs.NewestFileUnder(dir)
}

// Adapter runs invocations inside a project directory.
type Adapter struct {
	runner Runner
	fs     *fs.FileSystem
	dir    string
	logger logger.Logger
}

func NewAdapter(runner Runner, fsys *fs.FileSystem, dir string, l logger.Logger) *Adapter {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Adapter{runner: runner, fs: fsys, dir: dir, logger: l}
}

// Invoke runs inv and returns an *ExternalToolError when it exits non-zero.
func (a *Adapter) Invoke(ctx context.Context, inv Invocation) (*Output, error) {
	if inv.Command == "" {
		return nil, errors.New("invocation has no command")
	}

	opts := RunOpts{Dir: a.dir, Env: inv.Env}
	if inv.Stdin != "" {
		content, err := a.fs.ReadFile(inv.Stdin)
		if err != nil {
			return nil, errors.Wrap(err, "stdin")
		}
		opts.Stdin = bytes.NewBufferString(content)
	}

	log := a.logger.WithField("command", inv.String())
	log.Debug("Running external tool")
	start := time.Now()
	res, err := a.runner.Run(ctx, inv.Command, inv.Args, opts)
	out := &Output{Result: res, Duration: time.Since(start), fs: a.fs}
	if err != nil {
		log.Error(fmt.Sprintf("Failed to start external tool: %v", err))
		return out, errors.Wrapf(err, "run %s", inv.Command)
	}
	if res.ExitCode != 0 {
		log.Error(fmt.Sprintf("External tool exited with status %d", res.ExitCode))
		return out, &ExternalToolError{
			Command:  inv.Command,
			Args:     inv.Args,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	log.Debug(fmt.Sprintf("External tool finished in %v", out.Duration))
	return out, nil
}
