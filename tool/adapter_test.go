package tool

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/santiagomed/patchwork/fs"
	"github.com/santiagomed/patchwork/pkg/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (Result, error) {
	called := m.Called(name, args, opts)
	return called.Get(0).(Result), called.Error(1)
}

func TestInvoke_Success(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "bin/rails", []string{"generate", "rspec:install"}, mock.Anything).
		Return(Result{Stdout: "create spec/spec_helper.rb"}, nil).Once()

	a := NewAdapter(runner, fs.NewMemoryFileSystem(), "/tmp/raft", logger.NewNullLogger())
	out, err := a.Invoke(context.Background(), Invocation{Command: "bin/rails", Args: []string{"generate", "rspec:install"}})

	require.NoError(t, err)
	assert.Equal(t, "create spec/spec_helper.rb", out.Stdout)
	runner.AssertExpectations(t)
}

func TestInvoke_NonZeroExit(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "bundle", []string{"exec", "cap", "install"}, mock.Anything).
		Return(Result{ExitCode: 7, Stderr: "Could not find capistrano"}, nil).Once()

	a := NewAdapter(runner, fs.NewMemoryFileSystem(), "", nil)
	_, err := a.Invoke(context.Background(), Invocation{Command: "bundle", Args: []string{"exec", "cap", "install"}})

	var toolErr *ExternalToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, 7, toolErr.ExitCode)
	assert.Equal(t, "Could not find capistrano", toolErr.Stderr)
	assert.Contains(t, err.Error(), "bundle exec cap install exited with status 7")
}

func TestInvoke_StdinFromTree(t *testing.T) {
	fsys := fs.NewMemoryFileSystem()
	require.NoError(t, afero.WriteFile(fsys.Fs, "tmp/setup.sql", []byte("create user raft;\n"), 0644))

	var (
		stdin string
		dir   string
	)
	runner := new(MockRunner)
	runner.On("Run", "mysql", []string(nil), mock.Anything).Run(func(args mock.Arguments) {
		opts := args.Get(2).(RunOpts)
		data, _ := io.ReadAll(opts.Stdin)
		stdin, dir = string(data), opts.Dir
	}).Return(Result{}, nil).Once()

	a := NewAdapter(runner, fsys, "/srv/raft", nil)
	_, err := a.Invoke(context.Background(), Invocation{Command: "mysql", Stdin: "tmp/setup.sql"})

	require.NoError(t, err)
	runner.AssertExpectations(t)
	assert.Equal(t, "create user raft;\n", stdin)
	assert.Equal(t, "/srv/raft", dir)
}

func TestInvoke_MissingStdinFile(t *testing.T) {
	a := NewAdapter(new(MockRunner), fs.NewMemoryFileSystem(), "", nil)

	_, err := a.Invoke(context.Background(), Invocation{Command: "mysql", Stdin: "tmp/setup.sql"})

	var ioErr *fs.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestOutput_NewestFileUnder(t *testing.T) {
	fsys := fs.NewMemoryFileSystem()
	runner := new(MockRunner)
	runner.On("Run", "bin/rails", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		old := time.Now().Add(-time.Hour)
		_ = afero.WriteFile(fsys.Fs, "db/migrate/20240101_create_users.rb", []byte("old"), 0644)
		_ = fsys.Fs.Chtimes("db/migrate/20240101_create_users.rb", old, old)
		_ = afero.WriteFile(fsys.Fs, "db/migrate/20240102_devise_create_users.rb", []byte("new"), 0644)
	}).Return(Result{}, nil).Once()

	a := NewAdapter(runner, fsys, "", nil)
	out, err := a.Invoke(context.Background(), Invocation{Command: "bin/rails", Args: []string{"generate", "devise", "User"}})
	require.NoError(t, err)

	art, err := out.NewestFileUnder("db/migrate")
	require.NoError(t, err)
	assert.Equal(t, "db/migrate/20240102_devise_create_users.rb", art.Path)
}

func TestExecRunner(t *testing.T) {
	r := NewExecRunner()

	res, err := r.Run(context.Background(), "sh", []string{"-c", "echo out; echo err >&2; exit 3"}, RunOpts{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)

	res, err = r.Run(context.Background(), "sh", []string{"-c", "cat; echo $GREETING"}, RunOpts{
		Stdin: strings.NewReader("piped\n"),
		Env:   map[string]string{"GREETING": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "piped\nhi\n", res.Stdout)

	_, err = r.Run(context.Background(), "no_such_command_patchwork", nil, RunOpts{})
	assert.Error(t, err)
}

func TestExecRunner_IgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewExecRunner().Run(ctx, "sh", []string{"-c", "echo done"}, RunOpts{})

	require.NoError(t, err)
	assert.Equal(t, "done\n", res.Stdout)
}

func TestDryRunner(t *testing.T) {
	rec := logger.NewRecordingLogger()
	res, err := NewDryRunner(rec).Run(context.Background(), "yarn", []string{"add", "bootstrap", "popper.js"}, RunOpts{Dir: "/srv/raft"})

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	require.Len(t, rec.Entries(), 1)
	assert.Equal(t, "dry run: yarn add bootstrap popper.js", rec.Entries()[0].Msg)
	assert.Equal(t, "/srv/raft", rec.Entries()[0].Fields["dir"])
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "rails new . --skip-bundle", CommandLine("rails", []string{"new", ".", "--skip-bundle"}))
	assert.Equal(t, "bin/rails generate controller 'pages home'", CommandLine("bin/rails", []string{"generate", "controller", "pages home"}))
	assert.Equal(t, "mysql < tmp/setup.sql", Invocation{Command: "mysql", Stdin: "tmp/setup.sql"}.String())
}
