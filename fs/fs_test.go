package fs

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryFileSystem(t *testing.T) {
	fs := NewMemoryFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.MemMapFs{}, fs.Fs)
}

func TestNewRooted(t *testing.T) {
	disk := afero.NewMemMapFs()
	require.NoError(t, disk.MkdirAll("/srv/raft", 0755))
	fs := NewRooted(disk, "/srv/raft")
	assert.IsType(t, &afero.BasePathFs{}, fs.Fs)

	require.NoError(t, fs.WriteFile("Gemfile", "gem 'rails'\n"))
	content, err := afero.ReadFile(disk, "/srv/raft/Gemfile")
	require.NoError(t, err)
	assert.Equal(t, "gem 'rails'\n", string(content))
}

func TestNewOverlay_LeavesBaseUntouched(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "config/database.yml", []byte("adapter: sqlite3\n"), 0644))
	fs := NewOverlay(base)

	require.NoError(t, fs.Replace("config/database.yml", "sqlite3", "mysql2"))
	require.NoError(t, fs.Append("config/notes.txt", "hello"))

	content, err := fs.ReadFile("config/database.yml")
	require.NoError(t, err)
	assert.Equal(t, "adapter: mysql2\n", content)

	onDisk, err := afero.ReadFile(base, "config/database.yml")
	require.NoError(t, err)
	assert.Equal(t, "adapter: sqlite3\n", string(onDisk))
	exists, _ := afero.Exists(base, "config/notes.txt")
	assert.False(t, exists)
}

func TestWriteFile(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.Fs.MkdirAll("test", 0755))

	err := fs.WriteFile("test/file.txt", "Hello, World!")
	assert.NoError(t, err)

	content, err := afero.ReadFile(fs.Fs, "test/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(content))

	files, err := fs.FilesUnder("test")
	require.NoError(t, err)
	assert.Equal(t, []string{"test/file.txt"}, files, "no temp files left behind")
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	fs := NewMemoryFileSystem()

	err := fs.WriteFile("missing/file.txt", "x")

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
}

func TestIsDir(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.Fs.MkdirAll("test/dir", 0755)
	assert.NoError(t, err)

	assert.True(t, fs.IsDir("test/dir"))
	assert.False(t, fs.IsDir("test/nonexistent"))
}

func TestReplace_SwitchesAdapter(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, afero.WriteFile(fs.Fs, "config.yml", []byte("default:\n  adapter: sqlite3\n  pool: 5\n"), 0644))

	require.NoError(t, fs.Replace("config.yml", "adapter: sqlite3", "adapter: mysql2"))

	content, err := fs.ReadFile("config.yml")
	require.NoError(t, err)
	assert.Contains(t, content, "adapter: mysql2")
	assert.NotContains(t, content, "sqlite3")
}

func TestReplace_AllAndFirst(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, afero.WriteFile(fs.Fs, "a.txt", []byte("x x x"), 0644))
	require.NoError(t, afero.WriteFile(fs.Fs, "b.txt", []byte("x x x"), 0644))

	require.NoError(t, fs.Replace("a.txt", "x", "y"))
	require.NoError(t, fs.ReplaceFirst("b.txt", "x", "y"))

	a, _ := fs.ReadFile("a.txt")
	b, _ := fs.ReadFile("b.txt")
	assert.Equal(t, "y y y", a)
	assert.Equal(t, "y x x", b)
}

func TestReplace_PatternNotFound(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, afero.WriteFile(fs.Fs, "config.yml", []byte("adapter: postgresql\n"), 0644))

	err := fs.Replace("config.yml", "adapter: sqlite3", "adapter: mysql2")

	assert.ErrorIs(t, err, ErrPatternNotFound)
	content, _ := fs.ReadFile("config.yml")
	assert.Equal(t, "adapter: postgresql\n", content)
}

func TestReplace_MissingFile(t *testing.T) {
	fs := NewMemoryFileSystem()

	err := fs.Replace("nope.yml", "a", "b")

	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestReplaceRegexp(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, afero.WriteFile(fs.Fs, "database.yml", []byte("  pool: 5\n  timeout: 5000\n"), 0644))

	re := regexp.MustCompile(`pool: .*`)
	require.NoError(t, fs.ReplaceRegexp("database.yml", re, "username: raft", false))

	group := regexp.MustCompile(`(?m)timeout: (\d+)$`)
	require.NoError(t, fs.ReplaceRegexp("database.yml", group, "read_timeout: $1", true))

	content, _ := fs.ReadFile("database.yml")
	assert.Equal(t, "  username: raft\n  read_timeout: 5000\n", content)

	err := fs.ReplaceRegexp("database.yml", re, "x", false)
	assert.ErrorIs(t, err, ErrPatternNotFound)
}

func TestInsertBeforeAndAfter(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, afero.WriteFile(fs.Fs, "user.rb", []byte("class User < ApplicationRecord\n  devise :validatable\nend\n"), 0644))

	require.NoError(t, fs.InsertAfter("user.rb", ":validatable", ", :confirmable"))
	require.NoError(t, fs.InsertBefore("user.rb", "end", "  has_many :authorizations\n"))

	content, _ := fs.ReadFile("user.rb")
	assert.Equal(t, "class User < ApplicationRecord\n  devise :validatable, :confirmable\n  has_many :authorizations\nend\n", content)
}

func TestInsert_LastOccurrence(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, afero.WriteFile(fs.Fs, "a.rb", []byte("def a\nend\nend\n"), 0644))

	require.NoError(t, fs.Insert("a.rb", "end", "# tail\n", false, Last))

	content, _ := fs.ReadFile("a.rb")
	assert.Equal(t, "def a\nend\n# tail\nend\n", content)
}

func TestInsert_AnchorNotFound(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, afero.WriteFile(fs.Fs, "routes.rb", []byte("Rails.application.routes.draw do\nend\n"), 0644))

	assert.ErrorIs(t, fs.InsertAfter("routes.rb", "devise_for :users", "x"), ErrAnchorNotFound)
	assert.ErrorIs(t, fs.InsertBefore("routes.rb", "devise_for :users", "x"), ErrAnchorNotFound)
}

func TestAppend_CreatesThenAppends(t *testing.T) {
	fs := NewMemoryFileSystem()

	require.NoError(t, fs.Append("notes.txt", "hello"))
	content, err := fs.ReadFile("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	require.NoError(t, fs.Append("notes.txt", "hello"))
	content, err = fs.ReadFile("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hellohello", content)
}

func TestAppend_MissingDirectory(t *testing.T) {
	fs := NewMemoryFileSystem()

	err := fs.Append("app/javascript/packs/stylesheets/application.scss", "x")

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "append", ioErr.Op)
	assert.False(t, fs.Exists("app/javascript/packs/stylesheets/application.scss"))
}

func TestEnsureFile(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.Fs.MkdirAll("app/views/layouts", 0755))

	created, err := fs.EnsureFile("app/views/layouts/_navbar.html.slim")
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, fs.Append("app/views/layouts/_navbar.html.slim", "nav"))
	created, err = fs.EnsureFile("app/views/layouts/_navbar.html.slim")
	require.NoError(t, err)
	assert.False(t, created)

	content, _ := fs.ReadFile("app/views/layouts/_navbar.html.slim")
	assert.Equal(t, "nav", content, "existing file is untouched")

	_, err = fs.EnsureFile("missing/dir/file")
	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestEnsureDir(t *testing.T) {
	fs := NewMemoryFileSystem()

	created, err := fs.EnsureDir("app/javascript/packs/stylesheets")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = fs.EnsureDir("app/javascript/packs/stylesheets")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestNewestFileUnder(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.Fs.MkdirAll("db/migrate", 0755))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	files := map[string]time.Time{
		"db/migrate/001_create_users.rb":          base,
		"db/migrate/002_devise_create_users.rb":   base.Add(2 * time.Second),
		"db/migrate/003_create_authorizations.rb": base.Add(time.Second),
	}
	for name, mt := range files {
		require.NoError(t, afero.WriteFile(fs.Fs, name, []byte("class M; end"), 0644))
		require.NoError(t, fs.Fs.Chtimes(name, mt, mt))
	}

	art, err := fs.NewestFileUnder("db/migrate")
	require.NoError(t, err)
	assert.Equal(t, "db/migrate/002_devise_create_users.rb", art.Path)
	assert.False(t, art.Ambiguous)
}

func TestNewestFileUnder_TieIsFlagged(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.Fs.MkdirAll("db/migrate", 0755))
	mt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, name := range []string{"db/migrate/a.rb", "db/migrate/b.rb"} {
		require.NoError(t, afero.WriteFile(fs.Fs, name, []byte("x"), 0644))
		require.NoError(t, fs.Fs.Chtimes(name, mt, mt))
	}

	art, err := fs.NewestFileUnder("db/migrate")
	require.NoError(t, err)
	assert.True(t, art.Ambiguous)
	assert.ElementsMatch(t, []string{"db/migrate/a.rb", "db/migrate/b.rb"}, art.Candidates)
	assert.Contains(t, art.Candidates, art.Path)
}

func TestNewestFileUnder_Miss(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.Fs.MkdirAll("db/migrate", 0755))

	_, err := fs.NewestFileUnder("db/migrate")
	assert.ErrorIs(t, err, ErrAmbiguousArtifact)

	_, err = fs.NewestFileUnder("db/nothing")
	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestGlobAndFilesUnder(t *testing.T) {
	fs := NewMemoryFileSystem()
	for _, name := range []string{
		"app/views/devise/sessions/new.html.slim",
		"app/views/devise/shared/_links.html.slim",
		"app/views/posts/index.html.slim",
	} {
		require.NoError(t, afero.WriteFile(fs.Fs, name, []byte("x"), 0644))
	}

	under, err := fs.FilesUnder("app/views/devise")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"app/views/devise/sessions/new.html.slim",
		"app/views/devise/shared/_links.html.slim",
	}, under)

	globbed, err := fs.Glob("app/views/*/index.html.slim")
	require.NoError(t, err)
	assert.Equal(t, []string{"app/views/posts/index.html.slim"}, globbed)
}
