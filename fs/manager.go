package fs

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileSystem wraps the Afero Fs interface. Every path handed to it is
// relative to the project root.
type FileSystem struct {
	Fs afero.Fs
}

// NewMemoryFileSystem creates a new in-memory file system
func NewMemoryFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewMemMapFs(),
	}
}

// NewRooted creates a file system rooted at dir on fsys.
func NewRooted(fsys afero.Fs, dir string) *FileSystem {
	return &FileSystem{
		Fs: afero.NewBasePathFs(fsys, dir),
	}
}

// NewOverlay layers an in-memory scratch area over base. Reads fall
// through to base; writes stay in memory and base is never modified.
func NewOverlay(base afero.Fs) *FileSystem {
	return &FileSystem{
		Fs: afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(base), afero.NewMemMapFs()),
	}
}

// ReadFile returns the content of path.
func (fs *FileSystem) ReadFile(path string) (string, error) {
	data, err := afero.ReadFile(fs.Fs, path)
	if err != nil {
		return "", &IOError{Op: "read", Path: path, Err: err}
	}
	return string(data), nil
}

// WriteFile creates a new file with the given content or overwrites an existing file with the content.
// The content lands through a temp file and a rename, so a crash never leaves
// a half-written file behind.
func (fs *FileSystem) WriteFile(path string, content string) error {
	dir := filepath.Dir(path)
	if err := fs.requireDir(dir, "write", path); err != nil {
		return err
	}

	perm := os.FileMode(0644)
	if info, err := fs.Fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := afero.TempFile(fs.Fs, dir, ".patchwork-tmp-*")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			fs.Fs.Remove(tmpName)
		}
	}()

	if _, err := io.WriteString(tmp, content); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := fs.Fs.Chmod(tmpName, perm); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := fs.Fs.Rename(tmpName, path); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}

	ok = true
	return nil
}

// Exists reports whether path exists.
func (fs *FileSystem) Exists(path string) bool {
	ok, err := afero.Exists(fs.Fs, path)
	return err == nil && ok
}

// IsDir checks if a path is a directory
func (fs *FileSystem) IsDir(path string) bool {
	info, err := fs.Fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Glob returns the regular files matching pattern, sorted.
func (fs *FileSystem) Glob(pattern string) ([]string, error) {
	matches, err := afero.Glob(fs.Fs, pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "error matching %s", pattern)
	}
	files := matches[:0]
	for _, m := range matches {
		if !fs.IsDir(m) {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// FilesUnder lists every regular file below dir, recursively, sorted.
func (fs *FileSystem) FilesUnder(dir string) ([]string, error) {
	if !fs.IsDir(dir) {
		return nil, &IOError{Op: "walk", Path: dir, Err: os.ErrNotExist}
	}
	var files []string
	err := afero.Walk(fs.Fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &IOError{Op: "walk", Path: dir, Err: err}
	}
	sort.Strings(files)
	return files, nil
}

// Snapshot maps every regular file path to its content.
func (fs *FileSystem) Snapshot() (map[string]string, error) {
	snap := make(map[string]string)
	err := afero.Walk(fs.Fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		data, err := afero.ReadFile(fs.Fs, path)
		if err != nil {
			return err
		}
		snap[filepath.ToSlash(path)] = string(data)
		return nil
	})
	return snap, err
}

func (fs *FileSystem) requireDir(dir, op, path string) error {
	if dir == "." || dir == "" || dir == string(filepath.Separator) {
		return nil
	}
	info, err := fs.Fs.Stat(dir)
	if err != nil {
		return &IOError{Op: op, Path: path, Err: errors.Wrapf(err, "directory %s", dir)}
	}
	if !info.IsDir() {
		return &IOError{Op: op, Path: path, Err: errors.Errorf("%s is not a directory", dir)}
	}
	return nil
}
