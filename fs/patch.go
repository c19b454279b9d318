package fs

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
)

// The primitives below locate their edit by literal text or by pattern,
// never by parsing the file. An earlier edit that moves or rewrites an
// anchor breaks every later edit relying on it.

// Rewrite reads path, passes its content through fn and writes the result
// back when it changed. It reports whether the file was written.
func (fs *FileSystem) Rewrite(path string, fn func(content string) (string, error)) (bool, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return false, err
	}
	updated, err := fn(content)
	if err != nil {
		return false, err
	}
	if updated == content {
		return false, nil
	}
	return true, fs.WriteFile(path, updated)
}

// Replace replaces every occurrence of pattern in path.
func (fs *FileSystem) Replace(path, pattern, replacement string) error {
	return fs.replace(path, pattern, replacement, false)
}

// ReplaceFirst replaces the first occurrence of pattern in path.
func (fs *FileSystem) ReplaceFirst(path, pattern, replacement string) error {
	return fs.replace(path, pattern, replacement, true)
}

func (fs *FileSystem) replace(path, pattern, replacement string, first bool) error {
	_, err := fs.Rewrite(path, func(content string) (string, error) {
		return ReplaceText(content, pattern, replacement, first)
	})
	return errors.Wrapf(err, "replace %q in %s", pattern, path)
}

// ReplaceRegexp replaces matches of re in path.
func (fs *FileSystem) ReplaceRegexp(path string, re *regexp.Regexp, replacement string, first bool) error {
	_, err := fs.Rewrite(path, func(content string) (string, error) {
		return ReplaceRegexpText(content, re, replacement, first)
	})
	return errors.Wrapf(err, "replace /%s/ in %s", re, path)
}

// InsertBefore inserts text immediately before the first anchor in path.
func (fs *FileSystem) InsertBefore(path, anchor, text string) error {
	return fs.Insert(path, anchor, text, false, First)
}

// InsertAfter inserts text immediately after the first anchor in path.
func (fs *FileSystem) InsertAfter(path, anchor, text string) error {
	return fs.Insert(path, anchor, text, true, First)
}

// Insert inserts text next to the selected occurrence of anchor.
func (fs *FileSystem) Insert(path, anchor, text string, after bool, occ Occurrence) error {
	_, err := fs.Rewrite(path, func(content string) (string, error) {
		return InsertText(content, anchor, text, after, occ)
	})
	return errors.Wrapf(err, "insert at %q in %s", anchor, path)
}

// Append adds text at the end of path, creating the file if needed. The
// parent directory must exist. Appending the same text twice writes it
// twice.
func (fs *FileSystem) Append(path, text string) error {
	if err := fs.requireDir(filepath.Dir(path), "append", path); err != nil {
		return err
	}
	f, err := fs.Fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &IOError{Op: "append", Path: path, Err: err}
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return &IOError{Op: "append", Path: path, Err: err}
	}
	return nil
}

// EnsureFile creates an empty file when path does not exist. The parent
// directory must exist. It reports whether the file was created.
func (fs *FileSystem) EnsureFile(path string) (bool, error) {
	if info, err := fs.Fs.Stat(path); err == nil {
		if info.IsDir() {
			return false, &IOError{Op: "touch", Path: path, Err: errors.New("is a directory")}
		}
		return false, nil
	}
	if err := fs.requireDir(filepath.Dir(path), "touch", path); err != nil {
		return false, err
	}
	f, err := fs.Fs.Create(path)
	if err != nil {
		return false, &IOError{Op: "touch", Path: path, Err: err}
	}
	return true, f.Close()
}

// EnsureDir creates dir and any missing parents. It reports whether
// anything was created.
func (fs *FileSystem) EnsureDir(dir string) (bool, error) {
	if fs.IsDir(dir) {
		return false, nil
	}
	if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
		return false, &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return true, nil
}
