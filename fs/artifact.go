package fs

import (
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Artifact is the result of a newest-file lookup.
type Artifact struct {
	Path    string
	ModTime time.Time
	// Ambiguous is set when several files share the newest modification
	// time. Path is then one of Candidates, and which one is unspecified.
	Ambiguous  bool
	Candidates []string
}

// NewestFileUnder returns the regular file under dir with the greatest
// modification time. An empty dir yields ErrAmbiguousArtifact.
func (fs *FileSystem) NewestFileUnder(dir string) (Artifact, error) {
	if !fs.IsDir(dir) {
		return Artifact{}, &IOError{Op: "newest", Path: dir, Err: os.ErrNotExist}
	}

	var best Artifact
	err := afero.Walk(fs.Fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		mt := info.ModTime()
		switch {
		case best.Path == "" || mt.After(best.ModTime):
			best = Artifact{Path: path, ModTime: mt, Candidates: []string{path}}
		case mt.Equal(best.ModTime):
			best.Candidates = append(best.Candidates, path)
			best.Ambiguous = true
		}
		return nil
	})
	if err != nil {
		return Artifact{}, &IOError{Op: "newest", Path: dir, Err: err}
	}
	if best.Path == "" {
		return Artifact{}, errors.Wrapf(ErrAmbiguousArtifact, "no files under %s", dir)
	}
	sort.Strings(best.Candidates)
	return best, nil
}
