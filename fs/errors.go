package fs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrPatternNotFound is returned when a replace target is absent from a file.
	ErrPatternNotFound = errors.New("pattern not found")
	// ErrAnchorNotFound is returned when an insertion anchor is absent from a file.
	ErrAnchorNotFound = errors.New("anchor not found")
	// ErrAmbiguousArtifact is returned when an artifact lookup finds nothing,
	// or cannot pick a single winner.
	ErrAmbiguousArtifact = errors.New("ambiguous artifact")
)

// IOError reports a filesystem failure: missing directory, missing file,
// permissions.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
