// Package patch turns the text primitives of package fs into declarative,
// re-runnable operations. An operation that finds its edit already in
// place reports Skipped instead of editing the file a second time.
package patch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/fs"
)

type Mode string

const (
	ModeReplace      Mode = "replace"
	ModeInsertBefore Mode = "insert_before"
	ModeInsertAfter  Mode = "insert_after"
	ModeAppend       Mode = "append"
	ModeCreate       Mode = "create"
	ModeMkdir        Mode = "mkdir"
)

// Target says which files an operation edits. Exactly one field is set.
type Target struct {
	Path        string `yaml:"path,omitempty"`
	Glob        string `yaml:"glob,omitempty"`
	Under       string `yaml:"under,omitempty"`
	NewestUnder string `yaml:"newest_under,omitempty"`
}

// Operation is one text mutation.
type Operation struct {
	Target `yaml:",inline"`

	Mode    Mode   `yaml:"mode"`
	Pattern string `yaml:"pattern,omitempty"`
	Anchor  string `yaml:"anchor,omitempty"`
	Text    string `yaml:"text,omitempty"`

	// Regexp makes Pattern a Go regular expression.
	Regexp bool `yaml:"regexp,omitempty"`
	// First limits a replace to the first match.
	First bool `yaml:"first,omitempty"`
	// Occurrence picks the anchor match for inserts: first (default) or last.
	Occurrence string `yaml:"occurrence,omitempty"`
	// SkipIf skips the operation for any file already containing this text.
	SkipIf string `yaml:"skip_if,omitempty"`
	// Optional turns a missing pattern or anchor into a skip. Meant for
	// operations fanned out over many files where only some match.
	Optional bool `yaml:"optional,omitempty"`
}

type Outcome int

const (
	Applied Outcome = iota
	Skipped
)

func (o Outcome) String() string {
	if o == Skipped {
		return "skipped"
	}
	return "applied"
}

// Result describes what an operation did to one file.
type Result struct {
	Path    string
	Outcome Outcome
	Reason  string
}

// Validate checks that the operation is well formed.
func (op Operation) Validate() error {
	set := 0
	for _, s := range []string{op.Path, op.Glob, op.Under, op.NewestUnder} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return errors.Errorf("operation needs exactly one of path, glob, under, newest_under (got %d)", set)
	}

	switch op.Mode {
	case ModeReplace:
		if op.Pattern == "" {
			return errors.New("replace needs a pattern")
		}
		if op.Regexp {
			if _, err := regexp.Compile(op.Pattern); err != nil {
				return errors.Wrap(err, "invalid pattern")
			}
		}
	case ModeInsertBefore, ModeInsertAfter:
		if op.Anchor == "" {
			return errors.Errorf("%s needs an anchor", op.Mode)
		}
		if op.Text == "" {
			return errors.Errorf("%s needs text", op.Mode)
		}
		if _, err := fs.ParseOccurrence(op.Occurrence); err != nil {
			return err
		}
	case ModeAppend:
		if op.Text == "" {
			return errors.New("append needs text")
		}
	case ModeCreate, ModeMkdir:
		if op.Path == "" {
			return errors.Errorf("%s needs a path", op.Mode)
		}
	default:
		return errors.Errorf("unknown mode %q", op.Mode)
	}
	return nil
}

// String renders a short human description, used in logs and plans.
func (op Operation) String() string {
	target := op.Path
	switch {
	case op.Glob != "":
		target = "glob " + op.Glob
	case op.Under != "":
		target = "files under " + op.Under
	case op.NewestUnder != "":
		target = "newest file under " + op.NewestUnder
	}
	switch op.Mode {
	case ModeReplace:
		return fmt.Sprintf("replace %s in %s", quote(op.Pattern), target)
	case ModeInsertBefore:
		return fmt.Sprintf("insert before %s in %s", quote(op.Anchor), target)
	case ModeInsertAfter:
		return fmt.Sprintf("insert after %s in %s", quote(op.Anchor), target)
	case ModeAppend:
		return "append to " + target
	case ModeCreate:
		return "create " + target
	case ModeMkdir:
		return "mkdir " + target
	}
	return string(op.Mode) + " " + target
}

func quote(s string) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return fmt.Sprintf("%q", s)
}
