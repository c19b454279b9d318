package patch

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/santiagomed/patchwork/fs"
)

// Resolve expands the operation target into concrete paths. Glob, Under
// and NewestUnder targets that match nothing yield fs.ErrAmbiguousArtifact,
// as does a newest-file lookup that ties.
func (op Operation) Resolve(fsys *fs.FileSystem) ([]string, error) {
	switch {
	case op.Path != "":
		return []string{op.Path}, nil
	case op.Glob != "":
		files, err := fsys.Glob(op.Glob)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, errors.Wrapf(fs.ErrAmbiguousArtifact, "no files match %s", op.Glob)
		}
		return files, nil
	case op.Under != "":
		files, err := fsys.FilesUnder(op.Under)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, errors.Wrapf(fs.ErrAmbiguousArtifact, "no files under %s", op.Under)
		}
		return files, nil
	case op.NewestUnder != "":
		art, err := fsys.NewestFileUnder(op.NewestUnder)
		if err != nil {
			return nil, err
		}
		if art.Ambiguous {
			return nil, errors.Wrapf(fs.ErrAmbiguousArtifact, "newest file under %s is one of %s",
				op.NewestUnder, strings.Join(art.Candidates, ", "))
		}
		return []string{art.Path}, nil
	}
	return nil, errors.New("operation has no target")
}

// Apply runs the operation against every resolved target. It stops at the
// first failing file; earlier files keep their edits.
func (op Operation) Apply(fsys *fs.FileSystem) ([]Result, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	paths, err := op.Resolve(fsys)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		res, err := op.applyOne(fsys, path)
		if err != nil {
			return results, errors.Wrap(err, op.String())
		}
		results = append(results, res)
	}
	return results, nil
}

func (op Operation) applyOne(fsys *fs.FileSystem, path string) (Result, error) {
	switch op.Mode {
	case ModeMkdir:
		created, err := fsys.EnsureDir(path)
		if err != nil {
			return Result{}, err
		}
		if !created {
			return skipped(path, "directory exists"), nil
		}
		return applied(path), nil
	case ModeCreate:
		created, err := fsys.EnsureFile(path)
		if err != nil {
			return Result{}, err
		}
		if !created {
			return skipped(path, "file exists"), nil
		}
		if op.Text != "" {
			if err := fsys.WriteFile(path, op.Text); err != nil {
				return Result{}, err
			}
		}
		return applied(path), nil
	case ModeAppend:
		if fsys.Exists(path) {
			content, err := fsys.ReadFile(path)
			if err != nil {
				return Result{}, err
			}
			if reason, ok := op.guarded(content); ok {
				return skipped(path, reason), nil
			}
			if strings.Contains(content, op.Text) {
				return skipped(path, "text already present"), nil
			}
		}
		if err := fsys.Append(path, op.Text); err != nil {
			return Result{}, err
		}
		return applied(path), nil
	}

	var reason string
	changed, err := fsys.Rewrite(path, func(content string) (string, error) {
		if r, ok := op.guarded(content); ok {
			reason = r
			return content, nil
		}
		var (
			out string
			err error
		)
		switch op.Mode {
		case ModeReplace:
			out, reason, err = op.replace(content)
		case ModeInsertBefore, ModeInsertAfter:
			out, reason, err = op.insert(content)
		}
		if err != nil && op.Optional && (errors.Is(err, fs.ErrPatternNotFound) || errors.Is(err, fs.ErrAnchorNotFound)) {
			reason = err.Error()
			return content, nil
		}
		return out, err
	})
	if err != nil {
		return Result{}, errors.Wrap(err, path)
	}
	if !changed {
		if reason == "" {
			reason = "no change"
		}
		return skipped(path, reason), nil
	}
	return applied(path), nil
}

func (op Operation) guarded(content string) (string, bool) {
	if op.SkipIf != "" && strings.Contains(content, op.SkipIf) {
		return "guard text present", true
	}
	return "", false
}

// replace edits content, ignoring matches of the pattern that lie wholly
// inside a copy of the replacement already in the file. That keeps a
// replacement which extends its own pattern (":status" -> ":status,
// default: 0") from growing on every run. Matching always runs over the
// whole content, so anchors and matches spanning a copy behave as in a
// plain replace.
func (op Operation) replace(content string) (string, string, error) {
	var re *regexp.Regexp
	if op.Regexp {
		re = regexp.MustCompile(op.Pattern)
	}

	// Only a literal replacement can be recognised in the output.
	literal := op.Text != "" && (re == nil || !strings.Contains(op.Text, "$"))
	if !literal {
		if re != nil {
			out, err := fs.ReplaceRegexpText(content, re, op.Text, op.First)
			return out, "", err
		}
		out, err := fs.ReplaceText(content, op.Pattern, op.Text, op.First)
		return out, "", err
	}

	var matches [][]int
	if re != nil {
		matches = re.FindAllStringIndex(content, -1)
	} else {
		matches = literalSpans(content, op.Pattern)
	}
	if len(matches) == 0 {
		if strings.Contains(content, op.Text) {
			return content, "replacement already present", nil
		}
		return "", "", fs.ErrPatternNotFound
	}

	placed := literalSpans(content, op.Text)
	var b strings.Builder
	last, n := 0, 0
	for _, m := range matches {
		if within(m, placed) {
			continue
		}
		b.WriteString(content[last:m[0]])
		b.WriteString(op.Text)
		last = m[1]
		n++
		if op.First {
			break
		}
	}
	if n == 0 {
		return content, "replacement already present", nil
	}
	b.WriteString(content[last:])
	return b.String(), "", nil
}

// literalSpans returns the non-overlapping [start, end) spans of sub in s.
func literalSpans(s, sub string) [][]int {
	if sub == "" {
		return nil
	}
	var spans [][]int
	for off := 0; ; {
		i := strings.Index(s[off:], sub)
		if i < 0 {
			return spans
		}
		start := off + i
		spans = append(spans, []int{start, start + len(sub)})
		off = start + len(sub)
	}
}

func within(m []int, spans [][]int) bool {
	for _, s := range spans {
		if s[0] <= m[0] && m[1] <= s[1] {
			return true
		}
	}
	return false
}

func (op Operation) insert(content string) (string, string, error) {
	after := op.Mode == ModeInsertAfter
	placed := op.Text + op.Anchor
	if after {
		placed = op.Anchor + op.Text
	}
	if strings.Contains(content, placed) {
		return content, "text already next to anchor", nil
	}
	occ, _ := fs.ParseOccurrence(op.Occurrence)
	out, err := fs.InsertText(content, op.Anchor, op.Text, after, occ)
	return out, "", err
}

func applied(path string) Result {
	return Result{Path: path, Outcome: Applied}
}

func skipped(path, reason string) Result {
	return Result{Path: path, Outcome: Skipped, Reason: reason}
}
