package fs

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Occurrence selects which match of an anchor an insertion uses.
type Occurrence int

const (
	First Occurrence = iota
	Last
)

// ParseOccurrence maps "first", "last" or "" (first) to an Occurrence.
func ParseOccurrence(s string) (Occurrence, error) {
	switch s {
	case "", "first":
		return First, nil
	case "last":
		return Last, nil
	default:
		return First, errors.Errorf("occurrence must be first or last, got %s", s)
	}
}

// ReplaceText replaces occurrences of pattern in content. With first set
// only the first occurrence changes. Returns ErrPatternNotFound when
// pattern is absent.
func ReplaceText(content, pattern, replacement string, first bool) (string, error) {
	if pattern == "" {
		return "", errors.New("empty pattern")
	}
	if !strings.Contains(content, pattern) {
		return "", ErrPatternNotFound
	}
	if first {
		return strings.Replace(content, pattern, replacement, 1), nil
	}
	return strings.ReplaceAll(content, pattern, replacement), nil
}

// ReplaceRegexpText is ReplaceText for a compiled expression. The
// replacement may reference groups as $1 or ${name}.
func ReplaceRegexpText(content string, re *regexp.Regexp, replacement string, first bool) (string, error) {
	loc := re.FindStringSubmatchIndex(content)
	if loc == nil {
		return "", ErrPatternNotFound
	}
	if !first {
		return re.ReplaceAllString(content, replacement), nil
	}
	var b strings.Builder
	b.WriteString(content[:loc[0]])
	b.Write(re.ExpandString(nil, replacement, content, loc))
	b.WriteString(content[loc[1]:])
	return b.String(), nil
}

// InsertText places text directly before or after the chosen occurrence
// of anchor.
func InsertText(content, anchor, text string, after bool, occ Occurrence) (string, error) {
	if anchor == "" {
		return "", errors.New("empty anchor")
	}
	idx := strings.Index(content, anchor)
	if occ == Last {
		idx = strings.LastIndex(content, anchor)
	}
	if idx < 0 {
		return "", ErrAnchorNotFound
	}
	if after {
		idx += len(anchor)
	}
	return content[:idx] + text + content[idx:], nil
}
