package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Parameterize turns a display name into an identifier safe for database
// and user names: accents folded, lower case, runs of anything else
// collapsed into sep.
func Parameterize(name, sep string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	slug := nonSlug.ReplaceAllString(strings.ToLower(folded), sep)
	return strings.Trim(slug, sep)
}

var projectName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9\-_]*$`)

// IsValidProjectName checks if the given project name is valid
func IsValidProjectName(name string) bool {
	// Project name should start with a letter (Ruby constants cannot start
	// with a digit), and can contain letters, numbers, hyphens, and underscores
	return projectName.MatchString(name)
}

// FormatProjectName makes name usable as an application name.
func FormatProjectName(name string) string {
	formatted := Parameterize(name, "_")

	// Ruby constants cannot start with a digit
	if len(formatted) > 0 && strings.IndexAny(formatted[0:1], "0123456789") == 0 {
		formatted = "app_" + formatted
	}

	if formatted == "" {
		formatted = "app"
	}

	return formatted
}

// TruncateString truncates a string to the specified length, adding an ellipsis if truncated
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}
