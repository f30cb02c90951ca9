// Package common provides shared utilities used across the arxiv-mcp application.
package common

import (
	"regexp"
	"strings"
)

// Titles pasted out of JSON payloads or log lines frequently carry literal
// two-character escape artifacts (a backslash followed by n, t or r).
var (
	escapeArtifacts = regexp.MustCompile(`\\[ntr]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// NormalizeTitle cleans a free-text article title before it is used as a
// search term: literal escape-sequence artifacts become spaces, runs of
// whitespace collapse to a single space, and the result is trimmed.
// It never fails; empty input yields empty output.
func NormalizeTitle(raw string) string {
	withoutEscapes := escapeArtifacts.ReplaceAllString(raw, " ")
	singleSpaced := whitespaceRuns.ReplaceAllString(withoutEscapes, " ")
	return strings.TrimSpace(singleSpaced)
}
