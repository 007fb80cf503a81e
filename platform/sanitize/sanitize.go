// Package sanitize cleans customer-supplied text before it is stored or
// rendered into notification emails.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	blankRunsPattern = regexp.MustCompile(`\n{3,}`)
)

// StripHTML removes tags, decodes entities, then strips again so encoded
// markup such as "&lt;script&gt;" cannot survive as a live tag.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Text is StripHTML plus newline normalisation: CRLF becomes LF and runs of
// blank lines collapse to one.
func Text(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return blankRunsPattern.ReplaceAllString(StripHTML(s), "\n\n")
}

// OptionalText sanitizes s and returns nil when nothing is left.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	if cleaned := Text(*s); cleaned != "" {
		return &cleaned
	}
	return nil
}

// Email trims and lower-cases an address for storage and duplicate checks.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
