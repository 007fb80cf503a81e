package domain

import "strings"

// CancellationNotePrefix labels the reason appended on cancellation.
const CancellationNotePrefix = "Cancellation reason: "

// AppendNote appends addition to existing on a new line. Existing text is
// never rewritten; a blank addition leaves existing unchanged.
func AppendNote(existing *string, addition string) *string {
	addition = strings.TrimSpace(addition)
	if addition == "" {
		return existing
	}
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return &addition
	}
	merged := *existing + "\n" + addition
	return &merged
}

// CancellationNote formats a cancellation reason for AppendNote.
func CancellationNote(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ""
	}
	return CancellationNotePrefix + reason
}
