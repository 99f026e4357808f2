package pipeline

import (
	"regexp"
	"strings"
)

// maxNoteLength caps sanitized note bodies, in runes
const maxNoteLength = 2000

// quoteMarkers match the start of quoted e-mail threads pasted into notes.
// Everything from the first marker onward is dropped.
var quoteMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)-{2,}\s*original message\s*-{2,}`),
	regexp.MustCompile(`(?i)\bon .{0,200}? wrote:`),
	regexp.MustCompile(`(?im)^\s*from:.*$[\r\n]+^\s*sent:`),
}

// SanitizeNote collapses a note to a single bounded line: quoted e-mail
// threads are trimmed, whitespace runs become one space, and the result is
// capped at maxNoteLength runes. Returns empty for whitespace-only input.
func SanitizeNote(body string) string {
	for _, re := range quoteMarkers {
		if loc := re.FindStringIndex(body); loc != nil {
			body = body[:loc[0]]
		}
	}

	body = strings.Join(strings.Fields(body), " ")

	runes := []rune(body)
	if len(runes) > maxNoteLength {
		body = strings.TrimSpace(string(runes[:maxNoteLength]))
	}
	return body
}
