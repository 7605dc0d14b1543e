package feed

import (
	"bytes"
	"strings"
)

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// DetectDelimiter guesses the delimiter from the first line of raw.
// Ties go to the earlier candidate; comma when nothing is found.
func DetectDelimiter(raw []byte) rune {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	line := string(raw)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}

	best, bestCount := ',', 0
	for _, c := range delimiterCandidates {
		if n := strings.Count(line, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// DelimiterName renders a delimiter for display
func DelimiterName(r rune) string {
	if r == '\t' {
		return `\t`
	}
	return string(r)
}
