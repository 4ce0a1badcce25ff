package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CollapseWhitespace NFC-normalizes s, drops invalid bytes and control
// characters, folds every whitespace run into one space and trims.
func CollapseWhitespace(s string) string {
	s = norm.NFC.String(strings.ToValidUTF8(s, ""))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// LimitSentences collapses whitespace and keeps at most max sentences. A
// sentence ends at a period followed by a space or the end of the text;
// text without any terminator is returned whole.
func LimitSentences(text string, max int) string {
	normalized := CollapseWhitespace(text)
	if max <= 0 {
		return normalized
	}

	count := 0
	for i := 0; i < len(normalized); i++ {
		if normalized[i] != '.' {
			continue
		}
		if i+1 < len(normalized) && normalized[i+1] != ' ' {
			continue
		}
		count++
		if count == max {
			return normalized[:i+1]
		}
	}
	return normalized
}
