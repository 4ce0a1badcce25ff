package normalize

import (
	"strings"
)

const fence = "```"

// fenceTags are the info strings models put on an answer's opening fence.
var fenceTags = map[string]bool{
	"":          true,
	"json":      true,
	"jsonc":     true,
	"json5":     true,
	"markdown":  true,
	"md":        true,
	"text":      true,
	"txt":       true,
	"plaintext": true,
	"plain":     true,
}

// StripFences removes a code fence that wraps the whole text, including an
// optional language tag (json, markdown, text and their aliases) on the
// opening line. Fences elsewhere are left alone.
// Nested wrapping fences are unwrapped together, so StripFences is idempotent.
func StripFences(text string) string {
	for {
		trimmed := strings.TrimSpace(text)
		if len(trimmed) < 2*len(fence) || !strings.HasPrefix(trimmed, fence) || !strings.HasSuffix(trimmed, fence) {
			return text
		}

		inner := trimmed[len(fence) : len(trimmed)-len(fence)]
		if nl := strings.IndexByte(inner, '\n'); nl >= 0 && fenceTags[strings.ToLower(strings.TrimSpace(inner[:nl]))] {
			inner = inner[nl+1:]
		}
		text = strings.TrimSpace(inner)
	}
}
