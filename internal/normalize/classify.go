package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Format is the structural shape detected in raw model output.
type Format string

const (
	FormatStrictJSON      Format = "STRICT_JSON"
	FormatToolJSON        Format = "TOOL_JSON"
	FormatMarkdownDivided Format = "MARKDOWN_DIVIDED"
	FormatInlineLinks     Format = "INLINE_LINKS"
	FormatPlain           Format = "PLAIN"
)

var (
	// "Sources:", "**References**", "### Sources" on a line of their own.
	dividerRe = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?[*_]{0,2}\s*(?:sources|references)\s*[*_]{0,2}\s*:?\s*[*_]{0,2}\s*$`)
	// "Sources: [NASA](https://...)" with the first entry on the divider line.
	dividerInlineRe = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?[*_]{0,2}\s*(?:sources|references)\s*[*_]{0,2}\s*:\s*[*_]{0,2}\s*(.*https?://.*)$`)
	// A line that opens with a markdown link, optionally after a bullet or ordinal.
	linkLineRe = regexp.MustCompile(`^\s*(?:[-*+•]+\s*|\d+[.)]\s*)?\[[^\]]+\]\(https?://[^\s)]+\)`)

	explanationKeys = []string{"verdict", "explanation", "summary"}
)

// Classification is the classifier's decision plus what later stages need.
type Classification struct {
	Format Format
	// Text is the fence-stripped input.
	Text string
	// Lines are Text split on newlines.
	Lines []string
	// Boundary is the divider line (MARKDOWN_DIVIDED) or first link line
	// (INLINE_LINKS); -1 otherwise.
	Boundary int
	// DividerTail holds source text found on the divider line itself.
	DividerTail string
	// Fields is the decoded object for the JSON formats.
	Fields map[string]any
}

// Classify decides which shape text has. Structured marks text as a
// function-call argument payload; it is the only way to get TOOL_JSON.
// Classification always succeeds, defaulting to PLAIN.
func Classify(text string, structured bool) Classification {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = StripFences(text)

	c := Classification{
		Format:   FormatPlain,
		Text:     text,
		Lines:    strings.Split(text, "\n"),
		Boundary: -1,
	}

	if fields, ok := decodeObject(text); ok {
		if structured {
			c.Format = FormatToolJSON
			c.Fields = fields
			return c
		}
		if hasAnyKey(fields, explanationKeys...) {
			c.Format = FormatStrictJSON
			c.Fields = fields
			return c
		}
	}

	for i, line := range c.Lines {
		if dividerRe.MatchString(line) {
			c.Format = FormatMarkdownDivided
			c.Boundary = i
			return c
		}
		if m := dividerInlineRe.FindStringSubmatch(line); m != nil {
			c.Format = FormatMarkdownDivided
			c.Boundary = i
			c.DividerTail = strings.TrimSpace(m[1])
			return c
		}
	}

	for i, line := range c.Lines {
		if linkLineRe.MatchString(line) {
			c.Format = FormatInlineLinks
			c.Boundary = i
			return c
		}
	}

	return c
}

// decodeObject parses text as a JSON object, falling back to the outermost
// {...} span when the model wrapped the object in prose.
func decodeObject(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err == nil && fields != nil {
		return fields, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	fields = nil
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func hasAnyKey(fields map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

// stringField returns the first of keys holding a scalar, rendered as text.
func (c Classification) stringField(keys ...string) string {
	if c.Fields == nil {
		return ""
	}
	for _, k := range keys {
		if s := scalarString(c.Fields[k]); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

func (c Classification) isJSON() bool {
	return c.Format == FormatStrictJSON || c.Format == FormatToolJSON
}
