package normalize

import (
	"regexp"
	"strings"

	"github.com/factchecker/factcheckit/internal/models"
)

// "Verdict: FALSE" or "**Verdict:** FALSE" as the first line of a text answer.
var verdictLineRe = regexp.MustCompile(`^\s*[*_]{0,2}(?i:verdict)[*_]{0,2}\s*:\s*[*_]{0,2}\s*([A-Za-z_ ]+?)\s*[*_]{0,2}\s*$`)

// ExtractExplanation returns the narrative part of c and the upstream
// verdict field, if any. Empty input yields an empty explanation.
func ExtractExplanation(c Classification) (explanation, verdict string) {
	if c.isJSON() {
		explanation = c.stringField("explanation")
		if explanation == "" {
			explanation = c.stringField("summary")
		}
		return explanation, c.stringField("verdict")
	}

	var lines []string
	switch c.Format {
	case FormatMarkdownDivided, FormatInlineLinks:
		lines = c.Lines[:c.Boundary]
	default:
		lines = c.Lines
	}

	lines, verdict = liftVerdictLine(lines)
	explanation = strings.TrimSpace(strings.Join(lines, "\n"))

	if c.Format == FormatMarkdownDivided {
		explanation = unwrapBrackets(explanation)
	}
	return explanation, verdict
}

// liftVerdictLine removes a leading "Verdict: X" line and returns X. The
// line stays part of the narrative unless X is a recognized verdict.
func liftVerdictLine(lines []string) ([]string, string) {
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := verdictLineRe.FindStringSubmatch(line)
		if m == nil {
			return lines, ""
		}
		if _, ok := models.ParseVerdict(m[1]); ok {
			rest := make([]string, 0, len(lines)-1)
			rest = append(rest, lines[:i]...)
			rest = append(rest, lines[i+1:]...)
			return rest, strings.TrimSpace(m[1])
		}
		return lines, ""
	}
	return lines, ""
}

// unwrapBrackets strips one leading "[" and one trailing "]" when they wrap
// the whole block, as happens when a "[Myth-busting summary]" placeholder
// leaks into the answer. Blocks with other brackets inside are left alone.
func unwrapBrackets(s string) string {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return s
	}
	inner := s[1 : len(s)-1]
	if strings.ContainsAny(inner, "[]") {
		return s
	}
	return strings.TrimSpace(inner)
}
