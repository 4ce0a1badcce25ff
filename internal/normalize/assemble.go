package normalize

import (
	"strings"
	"unicode"

	"github.com/factchecker/factcheckit/internal/models"
)

// variationSelector follows some emoji (⚠️); models often drop it.
const variationSelector = "\uFE0F"

// formatResponse builds the channel-ready string. A supplied string keeps
// its wording but gains the verdict's marker and the attribution when
// missing, and a leading marker of another verdict is replaced; otherwise
// one is synthesized from the explanation. Either way the result
// fits MaxFormattedLength code points.
func (n *Normalizer) formatResponse(verdict models.Verdict, explanation, supplied string) string {
	marker := n.markers[verdict]

	body := strings.TrimSpace(supplied)
	if body == "" {
		return n.compose(marker+" ", explanation)
	}

	bare := strings.TrimSpace(n.suffix)
	switch {
	case strings.HasSuffix(body, n.suffix):
		body = strings.TrimSuffix(body, n.suffix)
	case strings.HasSuffix(body, bare):
		body = strings.TrimSuffix(body, bare)
	}

	prefix := ""
	if !n.hasMarker(body, verdict) {
		body = n.trimMarker(body)
		prefix = marker + " "
	}
	return n.compose(prefix, body)
}

// compose joins prefix, the clipped body and the attribution suffix.
func (n *Normalizer) compose(prefix, body string) string {
	budget := n.cfg.MaxFormattedLength - runeLen(prefix) - runeLen(n.suffix)
	clipped := ClipText(strings.TrimSpace(body), budget)
	head := strings.TrimSpace(prefix + clipped)
	return head + n.suffix
}

// hasMarker reports whether s opens with the marker of verdict, with or
// without its variation selector.
func (n *Normalizer) hasMarker(s string, verdict models.Verdict) bool {
	m := n.markers[verdict]
	if m == "" {
		return false
	}
	return strings.HasPrefix(s, m) || strings.HasPrefix(s, strings.TrimSuffix(m, variationSelector))
}

// trimMarker removes a leading marker of any verdict from s.
func (n *Normalizer) trimMarker(s string) string {
	for _, v := range models.Verdicts {
		m := n.markers[v]
		if m == "" {
			continue
		}
		for _, form := range []string{m, strings.TrimSuffix(m, variationSelector)} {
			if strings.HasPrefix(s, form) {
				return strings.TrimSpace(strings.TrimPrefix(s, form))
			}
		}
	}
	return s
}

// ClipText shortens s to at most max code points, cutting at the last
// whitespace before the limit when there is one and never leaving half of a
// markdown link behind.
func ClipText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}

	cut := max
	for i := max; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	clipped := string(runes[:cut])

	if idx := strings.LastIndex(clipped, "["); idx >= 0 && brokenLink(clipped[idx:]) {
		clipped = clipped[:idx]
	}
	return strings.TrimRightFunc(clipped, unicode.IsSpace)
}

// brokenLink reports whether tail, starting at "[", is an unfinished
// markdown link.
func brokenLink(tail string) bool {
	closeBracket := strings.Index(tail, "]")
	if closeBracket < 0 {
		return true
	}
	rest := tail[closeBracket+1:]
	if !strings.HasPrefix(rest, "(") {
		return false
	}
	return !strings.Contains(rest, ")")
}

func runeLen(s string) int {
	return len([]rune(s))
}
