package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/factchecker/factcheckit/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	bulletLinkRe = regexp.MustCompile(`^(?:[-*+•]+|\d+[.)])\s*\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	bareURLRe    = regexp.MustCompile(`(?i)https?://[^\s<>"'\]\)]+`)
	bulletRe     = regexp.MustCompile(`^(?:[-*+•]+|\d+[.)])\s*`)
	spacePunctRe = regexp.MustCompile(`\s+([.,;:!?])`)
	emptyParenRe = regexp.MustCompile(`\(\s*\)|\[\s*\]|<\s*>`)

	// Titles are rendered as link text; no markup survives.
	titlePolicy = bluemonday.StrictPolicy()
)

// titleTrim is what may surround a title without being part of it.
const titleTrim = " \t-–—:|,;*_\"'`"

// ParseSources extracts candidate sources from the block the classifier
// pointed at. The result is not yet deduplicated or capped.
func ParseSources(c Classification) []models.Source {
	switch c.Format {
	case FormatStrictJSON, FormatToolJSON:
		return parseSourceValue(c.Fields["sources"])
	case FormatMarkdownDivided:
		lines := c.Lines[c.Boundary+1:]
		if c.DividerTail != "" {
			lines = append([]string{c.DividerTail}, lines...)
		}
		return ParseSourceLines(lines)
	case FormatInlineLinks:
		return ParseSourceLines(c.Lines[c.Boundary:])
	default:
		return urlSourcesOnly(ParseSourceLines(c.Lines))
	}
}

// ParseSourceLines parses one source per non-empty line. Entries without a
// URL are kept only when no line produced a URL.
func ParseSourceLines(lines []string) []models.Source {
	var withURL, titleOnly []models.Source
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.Trim(line, "`") == "" {
			continue
		}
		src, ok := parseSourceLine(line)
		if !ok {
			continue
		}
		if src.URL != "" {
			withURL = append(withURL, src)
		} else {
			titleOnly = append(titleOnly, src)
		}
	}
	if len(withURL) > 0 {
		return withURL
	}
	return titleOnly
}

// parseSourceLine applies, in order: bullet + markdown link, markdown link
// anywhere, bare URL, plain text.
func parseSourceLine(line string) (models.Source, bool) {
	if m := bulletLinkRe.FindStringSubmatch(line); m != nil {
		return linkSource(m[1], m[2])
	}
	if m := linkRe.FindStringSubmatch(line); m != nil {
		return linkSource(m[1], m[2])
	}
	if loc := bareURLRe.FindStringIndex(line); loc != nil {
		raw := line[loc[0]:loc[1]]
		u := trimURL(raw)
		if valid := validURL(u); valid != "" {
			title := cleanTitle(line[:loc[0]] + " " + line[loc[1]:])
			if title == "" {
				title = urlTitle(valid)
			}
			return models.Source{Title: title, URL: valid}, true
		}
	}
	title := cleanTitle(line)
	if title == "" {
		return models.Source{}, false
	}
	return models.Source{Title: title}, true
}

func linkSource(title, rawURL string) (models.Source, bool) {
	u := validURL(trimURL(rawURL))
	t := cleanTitle(title)
	if t == "" {
		t = urlTitle(u)
	}
	if t == "" {
		return models.Source{}, false
	}
	return models.Source{Title: t, URL: u}, true
}

// parseSourceValue coerces a JSON "sources" value: an array of objects or
// strings, or a single string holding a text block.
func parseSourceValue(v any) []models.Source {
	switch t := v.(type) {
	case string:
		return ParseSourceLines(strings.Split(t, "\n"))
	case []any:
		var out []models.Source
		for _, item := range t {
			switch e := item.(type) {
			case map[string]any:
				if src, ok := objectSource(e); ok {
					out = append(out, src)
				}
			case string:
				if src, ok := parseSourceLine(strings.TrimSpace(e)); ok {
					out = append(out, src)
				}
			}
		}
		return out
	default:
		return nil
	}
}

func objectSource(obj map[string]any) (models.Source, bool) {
	title := firstScalar(obj, "title", "name")
	u := validURL(trimURL(firstScalar(obj, "url", "link", "href")))

	title = cleanTitle(title)
	if title == "" {
		title = urlTitle(u)
	}
	if title == "" {
		return models.Source{}, false
	}
	return models.Source{Title: title, URL: u}, true
}

func firstScalar(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := scalarString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func urlSourcesOnly(sources []models.Source) []models.Source {
	var out []models.Source
	for _, s := range sources {
		if s.URL != "" {
			out = append(out, s)
		}
	}
	return out
}

// cleanTitle strips bullets, markup and separator punctuation from a title.
func cleanTitle(s string) string {
	s = bulletRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = html.UnescapeString(titlePolicy.Sanitize(s))
	s = emptyParenRe.ReplaceAllString(s, " ")
	s = CollapseWhitespace(s)
	s = spacePunctRe.ReplaceAllString(s, "$1")
	return strings.Trim(s, titleTrim)
}

// trimURL drops sentence punctuation that a bare URL picked up.
func trimURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), ".,;:!?*_")
}

// validURL returns u when it is an absolute http(s) URL with a host, else "".
func validURL(u string) string {
	if u == "" {
		return ""
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return u
	default:
		return ""
	}
}

// urlTitle names a source after its host, or the URL itself when the host is empty.
func urlTitle(u string) string {
	if h := Hostname(u); h != "" {
		return h
	}
	return u
}

// Hostname returns the lowercased host of rawURL without a "www." prefix.
func Hostname(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}
