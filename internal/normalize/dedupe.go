package normalize

import (
	"net/url"
	"strings"

	"github.com/factchecker/factcheckit/internal/models"
	"golang.org/x/text/unicode/norm"
)

var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid",
}

// NormalizeURL canonicalizes a URL for duplicate detection: lowercase
// scheme and host, no "www.", no fragment, no tracking parameters and no
// trailing slash.
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	parsed.Fragment = ""
	parsed.RawFragment = ""

	if parsed.RawQuery != "" {
		q := parsed.Query()
		for _, param := range trackingParams {
			q.Del(param)
		}
		parsed.RawQuery = q.Encode()
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""

	return parsed.String(), nil
}

// sourceKey identifies a source for deduplication.
func sourceKey(s models.Source) string {
	if s.URL != "" {
		if key, err := NormalizeURL(s.URL); err == nil && key != "" {
			return key
		}
		return s.URL
	}
	return "title:" + strings.ToLower(norm.NFC.String(s.Title))
}

// DedupeSources drops later duplicates, keeps first-seen order and caps the
// result at max entries.
func DedupeSources(sources []models.Source, max int) []models.Source {
	seen := make(map[string]bool, len(sources))
	out := make([]models.Source, 0, max)
	for _, s := range sources {
		if len(out) >= max {
			break
		}
		key := sourceKey(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
