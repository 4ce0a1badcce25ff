package normalize

import (
	"net/url"
	"strings"

	"github.com/factchecker/factcheckit/internal/models"
)

// maxSlugRunes bounds how much of the claim goes into a fallback search link.
const maxSlugRunes = 200

// fallbackSources supplies the single source used when extraction found
// none. A caller-provided reference wins; otherwise a search link is built
// from the claim, or a placeholder without URL when there is no claim.
func (n *Normalizer) fallbackSources(claim string, ref *models.Source) []models.Source {
	if ref != nil {
		u := validURL(trimURL(ref.URL))
		title := cleanTitle(ref.Title)
		if title == "" {
			title = urlTitle(u)
		}
		if title != "" {
			return []models.Source{{Title: title, URL: u}}
		}
	}

	claim = CollapseWhitespace(claim)
	if claim == "" || n.cfg.FallbackSearchURL == "" {
		return []models.Source{{Title: n.cfg.NoSourceTitle}}
	}

	if r := []rune(claim); len(r) > maxSlugRunes {
		claim = string(r[:maxSlugRunes])
	}
	link := strings.Replace(n.cfg.FallbackSearchURL, "%s", url.QueryEscape(claim), 1)
	if validURL(link) == "" {
		return []models.Source{{Title: n.cfg.NoSourceTitle}}
	}
	return []models.Source{{Title: n.cfg.FallbackSourceTitle, URL: link}}
}
