package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/factchecker/factcheckit/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// DuckDuckGoClient finds a reference through the DuckDuckGo instant answer
// API, falling back to the first organic result of the HTML search page.
type DuckDuckGoClient struct {
	httpClient *http.Client
	apiURL     string
	htmlURL    string
}

// NewDuckDuckGoClient creates a new DuckDuckGo client.
func NewDuckDuckGoClient() *DuckDuckGoClient {
	return &DuckDuckGoClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     "https://api.duckduckgo.com/",
		htmlURL:    "https://html.duckduckgo.com/html/",
	}
}

// Name returns the source name.
func (c *DuckDuckGoClient) Name() string {
	return "DuckDuckGo"
}

// Available returns true as DuckDuckGo requires no API key.
func (c *DuckDuckGoClient) Available() bool {
	return true
}

type ddgResponse struct {
	Abstract    string `json:"Abstract"`
	AbstractURL string `json:"AbstractURL"`
	Heading     string `json:"Heading"`
}

// Find returns the instant answer source if there is one, else the first
// web result.
func (c *DuckDuckGoClient) Find(ctx context.Context, claim string) (*models.Source, error) {
	keywords := extractKeywords(claim)
	if keywords == "" {
		return nil, nil
	}
	log.Debug().Str("original", claim).Str("keywords", keywords).Msg("DuckDuckGo: Searching")

	src, err := c.instantAnswer(ctx, keywords)
	if err != nil {
		log.Debug().Err(err).Msg("DuckDuckGo instant answer failed")
	}
	if src != nil {
		return src, nil
	}

	results, err := c.htmlResults(ctx, keywords)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// instantAnswer uses the Instant Answer API.
func (c *DuckDuckGoClient) instantAnswer(ctx context.Context, query string) (*models.Source, error) {
	u := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1", c.apiURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var data ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	if data.Abstract == "" || data.AbstractURL == "" {
		return nil, nil
	}
	title := data.Heading
	if title == "" {
		title = extractDomain(data.AbstractURL)
	}
	return &models.Source{Title: title, URL: data.AbstractURL}, nil
}

// htmlResults fetches the HTML search page and returns its organic results.
func (c *DuckDuckGoClient) htmlResults(ctx context.Context, query string) ([]models.Source, error) {
	u := fmt.Sprintf("%s?q=%s", c.htmlURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo returned status %d", resp.StatusCode)
	}

	return parseResults(io.LimitReader(resp.Body, 1<<20))
}

// parseResults walks the result page and collects every result__a anchor.
func parseResults(r io.Reader) ([]models.Source, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	var results []models.Source
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			target := decodeRedirectURL(attr(n, "href"))
			title := strings.Join(strings.Fields(nodeText(n)), " ")
			if isResultURL(target) && title != "" {
				results = append(results, models.Source{Title: title, URL: target})
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(nodeText(child))
	}
	return sb.String()
}

// isResultURL rejects ads and internal DuckDuckGo links.
func isResultURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return !strings.HasSuffix(parsed.Hostname(), "duckduckgo.com")
}

// decodeRedirectURL extracts actual URL from DuckDuckGo redirect
func decodeRedirectURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return rawURL
}

// extractDomain extracts domain name from URL for source attribution
func extractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "Web"
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
