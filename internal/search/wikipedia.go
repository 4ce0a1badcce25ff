package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/factchecker/factcheckit/internal/models"
	"github.com/rs/zerolog/log"
)

// WikipediaClient finds the best-matching Wikipedia article for a claim.
type WikipediaClient struct {
	httpClient *http.Client
	// baseURL is the wiki root, e.g. https://en.wikipedia.org.
	baseURL string
}

// NewWikipediaClient creates a client for English Wikipedia.
func NewWikipediaClient() *WikipediaClient {
	return &WikipediaClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://en.wikipedia.org",
	}
}

// Name returns the source name.
func (c *WikipediaClient) Name() string {
	return "Wikipedia"
}

// Available returns true as Wikipedia requires no API key.
func (c *WikipediaClient) Available() bool {
	return true
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			PageID int    `json:"pageid"`
			Title  string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// Find returns the top search hit as a reference.
func (c *WikipediaClient) Find(ctx context.Context, claim string) (*models.Source, error) {
	keywords := extractKeywords(claim)
	if keywords == "" {
		return nil, nil
	}
	log.Debug().Str("original", claim).Str("keywords", keywords).Msg("Wikipedia: Searching")

	searchURL := fmt.Sprintf("%s/w/api.php?action=query&list=search&srsearch=%s&format=json&srlimit=1",
		c.baseURL, url.QueryEscape(keywords))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Wikipedia search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Wikipedia returned status %d", resp.StatusCode)
	}

	var searchData wikiSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchData); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(searchData.Query.Search) == 0 {
		return nil, nil
	}

	title := searchData.Query.Search[0].Title
	return &models.Source{
		Title: title + " - Wikipedia",
		URL:   fmt.Sprintf("%s/wiki/%s", c.baseURL, url.PathEscape(strings.ReplaceAll(title, " ", "_"))),
	}, nil
}
