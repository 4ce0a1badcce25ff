// Package search looks up a reference page for a claim. The result is only
// used as the fallback source when the model's answer carries none.
package search

import (
	"context"
	"time"

	"github.com/factchecker/factcheckit/internal/models"
	"github.com/rs/zerolog/log"
)

const userAgent = "Fact-CheckIt/1.0 (claim reference lookup)"

// ReferenceFinder defines the interface for reference providers.
type ReferenceFinder interface {
	// Find returns the best reference for the claim, or nil when there is none.
	Find(ctx context.Context, claim string) (*models.Source, error)

	// Name returns the source name.
	Name() string

	// Available returns whether this finder is properly configured.
	Available() bool
}

// AggregatedFinder queries several finders and prefers earlier ones.
type AggregatedFinder struct {
	finders []ReferenceFinder
	timeout time.Duration
}

// NewAggregatedFinder creates a new aggregated finder. Finders are listed in
// priority order; unavailable ones are dropped.
func NewAggregatedFinder(timeout time.Duration, finders ...ReferenceFinder) *AggregatedFinder {
	available := make([]ReferenceFinder, 0, len(finders))
	for _, f := range finders {
		if f.Available() {
			available = append(available, f)
		}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AggregatedFinder{finders: available, timeout: timeout}
}

type findResult struct {
	index  int
	source *models.Source
	err    error
}

// Find queries all finders concurrently and returns the reference of the
// highest-priority finder that produced one before the timeout. Failures
// are reported as warnings, never as errors.
func (a *AggregatedFinder) Find(ctx context.Context, claim string) (*models.Source, []models.Warning) {
	if len(a.finders) == 0 {
		return nil, []models.Warning{{Source: "search", Message: "No reference sources configured"}}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make(chan findResult, len(a.finders))
	for i, finder := range a.finders {
		go func(i int, f ReferenceFinder) {
			src, err := f.Find(ctx, claim)
			results <- findResult{index: i, source: src, err: err}
		}(i, finder)
	}

	found := make([]*models.Source, len(a.finders))
	var warnings []models.Warning

collect:
	for received := 0; received < len(a.finders); received++ {
		select {
		case r := <-results:
			if r.err != nil {
				warnings = append(warnings, models.Warning{
					Source:  a.finders[r.index].Name(),
					Message: r.err.Error(),
				})
				continue
			}
			found[r.index] = r.source
			if r.index == 0 && r.source != nil {
				break collect
			}
		case <-ctx.Done():
			warnings = append(warnings, models.Warning{
				Source:  "search",
				Message: "Some sources timed out",
			})
			break collect
		}
	}

	for i, src := range found {
		if src != nil {
			log.Debug().Str("source", a.finders[i].Name()).Str("url", src.URL).Msg("Reference found")
			return src, warnings
		}
	}
	return nil, warnings
}

// HasFinders returns whether any finders are available.
func (a *AggregatedFinder) HasFinders() bool {
	return len(a.finders) > 0
}
