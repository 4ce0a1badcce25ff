// Package check runs a claim through reference lookup, the model and the
// response normalizer, and persists the outcome.
package check

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/factchecker/factcheckit/internal/config"
	"github.com/factchecker/factcheckit/internal/database"
	"github.com/factchecker/factcheckit/internal/llm"
	"github.com/factchecker/factcheckit/internal/models"
	"github.com/factchecker/factcheckit/internal/normalize"
	"github.com/factchecker/factcheckit/internal/search"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrClaimRequired = errors.New("claim is required")
	ErrClaimTooLong  = errors.New("claim too long")
)

const shortIDLength = 10

// ReferenceFinder supplies the optional fallback reference for a claim.
type ReferenceFinder interface {
	Find(ctx context.Context, claim string) (*models.Source, []models.Warning)
}

// Outcome is the result of checking one claim.
type Outcome struct {
	FactCheck *models.FactCheck
	Report    normalize.Report
	Warnings  []models.Warning
	// Cached is set when the result was served from an earlier check.
	Cached bool
}

// Service orchestrates the fact-checking pipeline.
type Service struct {
	provider   llm.Provider
	store      database.Store
	finder     ReferenceFinder
	normalizer *normalize.Normalizer
	prompt     config.PromptConfig
	opts       llm.CompletionOptions
	useTools   bool
	maxLength  int
}

// NewReferenceFinder builds the reference lookup from configuration, or
// returns nil when every source is disabled.
func NewReferenceFinder(cfg config.SearchConfig) ReferenceFinder {
	var finders []search.ReferenceFinder
	if cfg.Wikipedia {
		finders = append(finders, search.NewWikipediaClient())
	}
	if cfg.DuckDuckGo {
		finders = append(finders, search.NewDuckDuckGoClient())
	}

	agg := search.NewAggregatedFinder(cfg.Timeout, finders...)
	if !agg.HasFinders() {
		log.Warn().Msg("No reference sources configured - fallback sources will be search links")
		return nil
	}
	return agg
}

// NewService creates a new check service. finder may be nil.
func NewService(cfg *config.Config, provider llm.Provider, store database.Store, finder ReferenceFinder) *Service {
	return &Service{
		provider:   provider,
		store:      store,
		finder:     finder,
		normalizer: normalize.New(cfg.Normalizer),
		prompt:     cfg.Prompt,
		opts: llm.CompletionOptions{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Model:       cfg.LLM.Model,
		},
		useTools:  cfg.LLM.UseTools,
		maxLength: cfg.Claims.MaxLength,
	}
}

// MaxClaimLength returns the longest accepted claim in characters.
func (s *Service) MaxClaimLength() int {
	return s.maxLength
}

// ValidateClaim trims the claim and enforces the length limits.
func (s *Service) ValidateClaim(claim string) (string, error) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return "", ErrClaimRequired
	}
	if utf8.RuneCountInString(claim) > s.maxLength {
		return "", ErrClaimTooLong
	}
	return claim, nil
}

// Check assesses a claim. Only invalid claims and model failures are errors;
// lookup and persistence problems are logged.
func (s *Service) Check(ctx context.Context, claim string) (*Outcome, error) {
	claim, err := s.ValidateClaim(claim)
	if err != nil {
		return nil, err
	}
	startTime := time.Now()
	hash := ClaimHash(claim)

	existing, err := s.store.GetFactCheckByClaimHash(ctx, hash)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check for existing fact check")
	}
	if existing != nil {
		log.Info().Str("short_id", existing.ShortID).Msg("Returning cached fact check")
		return &Outcome{FactCheck: existing, Cached: true}, nil
	}

	// The lookup runs alongside the model call and only feeds the fallback.
	type lookup struct {
		ref      *models.Source
		warnings []models.Warning
	}
	refCh := make(chan lookup, 1)
	if s.finder != nil {
		go func() {
			ref, warnings := s.finder.Find(ctx, claim)
			refCh <- lookup{ref: ref, warnings: warnings}
		}()
	} else {
		refCh <- lookup{}
	}

	log.Debug().Bool("tools", s.useTools).Msg("Step 1: Asking model")
	text, structured, err := s.ask(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	found := <-refCh
	for _, w := range found.warnings {
		log.Warn().Str("source", w.Source).Str("message", w.Message).Msg("Reference lookup warning")
	}

	log.Debug().Msg("Step 2: Normalizing response")
	result, report := s.normalizer.Normalize(normalize.Input{
		Text:       text,
		Structured: structured,
		Claim:      claim,
		Fallback:   found.ref,
	})
	if len(report.Flags) > 0 {
		log.Warn().
			Str("format", string(report.Format)).
			Strs("flags", report.FlagStrings()).
			Msg("Model response needed repair")
	}

	fc := &models.FactCheck{
		ID:        uuid.New().String(),
		ShortID:   newShortID(),
		Claim:     claim,
		ClaimHash: hash,
		Result:    result,
		Format:    string(report.Format),
		Flags:     report.FlagStrings(),
		CreatedAt: time.Now().UTC(),
	}
	if found.ref != nil {
		fc.ReferenceURL = found.ref.URL
	}

	log.Debug().Msg("Step 3: Persisting result")
	if err := s.store.SaveFactCheck(ctx, fc); err != nil {
		log.Error().Err(err).Str("short_id", fc.ShortID).Msg("Failed to save fact check")
	}

	log.Info().
		Str("short_id", fc.ShortID).
		Str("verdict", string(result.Verdict)).
		Int("sources", len(result.Sources)).
		Int64("duration_ms", time.Since(startTime).Milliseconds()).
		Msg("Fact check complete")

	return &Outcome{FactCheck: fc, Report: report, Warnings: found.warnings}, nil
}

// ask sends the prompt and returns the raw answer and whether it is a
// function-call payload.
func (s *Service) ask(ctx context.Context, claim string) (string, bool, error) {
	user := strings.ReplaceAll(s.prompt.Template, "{{claim}}", claim)

	if !s.useTools {
		text, err := s.provider.CompleteWithSystem(ctx, s.prompt.System, user, s.opts)
		return text, false, err
	}

	res, err := s.provider.CompleteTool(ctx, s.prompt.System, user, reportTool(), s.opts)
	if errors.Is(err, llm.ErrNoToolCall) {
		log.Warn().Msg("Model answered without calling the tool, normalizing its text")
		return res.Content, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res.Arguments, true, nil
}

// ClaimHash returns the cache key of a trimmed claim.
func ClaimHash(claim string) string {
	sum := sha256.Sum256([]byte(claim))
	return hex.EncodeToString(sum[:])
}

func newShortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:shortIDLength]
}
