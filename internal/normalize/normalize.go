// Package normalize coerces raw model output into a ClaimCheckResult.
//
// The pipeline classifies the text once (STRICT_JSON, TOOL_JSON,
// MARKDOWN_DIVIDED, INLINE_LINKS or PLAIN) and then runs pure stages over
// it: explanation extraction, sentence limiting, source parsing,
// deduplication, fallback resolution and assembly. Normalize never fails;
// anything it had to paper over is reported through Flags.
package normalize

import (
	"strings"

	"github.com/factchecker/factcheckit/internal/config"
	"github.com/factchecker/factcheckit/internal/models"
)

// Flag is an informational condition observed while normalizing.
type Flag string

const (
	FlagClassificationAmbiguous Flag = "ClassificationAmbiguous"
	FlagExplanationEmpty        Flag = "ExplanationEmpty"
	FlagSourcesEmpty            Flag = "SourcesEmpty"
	FlagVerdictUnrecognized     Flag = "VerdictUnrecognized"
)

// Input is everything a single normalization needs.
type Input struct {
	// Text is the model output: freeform text, or function-call arguments when Structured is set.
	Text string
	// Structured marks Text as the argument payload of a function/tool call.
	Structured bool
	// Claim is the user's claim, used only to build the fallback reference.
	Claim string
	// Fallback is an optional reference the caller already looked up.
	Fallback *models.Source
}

// Report describes how a result was produced.
type Report struct {
	Format Format `json:"format"`
	Flags  []Flag `json:"flags,omitempty"`
}

// Has reports whether f was raised.
func (r Report) Has(f Flag) bool {
	for _, x := range r.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// FlagStrings returns the flags as plain strings for persistence.
func (r Report) FlagStrings() []string {
	out := make([]string, len(r.Flags))
	for i, f := range r.Flags {
		out[i] = string(f)
	}
	return out
}

func (r *Report) flag(f Flag) {
	if !r.Has(f) {
		r.Flags = append(r.Flags, f)
	}
}

// Normalizer turns model output into ClaimCheckResults. It is immutable
// after construction and safe for concurrent use.
type Normalizer struct {
	cfg     config.NormalizerConfig
	markers map[models.Verdict]string
	suffix  string
}

// New creates a normalizer. Zero-valued settings fall back to the defaults.
func New(cfg config.NormalizerConfig) *Normalizer {
	def := config.DefaultNormalizerConfig()
	if cfg.MaxSentences <= 0 {
		cfg.MaxSentences = def.MaxSentences
	}
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = def.MaxSources
	}
	if strings.TrimSpace(cfg.Attribution) == "" {
		cfg.Attribution = def.Attribution
	}
	if floor := len([]rune(cfg.Attribution)) + 16; cfg.MaxFormattedLength < floor {
		cfg.MaxFormattedLength = max(def.MaxFormattedLength, floor)
	}
	cfg.FallbackExplanation = LimitSentences(cfg.FallbackExplanation, cfg.MaxSentences)
	if cfg.FallbackExplanation == "" {
		cfg.FallbackExplanation = def.FallbackExplanation
	}
	if cfg.FallbackSourceTitle == "" {
		cfg.FallbackSourceTitle = def.FallbackSourceTitle
	}
	if cfg.NoSourceTitle == "" {
		cfg.NoSourceTitle = def.NoSourceTitle
	}

	markers := make(map[models.Verdict]string, len(models.Verdicts))
	for _, v := range models.Verdicts {
		m := cfg.VerdictMarkers[string(v)]
		if m == "" {
			m = def.VerdictMarkers[string(v)]
		}
		markers[v] = m
	}

	return &Normalizer{
		cfg:     cfg,
		markers: markers,
		suffix:  " - via " + strings.TrimSpace(cfg.Attribution),
	}
}

// Normalize runs the full pipeline. It always returns a fully populated result.
func (n *Normalizer) Normalize(in Input) (models.ClaimCheckResult, Report) {
	c := Classify(in.Text, in.Structured)
	report := Report{Format: c.Format}
	if c.Format == FormatPlain {
		report.flag(FlagClassificationAmbiguous)
	}

	explanation, verdictField := ExtractExplanation(c)
	explanation = LimitSentences(explanation, n.cfg.MaxSentences)
	if explanation == "" {
		explanation = n.cfg.FallbackExplanation
		report.flag(FlagExplanationEmpty)
	}

	sources := DedupeSources(ParseSources(c), n.cfg.MaxSources)
	if len(sources) == 0 {
		sources = n.fallbackSources(in.Claim, in.Fallback)
		report.flag(FlagSourcesEmpty)
	}

	verdict, ok := models.ParseVerdict(verdictField)
	if !ok && strings.TrimSpace(verdictField) != "" {
		report.flag(FlagVerdictUnrecognized)
	}

	return models.ClaimCheckResult{
		Verdict:           verdict,
		Explanation:       explanation,
		Sources:           sources,
		FormattedResponse: n.formatResponse(verdict, explanation, c.stringField("formattedResponse", "formatted_response")),
	}, report
}
