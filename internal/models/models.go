// Package models defines the core data structures used throughout the application.
package models

import (
	"strings"
	"time"
)

// Verdict is the closed-set classification of a claim's truth status.
type Verdict string

const (
	VerdictTrue         Verdict = "TRUE"
	VerdictFalse        Verdict = "FALSE"
	VerdictMisleading   Verdict = "MISLEADING"
	VerdictCannotVerify Verdict = "CANNOT_VERIFY"
)

// Verdicts lists every recognized verdict in display order.
var Verdicts = []Verdict{VerdictTrue, VerdictFalse, VerdictMisleading, VerdictCannotVerify}

// ParseVerdict matches s exactly (case-sensitive, surrounding whitespace ignored).
func ParseVerdict(s string) (Verdict, bool) {
	for _, v := range Verdicts {
		if string(v) == strings.TrimSpace(s) {
			return v, true
		}
	}
	return VerdictCannotVerify, false
}

// Source is a titled reference offered in support of an explanation.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ClaimCheckResult is the normalized, renderable outcome of checking a claim.
type ClaimCheckResult struct {
	Verdict           Verdict  `json:"verdict"`
	Explanation       string   `json:"explanation"`
	Sources           []Source `json:"sources"`
	FormattedResponse string   `json:"formattedResponse"`
}

// FactCheck is a persisted claim check, addressable by its short id.
type FactCheck struct {
	ID           string           `json:"id"`
	ShortID      string           `json:"shortId"`
	Claim        string           `json:"claim"`
	ClaimHash    string           `json:"-"`
	Result       ClaimCheckResult `json:"result"`
	ReferenceURL string           `json:"referenceUrl,omitempty"`
	Format       string           `json:"format"`
	Flags        []string         `json:"flags,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// AuditLog represents an API request audit entry.
type AuditLog struct {
	ID           string    `json:"id"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	RequestSize  int64     `json:"request_size"`
	ResponseCode int       `json:"response_code"`
	DurationMs   int64     `json:"duration_ms"`
	RemoteAddr   string    `json:"remote_addr"`
	Timestamp    time.Time `json:"timestamp"`
}

// Warning represents a non-fatal issue during processing.
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// FactCheckRequest is the request body for the fact-check endpoint.
type FactCheckRequest struct {
	Claim string `json:"claim"`
}

// FactCheckResponse is the success envelope returned by the fact-check endpoint.
type FactCheckResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	ClaimCheckResult
}

// StoredFactCheckResponse is returned when a fact check is fetched by short id.
type StoredFactCheckResponse struct {
	Success      bool      `json:"success"`
	Claim        string    `json:"claim"`
	ReferenceURL string    `json:"referenceUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ClaimCheckResult
}

// ErrorResponse is the failure envelope used by every endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
