// Package api provides the HTTP API: router, middleware and JSON handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/factchecker/factcheckit/internal/check"
	"github.com/factchecker/factcheckit/internal/database"
	"github.com/factchecker/factcheckit/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const maxBodyBytes = 64 << 10

// Checker runs claims through the fact-checking pipeline.
type Checker interface {
	Check(ctx context.Context, claim string) (*check.Outcome, error)
	MaxClaimLength() int
}

// Handler contains all HTTP handlers.
type Handler struct {
	checker Checker
	store   database.Store
}

// NewHandler creates a new handler.
func NewHandler(checker Checker, store database.Store) *Handler {
	return &Handler{
		checker: checker,
		store:   store,
	}
}

// HealthCheck returns the service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// FactCheck checks the claim in the request body.
func (h *Handler) FactCheck(w http.ResponseWriter, r *http.Request) {
	var req models.FactCheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	out, err := h.checker.Check(r.Context(), req.Claim)
	switch {
	case errors.Is(err, check.ErrClaimRequired):
		writeError(w, http.StatusBadRequest, "Claim is required")
		return
	case errors.Is(err, check.ErrClaimTooLong):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Claim too long (max %d characters)", h.checker.MaxClaimLength()))
		return
	case err != nil:
		log.Error().Err(err).Str("request_id", getRequestID(r.Context())).Msg("Fact check failed")
		writeError(w, http.StatusInternalServerError, "Failed to fact-check. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, models.FactCheckResponse{
		Success:          true,
		ID:               out.FactCheck.ShortID,
		ClaimCheckResult: out.FactCheck.Result,
	})
}

// GetFact returns a stored fact check by short id, taken from the path or
// the "id" query parameter.
func (h *Handler) GetFact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing shortId")
		return
	}

	fc, err := h.store.GetFactCheck(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get fact check")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if fc == nil {
		writeError(w, http.StatusNotFound, "Fact-check not found")
		return
	}

	writeJSON(w, http.StatusOK, models.StoredFactCheckResponse{
		Success:          true,
		Claim:            fc.Claim,
		ReferenceURL:     fc.ReferenceURL,
		CreatedAt:        fc.CreatedAt,
		ClaimCheckResult: fc.Result,
	})
}

// ListFactChecks returns paginated fact checks.
func (h *Handler) ListFactChecks(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 20)

	results, err := h.store.ListFactChecks(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list fact checks")
		writeError(w, http.StatusInternalServerError, "Failed to list fact checks")
		return
	}
	if results == nil {
		results = []*models.FactCheck{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"factChecks": results,
		"limit":      limit,
		"offset":     offset,
	})
}

// GetAuditLogs returns paginated audit logs.
func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)

	logs, err := h.store.GetAuditLogs(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get audit logs")
		writeError(w, http.StatusInternalServerError, "Failed to get audit logs")
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"logs":    logs,
		"limit":   limit,
		"offset":  offset,
	})
}

func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}

	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Success: false, Error: message})
}
