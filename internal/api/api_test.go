package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/factchecker/factcheckit/internal/check"
	"github.com/factchecker/factcheckit/internal/config"
	"github.com/factchecker/factcheckit/internal/database"
	"github.com/factchecker/factcheckit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	out    *check.Outcome
	err    error
	claims []string
}

func (f *fakeChecker) Check(ctx context.Context, claim string) (*check.Outcome, error) {
	f.claims = append(f.claims, claim)
	return f.out, f.err
}

func (f *fakeChecker) MaxClaimLength() int { return 1000 }

var sample = models.ClaimCheckResult{
	Verdict:           models.VerdictFalse,
	Explanation:       "The moon is rock.",
	Sources:           []models.Source{{Title: "NASA", URL: "https://nasa.gov/moon"}},
	FormattedResponse: "❌ The moon is rock. - via Fact-CheckIt",
}

func newTestServer(t *testing.T, checker Checker, tweak func(*config.Config)) (http.Handler, *database.SQLiteStore) {
	t.Helper()

	store, err := database.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	if tweak != nil {
		tweak(cfg)
	}
	return NewRouter(cfg, checker, store), store
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp
}

func TestFactCheck(t *testing.T) {
	checker := &fakeChecker{out: &check.Outcome{FactCheck: &models.FactCheck{ShortID: "abc1234567", Result: sample}}}
	h, _ := newTestServer(t, checker, nil)

	rec := do(h, http.MethodPost, "/api/fact-check", `{"claim":"The moon is cheese"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp models.FactCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "abc1234567", resp.ID)
	assert.Equal(t, sample, resp.ClaimCheckResult)
	assert.Equal(t, []string{"The moon is cheese"}, checker.claims)

	// The result fields sit at the top level of the envelope.
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "FALSE", raw["verdict"])
	assert.Contains(t, raw, "formattedResponse")
}

func TestFactCheckErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{"invalid json", `{"claim":`, nil, http.StatusBadRequest, "Invalid request body"},
		{"missing claim", `{}`, check.ErrClaimRequired, http.StatusBadRequest, "Claim is required"},
		{"too long", `{"claim":"x"}`, check.ErrClaimTooLong, http.StatusBadRequest, "Claim too long (max 1000 characters)"},
		{"pipeline failure", `{"claim":"x"}`, errors.New("upstream down"), http.StatusInternalServerError, "Failed to fact-check. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(t, &fakeChecker{err: tt.err}, nil)

			rec := do(h, http.MethodPost, "/api/fact-check", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec).Error)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t, &fakeChecker{}, nil)

	rec := do(h, http.MethodGet, "/api/fact-check", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decodeError(t, rec).Error)
}

func TestNotFound(t *testing.T) {
	h, _ := newTestServer(t, &fakeChecker{}, nil)

	rec := do(h, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decodeError(t, rec)
}

func TestCORS(t *testing.T) {
	h, _ := newTestServer(t, &fakeChecker{}, nil)

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/fact-check", nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("bare options", func(t *testing.T) {
		rec := do(h, http.MethodOptions, "/api/fact-check", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("simple request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	checker := &fakeChecker{out: &check.Outcome{FactCheck: &models.FactCheck{ShortID: "x", Result: sample}}}
	h, _ := newTestServer(t, checker, func(c *config.Config) { c.RateLimits.RequestsPerMinute = 2 })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/fact-check", `{"claim":"x"}`).Code)
	}

	rec := do(h, http.MethodPost, "/api/fact-check", `{"claim":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "Rate limit exceeded")
	assert.Len(t, checker.claims, 2)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/health", "").Code)
}

func TestGetFact(t *testing.T) {
	h, store := newTestServer(t, &fakeChecker{}, nil)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveFactCheck(context.Background(), &models.FactCheck{
		ID:           "id-1",
		ShortID:      "abc1234567",
		Claim:        "The moon is cheese",
		ClaimHash:    check.ClaimHash("The moon is cheese"),
		Result:       sample,
		ReferenceURL: "https://en.wikipedia.org/wiki/Moon",
		Format:       "MARKDOWN_DIVIDED",
		CreatedAt:    created,
	}))

	for _, path := range []string{"/api/fact/abc1234567", "/api/fact?id=abc1234567"} {
		t.Run(path, func(t *testing.T) {
			rec := do(h, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp models.StoredFactCheckResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.True(t, resp.Success)
			assert.Equal(t, "The moon is cheese", resp.Claim)
			assert.Equal(t, sample, resp.ClaimCheckResult)
			assert.Equal(t, "https://en.wikipedia.org/wiki/Moon", resp.ReferenceURL)
			assert.True(t, created.Equal(resp.CreatedAt))
		})
	}

	t.Run("unknown id", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/fact/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Fact-check not found", decodeError(t, rec).Error)
	})

	t.Run("missing id", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/fact", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListFactChecks(t *testing.T) {
	h, store := newTestServer(t, &fakeChecker{}, nil)

	rec := do(h, http.MethodGet, "/api/fact-checks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty struct {
		FactChecks []models.FactCheck `json:"factChecks"`
		Limit      int                `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.NotNil(t, empty.FactChecks)
	assert.Equal(t, 20, empty.Limit)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveFactCheck(context.Background(), &models.FactCheck{
			ID: id, ShortID: id, Claim: id, ClaimHash: id, Result: sample, CreatedAt: time.Now().UTC(),
		}))
	}

	rec = do(h, http.MethodGet, "/api/fact-checks?limit=2&offset=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Success    bool               `json:"success"`
		FactChecks []models.FactCheck `json:"factChecks"`
		Limit      int                `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.True(t, page.Success)
	assert.Len(t, page.FactChecks, 2)
	assert.Equal(t, 2, page.Limit)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 20, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=0", 20, 0},
		{"?limit=500", 20, 0},
		{"?limit=abc&offset=-3", 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			limit, offset := pagination(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), 20)
			assert.Equal(t, tt.limit, limit)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestAuditLogging(t *testing.T) {
	h, store := newTestServer(t, &fakeChecker{err: check.ErrClaimRequired}, func(c *config.Config) {
		c.Server.AdminToken = "admin-secret"
	})

	rec := do(h, http.MethodPost, "/api/fact-check", `{"claim":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Eventually(t, func() bool {
		logs, err := store.GetAuditLogs(context.Background(), 10, 0)
		return err == nil && len(logs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	logs, err := store.GetAuditLogs(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "/api/fact-check", logs[0].Endpoint)
	assert.Equal(t, http.MethodPost, logs[0].Method)
	assert.Equal(t, http.StatusBadRequest, logs[0].ResponseCode)

	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"logs"`)
	assert.Contains(t, rec.Body.String(), `"remote_addr"`)
}

func TestAuditEndpointAuth(t *testing.T) {
	h, _ := newTestServer(t, &fakeChecker{}, func(c *config.Config) {
		c.Server.AdminToken = "admin-secret"
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic YWRtaW46c2VjcmV0", http.StatusUnauthorized},
		{"wrong token", "Bearer guess", http.StatusUnauthorized},
		{"valid token", "Bearer admin-secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				assert.NotContains(t, rec.Body.String(), "remote_addr")
				decodeError(t, rec)
			}
		})
	}
}

func TestAuditEndpointDisabledWithoutToken(t *testing.T) {
	h, _ := newTestServer(t, &fakeChecker{}, nil)

	rec := do(h, http.MethodGet, "/api/audit", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decodeError(t, rec)
}

func TestHealthAndLanding(t *testing.T) {
	h, _ := newTestServer(t, &fakeChecker{}, nil)

	rec := do(h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, Version, health["version"])

	rec = do(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fact-CheckIt")

	noUI, _ := newTestServer(t, &fakeChecker{}, func(c *config.Config) { c.Server.EnableUI = false })
	assert.Equal(t, http.StatusNotFound, do(noUI, http.MethodGet, "/", "").Code)
}

func TestRequestIDPropagation(t *testing.T) {
	h, _ := newTestServer(t, &fakeChecker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
