package api

import (
	"net/http"

	"github.com/factchecker/factcheckit/internal/config"
	"github.com/factchecker/factcheckit/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg *config.Config, checker Checker, store database.Store) http.Handler {
	r := chi.NewRouter()

	handler := NewHandler(checker, store)

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(OptionsMiddleware)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(AuditMiddleware(store))

			r.With(RateLimitMiddleware(cfg.RateLimits.RequestsPerMinute)).
				Post("/fact-check", handler.FactCheck)

			r.Get("/fact", handler.GetFact)
			r.Get("/fact/{id}", handler.GetFact)
			r.Get("/fact-checks", handler.ListFactChecks)

			// Audit entries carry client addresses; without a token the route does not exist.
			if cfg.Server.AdminToken != "" {
				r.With(AdminAuthMiddleware(cfg.Server.AdminToken)).Get("/audit", handler.GetAuditLogs)
			}
		})
	})

	if cfg.Server.EnableUI {
		r.Get("/", landingPage)
	}

	return r
}

func landingPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Fact-CheckIt</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #2563eb; }
        code { background: #f1f5f9; padding: 2px 6px; border-radius: 4px; }
        .endpoint { margin: 10px 0; }
    </style>
</head>
<body>
    <h1>Fact-CheckIt</h1>
    <p>Bust myths and clarify claims, ready to share. Use the API endpoints below:</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><code>POST /api/fact-check</code> - Check a claim, body <code>{"claim": "..."}</code></div>
    <div class="endpoint"><code>GET /api/fact/{id}</code> - Get a shared fact check</div>
    <div class="endpoint"><code>GET /api/fact-checks</code> - List recent fact checks</div>
    <div class="endpoint"><code>GET /api/health</code> - Health check</div>
</body>
</html>`))
}
