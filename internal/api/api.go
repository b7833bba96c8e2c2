// Package api sets up the HTTP routes and middleware for the tokenbench REST API.
package api

import (
	"net/http"

	"github.com/Manjussha/tokenbench/internal/api/handlers"
	"github.com/Manjussha/tokenbench/internal/auth"
	"github.com/Manjussha/tokenbench/internal/proxy"
)

// Deps holds all dependencies injected into the API handlers.
type Deps struct {
	handlers.Deps
	Proxy          *proxy.Proxy
	Guard          *auth.Guard
	AllowedOrigins []string
}

// NewRouter builds the ServeMux and wraps it in the middleware chain.
func NewRouter(deps *Deps) http.Handler {
	mux := http.NewServeMux()
	SetupRoutes(mux, deps)
	return loggingMiddleware(recoveryMiddleware(corsMiddleware(deps.AllowedOrigins, mux)))
}

// SetupRoutes registers all HTTP routes on the given ServeMux.
// Uses Go 1.22 method+pattern routing syntax.
func SetupRoutes(mux *http.ServeMux, deps *Deps) {
	h := handlers.New(deps.Deps)

	protect := func(fn http.HandlerFunc) http.Handler {
		return deps.Guard.RequireKey(fn)
	}

	// ── Backend pass-through (same paths as the tokenizer backend) ──────────
	if deps.Proxy != nil {
		deps.Proxy.Register(mux)
	}

	// Status
	mux.Handle("GET /api/v1/status", protect(h.Status))

	// Queue
	mux.Handle("GET /api/v1/queue", protect(h.ListQueue))
	mux.Handle("POST /api/v1/queue", protect(h.UploadFiles))
	mux.Handle("DELETE /api/v1/queue", protect(h.ClearQueue))
	mux.Handle("DELETE /api/v1/queue/{index}", protect(h.RemoveFile))
	mux.Handle("PUT /api/v1/tokenizer", protect(h.SetTokenizer))

	// Analysis
	mux.Handle("POST /api/v1/analyze", protect(h.Analyze))
	mux.Handle("POST /api/v1/analyze/cancel", protect(h.CancelAnalysis))
	mux.Handle("GET /api/v1/analysis", protect(h.GetAnalysis))

	// Tools
	mux.Handle("POST /api/v1/compare", protect(h.Compare))
	mux.Handle("POST /api/v1/batch", protect(h.Batch))
	mux.Handle("POST /api/v1/chunks", protect(h.Chunks))
	mux.Handle("GET /api/v1/visualize", protect(h.Visualize))
	mux.Handle("POST /api/v1/text", protect(h.AnalyzeText))
	mux.Handle("POST /api/v1/chat", protect(h.ChatCalc))
	mux.Handle("GET /api/v1/diff", protect(h.Diff))
	mux.Handle("GET /api/v1/file-types", protect(h.FileTypes))

	// Pricing and reports
	mux.Handle("GET /api/v1/pricing", protect(h.ListPricing))
	mux.Handle("GET /api/v1/cost", protect(h.CostMatrix))
	mux.Handle("GET /api/v1/estimate", protect(h.Estimate))
	mux.Handle("GET /api/v1/budget", protect(h.Budget))
	mux.Handle("GET /api/v1/export", protect(h.Export))
	mux.Handle("GET /api/v1/summary", protect(h.Summary))

	// History and projects
	mux.Handle("GET /api/v1/history", protect(h.ListHistory))
	mux.Handle("DELETE /api/v1/history", protect(h.ClearHistory))
	mux.Handle("GET /api/v1/projects", protect(h.ListProjects))
	mux.Handle("POST /api/v1/projects", protect(h.CreateProject))
	mux.Handle("GET /api/v1/projects/{id}", protect(h.GetProject))
	mux.Handle("PUT /api/v1/projects/{id}/active", protect(h.ActivateProject))

	// Settings and usage
	mux.Handle("GET /api/v1/settings", protect(h.GetSettings))
	mux.Handle("PUT /api/v1/settings", protect(h.UpdateSettings))
	mux.Handle("GET /api/v1/usage", protect(h.GetUsage))

	// Webhooks
	mux.Handle("POST /api/v1/webhooks/test", protect(h.TestWebhook))

	// WebSocket endpoint.
	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.ServeWS)
	}
}
