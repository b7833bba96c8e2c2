package handlers

import (
	"net/http"
	"strings"

	"github.com/Manjussha/tokenbench/internal/export"
	"github.com/Manjussha/tokenbench/internal/pricing"
)

// ListPricing handles GET /api/v1/pricing.
func (h *Handler) ListPricing(w http.ResponseWriter, r *http.Request) {
	ok(w, h.models)
}

// CostMatrix handles GET /api/v1/cost.
func (h *Handler) CostMatrix(w http.ResponseWriter, r *http.Request) {
	ok(w, h.ws.CostMatrix(h.models))
}

// Estimate handles GET /api/v1/estimate?tokens=&input=&output=.
// Without tokens it prices the last analysis total.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	total := 0
	if a := h.ws.Analysis(); a != nil {
		total = a.TotalTokens
	}
	tokens, err := queryInt(r, "tokens", total)
	if err != nil {
		failErr(w, err)
		return
	}
	in, err := queryFloat(r, "input", pricing.DefaultInputRate)
	if err != nil {
		failErr(w, err)
		return
	}
	out, err := queryFloat(r, "output", 0)
	if err != nil {
		failErr(w, err)
		return
	}
	est, err := pricing.EstimateRates(tokens, in, out)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	ok(w, est)
}

// Budget handles GET /api/v1/budget?rate=.
func (h *Handler) Budget(w http.ResponseWriter, r *http.Request) {
	rate, err := queryFloat(r, "rate", 0)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, h.ws.Budget(r.Context(), rate))
}

// Export handles GET /api/v1/export?format=csv|json|md as a file download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	a := h.ws.Analysis()
	if a == nil {
		fail(w, http.StatusNotFound, "Run an analysis first")
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatCSV
	}
	body, err := export.Render(format, a, h.ws.AnalyzedWith(), h.models)
	if err != nil {
		fail(w, http.StatusBadRequest, "unknown format "+format)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(format)+`"`)
	_, _ = w.Write(body)
}

// Summary handles GET /api/v1/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.ws.Summary()
	if err != nil {
		fail(w, http.StatusNotFound, err.Error())
		return
	}
	ok(w, map[string]string{"summary": s})
}
