package handlers

import (
	"net/http"
	"time"

	"github.com/Manjussha/tokenbench/internal/db"
)

// GetUsage handles GET /api/v1/usage.
// Query params: period=daily|weekly|monthly.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		fail(w, http.StatusServiceUnavailable, "usage tracking not initialized")
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = db.PeriodDaily
	}

	since, err := db.PeriodStart(period, time.Now())
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.db.UsageSince(r.Context(), since)
	if err != nil {
		fail(w, http.StatusInternalServerError, "query: "+err.Error())
		return
	}
	if rows == nil {
		rows = []db.UsageDay{}
	}
	var tokens int
	var cost float64
	for _, u := range rows {
		tokens += u.Tokens
		cost += u.Cost
	}
	ok(w, map[string]interface{}{
		"period": period,
		"since":  since,
		"tokens": tokens,
		"cost":   cost,
		"rows":   rows,
	})
}
