package handlers

import (
	"net/http"
	"time"

	"github.com/Manjussha/tokenbench/internal/scheduler"
)

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	health := scheduler.Health{Status: scheduler.StatusIdle}
	if h.scheduler != nil {
		health = h.scheduler.Health()
	}
	q := h.ws.Queue()
	ok(w, map[string]interface{}{
		"version":    h.version,
		"started_at": h.started.Format(time.RFC3339),
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"backend":    health,
		"ws_clients": h.hub.ClientCount(),
		"queued":     len(q.Files),
		"analyzing":  q.Analyzing,
		"tokenizer":  q.Tokenizer,
	})
}
