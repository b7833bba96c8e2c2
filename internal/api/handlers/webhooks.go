package handlers

import (
	"net/http"
	"net/url"
)

// TestWebhook handles POST /api/v1/webhooks/test. It posts one test payload
// to the given URL without retrying.
func (h *Handler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}
	if h.webhook == nil {
		fail(w, http.StatusServiceUnavailable, "webhook dispatcher not initialized")
		return
	}
	if err := h.webhook.Test(r.Context(), req.URL); err != nil {
		fail(w, http.StatusBadGateway, "test failed: "+err.Error())
		return
	}
	ok(w, map[string]string{"message": "test delivered"})
}
