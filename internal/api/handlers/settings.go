package handlers

import (
	"net/http"

	"github.com/Manjussha/tokenbench/internal/store"
)

// GetSettings handles GET /api/v1/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Load(r.Context())
	if err != nil {
		fail(w, http.StatusInternalServerError, "settings: "+err.Error())
		return
	}
	ok(w, s)
}

// UpdateSettings handles PUT /api/v1/settings. Fields missing from the body
// keep their stored values.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := h.settings.Load(ctx)
	if err != nil {
		fail(w, http.StatusInternalServerError, "settings: "+err.Error())
		return
	}
	req := current
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	saved, err := h.settings.Save(ctx, store.Settings{Preprocess: req.Preprocess, Budget: req.Budget})
	if err != nil {
		fail(w, http.StatusInternalServerError, "save: "+err.Error())
		return
	}
	ok(w, saved)
}
