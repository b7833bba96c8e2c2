package handlers

import (
	"net/http"
	"strings"
)

// ListHistory handles GET /api/v1/history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.List(r.Context())
	if err != nil {
		fail(w, http.StatusInternalServerError, "history: "+err.Error())
		return
	}
	ok(w, entries)
}

// ClearHistory handles DELETE /api/v1/history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		fail(w, http.StatusInternalServerError, "history: "+err.Error())
		return
	}
	ok(w, map[string]string{"message": "cleared"})
}

// ListProjects handles GET /api/v1/projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := h.projects.List(ctx)
	if err != nil {
		fail(w, http.StatusInternalServerError, "projects: "+err.Error())
		return
	}
	active, _ := h.projects.ActiveID(ctx)
	ok(w, map[string]interface{}{
		"active":   active,
		"projects": projects,
	})
}

// CreateProject handles POST /api/v1/projects. The new project becomes active.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		fail(w, http.StatusBadRequest, "name is required")
		return
	}
	p, err := h.projects.Create(r.Context(), req.Name)
	if err != nil {
		fail(w, http.StatusInternalServerError, "create: "+err.Error())
		return
	}
	ok(w, p)
}

// GetProject handles GET /api/v1/projects/{id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), pathID(r, "id"))
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, p)
}

// ActivateProject handles PUT /api/v1/projects/{id}/active.
func (h *Handler) ActivateProject(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if err := h.projects.SetActive(r.Context(), id); err != nil {
		failErr(w, err)
		return
	}
	ok(w, map[string]string{"active": id})
}
