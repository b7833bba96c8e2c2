// Package handlers provides HTTP handler implementations for the tokenbench REST API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Manjussha/tokenbench/internal/apperr"
	"github.com/Manjussha/tokenbench/internal/db"
	"github.com/Manjussha/tokenbench/internal/pricing"
	"github.com/Manjussha/tokenbench/internal/scheduler"
	"github.com/Manjussha/tokenbench/internal/store"
	"github.com/Manjussha/tokenbench/internal/webhook"
	"github.com/Manjussha/tokenbench/internal/workspace"
	"github.com/Manjussha/tokenbench/internal/ws"
)

// DefaultMaxUploadBytes bounds a multipart upload held in memory.
const DefaultMaxUploadBytes int64 = 64 << 20

// Deps are the collaborators the handlers read from. Workspace, History,
// Projects and Settings are required.
type Deps struct {
	Workspace      *workspace.Workspace
	DB             *db.DB
	History        *store.History
	Projects       *store.Projects
	Settings       *store.SettingsStore
	Hub            *ws.Hub
	Scheduler      *scheduler.Engine
	Webhook        *webhook.Dispatcher
	Models         []pricing.Model
	MaxUploadBytes int64
	Version        string
}

// Handler holds all shared dependencies for API handler methods.
type Handler struct {
	ws        *workspace.Workspace
	db        *db.DB
	history   *store.History
	projects  *store.Projects
	settings  *store.SettingsStore
	hub       *ws.Hub
	scheduler *scheduler.Engine
	webhook   *webhook.Dispatcher
	models    []pricing.Model
	maxUpload int64
	version   string
	started   time.Time
}

// New creates a Handler with all dependencies.
func New(d Deps) *Handler {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(d.Models) == 0 {
		d.Models = pricing.DefaultModels()
	}
	return &Handler{
		ws:        d.Workspace,
		db:        d.DB,
		history:   d.History,
		projects:  d.Projects,
		settings:  d.Settings,
		hub:       d.Hub,
		scheduler: d.Scheduler,
		webhook:   d.Webhook,
		models:    d.Models,
		maxUpload: d.MaxUploadBytes,
		version:   d.Version,
		started:   time.Now(),
	}
}

// ── Response helpers ──────────────────────────────────────────────────────────

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{Success: true, Data: data})
}

func fail(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response{Success: false, Error: msg})
}

// failErr maps err to a status code via apperr and writes its user-facing message.
func failErr(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrProjectNotFound) {
		fail(w, http.StatusNotFound, err.Error())
		return
	}
	msg := err.Error()
	if msg == "" {
		msg = "Please try again."
	}
	fail(w, apperr.HTTPStatus(err), msg)
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request, name string) string {
	return r.PathValue(name)
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("invalid " + name)
	}
	return n, nil
}

// queryFloat parses an optional float query parameter.
func queryFloat(r *http.Request, name string, fallback float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, apperr.Validation("invalid " + name)
	}
	return f, nil
}
