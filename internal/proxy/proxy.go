// Package proxy forwards the tokenizer endpoints to the backend unchanged.
// Status code, body bytes and content type are relayed as received; only
// transport failures and unreadable request bodies produce a 502.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"github.com/Manjussha/tokenbench/internal/backend"
)

// Upstream is the part of backend.Client the proxy needs.
type Upstream interface {
	URL(path string) string
	HTTPClient() *http.Client
	Wait(ctx context.Context) error
}

// Proxy relays requests to the tokenizer backend.
type Proxy struct {
	upstream Upstream
}

// New creates a Proxy.
func New(upstream Upstream) *Proxy {
	return &Proxy{upstream: upstream}
}

// Register mounts the pass-through routes at the backend's own paths.
func (p *Proxy) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+backend.PathCountTokens, p.CountTokens)
	mux.HandleFunc("POST "+backend.PathAnalyze, p.JSON(backend.PathAnalyze))
	mux.HandleFunc("POST "+backend.PathBatch, p.JSON(backend.PathBatch))
	mux.HandleFunc("POST "+backend.PathCompare, p.JSON(backend.PathCompare))
	mux.HandleFunc("GET "+backend.PathHealth, p.Health)
}

// CountTokens re-encodes the incoming multipart form part by part, keeping
// field names, file names and order, and forwards it.
func (p *Proxy) CountTokens(w http.ResponseWriter, r *http.Request) {
	path := backend.PathCountTokens
	mr, err := r.MultipartReader()
	if err != nil {
		p.fail(w, path, err)
		return
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.fail(w, path, err)
			return
		}
		if err := copyPart(mw, part); err != nil {
			part.Close()
			p.fail(w, path, err)
			return
		}
		part.Close()
	}
	if err := mw.Close(); err != nil {
		p.fail(w, path, err)
		return
	}
	p.forward(w, r, path, http.MethodPost, mw.FormDataContentType(), &body)
}

func copyPart(mw *multipart.Writer, part *multipart.Part) error {
	name := part.FormName()
	if part.FileName() == "" {
		value, err := io.ReadAll(part)
		if err != nil {
			return fmt.Errorf("proxy.copyPart: read field %s: %w", name, err)
		}
		return mw.WriteField(name, string(value))
	}
	dst, err := mw.CreateFormFile(name, part.FileName())
	if err != nil {
		return fmt.Errorf("proxy.copyPart: create %s: %w", name, err)
	}
	if _, err := io.Copy(dst, part); err != nil {
		return fmt.Errorf("proxy.copyPart: copy %s: %w", name, err)
	}
	return nil
}

// JSON returns a handler that parses the body as JSON, re-serializes it and forwards it.
func (p *Proxy) JSON(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var payload interface{}
		if err := dec.Decode(&payload); err != nil {
			p.fail(w, path, err)
			return
		}
		body, err := json.Marshal(payload)
		if err != nil {
			p.fail(w, path, err)
			return
		}
		p.forward(w, r, path, http.MethodPost, "application/json", bytes.NewReader(body))
	}
}

// Health forwards the liveness probe.
func (p *Proxy) Health(w http.ResponseWriter, r *http.Request) {
	p.forward(w, r, backend.PathHealth, http.MethodGet, "", nil)
}

func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, path, method, contentType string, body io.Reader) {
	ctx := r.Context()
	if err := p.upstream.Wait(ctx); err != nil {
		p.fail(w, path, err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, method, p.upstream.URL(path), body)
	if err != nil {
		p.fail(w, path, err)
		return
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)

	resp, err := p.upstream.HTTPClient().Do(req)
	if err != nil {
		p.fail(w, path, err)
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		p.fail(w, path, err)
		return
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(raw)
}

func (p *Proxy) fail(w http.ResponseWriter, path string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "Failed to proxy " + path
	}
	log.Printf("proxy %s: %v", path, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
