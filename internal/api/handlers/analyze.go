package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/Manjussha/tokenbench/internal/visualize"
)

// Analyze handles POST /api/v1/analyze. It blocks until the backend answers;
// progress is streamed over /ws.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	report, err := h.ws.Analyze(r.Context())
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, report)
}

// CancelAnalysis handles POST /api/v1/analyze/cancel.
func (h *Handler) CancelAnalysis(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]bool{"cancelled": h.ws.Cancel()})
}

// GetAnalysis handles GET /api/v1/analysis.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a := h.ws.Analysis()
	if a == nil {
		fail(w, http.StatusNotFound, "Run an analysis first")
		return
	}
	ok(w, map[string]interface{}{
		"tokenizer": h.ws.AnalyzedWith(),
		"result":    a,
	})
}

// Compare handles POST /api/v1/compare.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileName string `json:"file_name"`
	}
	if err := decodeOptional(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	cmp, err := h.ws.Compare(r.Context(), req.FileName)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, cmp)
}

// Batch handles POST /api/v1/batch.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	rows, err := h.ws.Batch(r.Context())
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, rows)
}

// Chunks handles POST /api/v1/chunks.
func (h *Handler) Chunks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileName  string `json:"file_name"`
		ChunkSize int    `json:"chunk_size"`
		Overlap   int    `json:"overlap"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	chunks, err := h.ws.GenerateChunks(r.Context(), req.FileName, req.ChunkSize, req.Overlap)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, map[string]interface{}{"count": len(chunks), "chunks": chunks})
}

// Visualize handles GET /api/v1/visualize?file=&limit=.
func (h *Handler) Visualize(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", visualize.DefaultLimit)
	if err != nil {
		failErr(w, err)
		return
	}
	view, err := h.ws.Visualize(r.Context(), r.URL.Query().Get("file"), limit)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, view)
}

// AnalyzeText handles POST /api/v1/text.
func (h *Handler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := h.ws.AnalyzeText(r.Context(), req.Text)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, res)
}

// ChatCalc handles POST /api/v1/chat. The body is the raw message array.
func (h *Handler) ChatCalc(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, h.maxUpload))
	if err != nil {
		fail(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	res, err := h.ws.ChatCalc(r.Context(), raw)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, res)
}

// Diff handles GET /api/v1/diff?a=&b=.
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := h.ws.Diff(q.Get("a"), q.Get("b"))
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, d)
}

// FileTypes handles GET /api/v1/file-types.
func (h *Handler) FileTypes(w http.ResponseWriter, r *http.Request) {
	ok(w, h.ws.FileTypes())
}

// decodeOptional decodes a JSON body, treating an empty body as no fields.
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := decode(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
