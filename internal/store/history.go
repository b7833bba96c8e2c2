package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry types.
const (
	EntryAnalyze = "analyze"
	EntryBatch   = "batch"
	EntryCompare = "compare"
)

// HistoryEntry is one past invocation, newest first in the list.
type HistoryEntry struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Date        time.Time       `json:"date"`
	Tokenizer   string          `json:"tokenizer"`
	FileNames   []string        `json:"fileNames,omitempty"`
	TotalTokens int             `json:"totalTokens"`
	Results     json.RawMessage `json:"results,omitempty"`
}

// History is the most-recent-N list of entries under KeyHistory.
type History struct {
	mu    sync.Mutex
	kv    KV
	limit int
	now   func() time.Time
}

// NewHistory creates a History that keeps at most limit entries.
func NewHistory(kv KV, limit int) *History {
	if limit <= 0 {
		limit = 50
	}
	return &History{kv: kv, limit: limit, now: time.Now}
}

// Limit returns the retention cap.
func (h *History) Limit() int { return h.limit }

// List returns all stored entries, newest first.
func (h *History) List(ctx context.Context) ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Add prepends e and truncates the list to the cap. ID and Date are filled when empty.
func (h *History) Add(ctx context.Context, e HistoryEntry) (HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Date.IsZero() {
		e.Date = h.now().UTC()
	}
	if e.TotalTokens < 0 {
		e.TotalTokens = 0
	}

	entries, err := h.load(ctx)
	if err != nil {
		return HistoryEntry{}, err
	}
	entries = append([]HistoryEntry{e}, entries...)
	if len(entries) > h.limit {
		entries = entries[:h.limit]
	}
	if err := h.save(ctx, entries); err != nil {
		return HistoryEntry{}, err
	}
	return e, nil
}

// Clear removes all entries.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.kv.Delete(ctx, KeyHistory); err != nil {
		return fmt.Errorf("history.Clear: %w", err)
	}
	return nil
}

// PurgeOlderThan drops entries older than maxAge and returns how many were removed.
func (h *History) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := h.now().Add(-maxAge)
	kept := entries[:0]
	for _, e := range entries {
		if e.Date.After(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := h.save(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (h *History) load(ctx context.Context) ([]HistoryEntry, error) {
	raw, ok, err := h.kv.Get(ctx, KeyHistory)
	if err != nil {
		return nil, fmt.Errorf("history.load: %w", err)
	}
	if !ok {
		return []HistoryEntry{}, nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Corrupt blob: start over rather than block every analysis.
		log.Printf("history.load: discarding unreadable history: %v", err)
		return []HistoryEntry{}, nil
	}
	return entries, nil
}

func (h *History) save(ctx context.Context, entries []HistoryEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("history.save: marshal: %w", err)
	}
	if err := h.kv.Set(ctx, KeyHistory, raw); err != nil {
		return fmt.Errorf("history.save: %w", err)
	}
	return nil
}
