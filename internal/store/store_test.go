package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manjussha/tokenbench/internal/db"
	"github.com/Manjussha/tokenbench/internal/preprocess"
)

func TestSQLiteKV(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "kv_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())

	kv := NewSQLiteKV(database)
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, KeyHistory)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, KeyHistory, []byte(`[1]`)))
	require.NoError(t, kv.Set(ctx, KeyHistory, []byte(`[2]`)))
	v, ok, err := kv.Get(ctx, KeyHistory)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[2]`, string(v))

	require.NoError(t, kv.Delete(ctx, KeyHistory))
	require.NoError(t, kv.Delete(ctx, KeyHistory))
	_, ok, _ = kv.Get(ctx, KeyHistory)
	assert.False(t, ok)
}

func TestMemoryKV_Copies(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	in := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", in))
	in[0] = 'x'
	out, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(out))
}

func TestHistory_AddCapsAndPrepends(t *testing.T) {
	h := NewHistory(NewMemoryKV(), 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e, err := h.Add(ctx, HistoryEntry{Type: EntryAnalyze, Tokenizer: "cl100k_base", TotalTokens: i})
		require.NoError(t, err)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Date.IsZero())
	}

	entries, err := h.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 4, entries[0].TotalTokens)
	assert.Equal(t, 2, entries[2].TotalTokens)
}

func TestHistory_ClampAndClear(t *testing.T) {
	h := NewHistory(NewMemoryKV(), 0)
	assert.Equal(t, 50, h.Limit())
	ctx := context.Background()

	e, err := h.Add(ctx, HistoryEntry{Type: EntryBatch, TotalTokens: -5})
	require.NoError(t, err)
	assert.Equal(t, 0, e.TotalTokens)

	require.NoError(t, h.Clear(ctx))
	entries, err := h.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistory_CorruptBlob(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, KeyHistory, []byte("{not json")))

	h := NewHistory(kv, 10)
	entries, err := h.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = h.Add(ctx, HistoryEntry{Type: EntryCompare})
	require.NoError(t, err)
	entries, _ = h.List(ctx)
	assert.Len(t, entries, 1)
}

func TestHistory_PurgeOlderThan(t *testing.T) {
	h := NewHistory(NewMemoryKV(), 10)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := h.Add(ctx, HistoryEntry{Type: EntryAnalyze, Date: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = h.Add(ctx, HistoryEntry{Type: EntryAnalyze, Date: now.Add(-time.Hour)})
	require.NoError(t, err)

	removed, err := h.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, _ := h.List(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, now.Add(-time.Hour), entries[0].Date)

	removed, err = h.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestProjects_CreateAndActive(t *testing.T) {
	p := NewProjects(NewMemoryKV(), 0)
	ctx := context.Background()

	id, err := p.ActiveID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = p.Create(ctx, "   ")
	assert.Error(t, err)

	a, err := p.Create(ctx, "  Alpha ")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", a.Name)
	assert.NotNil(t, a.Runs)

	b, err := p.Create(ctx, "Beta")
	require.NoError(t, err)

	id, _ = p.ActiveID(ctx)
	assert.Equal(t, b.ID, id)

	list, err := p.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Beta", list[0].Name)

	require.NoError(t, p.SetActive(ctx, a.ID))
	id, _ = p.ActiveID(ctx)
	assert.Equal(t, a.ID, id)

	assert.ErrorIs(t, p.SetActive(ctx, "missing"), ErrProjectNotFound)
	_, err = p.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjects_ActiveRestoredFromFirstStored(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	first := NewProjects(kv, 10)
	_, err := first.Create(ctx, "Old")
	require.NoError(t, err)
	newest, err := first.Create(ctx, "New")
	require.NoError(t, err)

	reopened := NewProjects(kv, 10)
	id, err := reopened.ActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, id)
}

func TestProjects_EnsureActive(t *testing.T) {
	p := NewProjects(NewMemoryKV(), 10)
	ctx := context.Background()

	id, err := p.EnsureActive(ctx)
	require.NoError(t, err)
	pr, err := p.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Project 1", pr.Name)

	again, err := p.EnsureActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestProjects_AddRunCaps(t *testing.T) {
	p := NewProjects(NewMemoryKV(), 2)
	ctx := context.Background()
	pr, err := p.Create(ctx, "Runs")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := p.AddRun(ctx, pr.ID, ProjectRun{Summary: fmt.Sprintf("run %d", i), TotalTokens: i, Tokenizer: "gpt2"})
		require.NoError(t, err)
	}
	got, err := p.Get(ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, got.Runs, 2)
	assert.Equal(t, "run 2", got.Runs[0].Summary)
	assert.Equal(t, "run 1", got.Runs[1].Summary)

	_, err = p.AddRun(ctx, "missing", ProjectRun{})
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestSettings_MergeOverDefaults(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	s := NewSettingsStore(kv, DefaultSettings(5))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, preprocess.Defaults(), got.Preprocess)
	assert.Equal(t, 5.0, got.Budget)

	require.NoError(t, kv.Set(ctx, KeySettings, []byte(`{"preprocess":{"stripHtml":true}}`)))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.Preprocess.StripHTML)
	assert.True(t, got.Preprocess.NormalizeWhitespace)
	assert.Equal(t, 5.0, got.Budget)

	require.NoError(t, kv.Set(ctx, KeySettings, []byte(`not json`)))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(5), got)
}

func TestSettings_SaveClampsBudget(t *testing.T) {
	s := NewSettingsStore(NewMemoryKV(), DefaultSettings(0))
	ctx := context.Background()

	saved, err := s.Save(ctx, Settings{Budget: -3})
	require.NoError(t, err)
	assert.Zero(t, saved.Budget)

	saved, err = s.Save(ctx, Settings{Budget: 2.5, Preprocess: preprocess.Options{RedactEmails: true}})
	require.NoError(t, err)
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}
