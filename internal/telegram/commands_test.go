package telegram

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manjussha/tokenbench/internal/db"
	"github.com/Manjussha/tokenbench/internal/store"
)

func TestRespond_Disabled(t *testing.T) {
	h := NewCommandHandler(nil, nil, nil, nil)
	assert.Equal(t, "Health checks are disabled.", h.Respond("status", ""))
	assert.Equal(t, "History is unavailable.", h.Respond("history", ""))
	assert.Equal(t, "Projects are unavailable.", h.Respond("projects", ""))
	assert.Equal(t, "Usage tracking is unavailable.", h.Respond("usage", ""))
	assert.Contains(t, h.Respond("help", ""), "/usage")
	assert.Contains(t, h.Respond("bogus", ""), "Unknown command")
}

func TestRespond_WithData(t *testing.T) {
	ctx := context.Background()
	database, err := db.New(filepath.Join(t.TempDir(), "tg_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())

	kv := store.NewMemoryKV()
	history := store.NewHistory(kv, 10)
	projects := store.NewProjects(kv, 10)
	for i := 0; i < 3; i++ {
		_, err := history.Add(ctx, store.HistoryEntry{Type: store.EntryAnalyze, Tokenizer: "gpt2", TotalTokens: 1500})
		require.NoError(t, err)
	}
	_, err = projects.Create(ctx, "Docs")
	require.NoError(t, err)
	require.NoError(t, database.RecordUsage(ctx, "gpt2", 1500, 0.045))

	h := NewCommandHandler(database, history, projects, func() string { return "ok (12ms)" })

	assert.Contains(t, h.Respond("status", ""), "ok (12ms)")

	out := h.Respond("history", "2")
	assert.Equal(t, 2, strings.Count(out, "`gpt2`"))
	assert.Contains(t, out, "1,500 tokens")

	assert.Contains(t, h.Respond("projects", ""), "Docs (active): 0 run(s)")
	assert.Contains(t, h.Respond("usage", ""), "`gpt2` 1 run(s), 1,500 tokens, $0.0450")
}

func TestRespond_EscapesMarkdown(t *testing.T) {
	ctx := context.Background()
	projects := store.NewProjects(store.NewMemoryKV(), 10)
	_, err := projects.Create(ctx, "my_docs *draft*")
	require.NoError(t, err)

	h := NewCommandHandler(nil, nil, projects, func() string { return "error: dial tcp: lookup token_counter" })
	assert.Contains(t, h.Respond("projects", ""), `my\_docs \*draft\* (active)`)
	assert.Contains(t, h.Respond("status", ""), `lookup token\_counter`)
}
