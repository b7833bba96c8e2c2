package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manjussha/tokenbench/internal/backend"
	"github.com/Manjussha/tokenbench/internal/config"
	"github.com/Manjussha/tokenbench/internal/pricing"
	"github.com/Manjussha/tokenbench/internal/tokenizer"
)

// wordEncoder emits one token per whitespace-separated word.
type wordEncoder struct{}

func (wordEncoder) Encode(text string, _ []string, _ []string) []int {
	return make([]int, len(strings.Fields(text)))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.WorkDir = dir
	cfg.DBPath = filepath.Join(dir, "data", "tokenbench.db")
	return cfg
}

func newTestApp(cfg *config.Config) *App {
	a := NewApp("test")
	a.cfg = cfg
	a.models = pricing.DefaultModels()
	a.counter = backend.NewLocal(tokenizer.NewLocalCounterWith(func(string) (tokenizer.Encoder, error) {
		return wordEncoder{}, nil
	}))
	return a
}

// run executes one command line against a fresh App sharing cfg.
func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(newTestApp(cfg))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestCount(t *testing.T) {
	cfg := testConfig(t)
	a := writeFile(t, cfg.WorkDir, "a.txt", "one two three")
	b := writeFile(t, cfg.WorkDir, "b.md", "# Title\n\nfour five")

	out, err := run(t, cfg, "count", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "Token count (cl100k_base)")
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "b.md")
	assert.Contains(t, out, "[GREEN]")

	out, err = run(t, cfg, "--encoding", "gpt2", "count", "--json", a)
	require.NoError(t, err)
	var report struct {
		Tokenizer   string `json:"tokenizer"`
		TotalTokens int    `json:"total_tokens"`
		ProjectID   string `json:"project_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "gpt2", report.Tokenizer)
	assert.Equal(t, 3, report.TotalTokens)
	assert.NotEmpty(t, report.ProjectID)
}

func TestCount_Errors(t *testing.T) {
	cfg := testConfig(t)
	a := writeFile(t, cfg.WorkDir, "a.txt", "one two three")

	_, err := run(t, cfg, "count")
	assert.Error(t, err)

	_, err = run(t, cfg, "count", filepath.Join(cfg.WorkDir, "missing.txt"))
	assert.Error(t, err)

	_, err = run(t, cfg, "--encoding", "o200k", "count", a)
	assert.Error(t, err)

	bin := writeFile(t, cfg.WorkDir, "image.png", "not text")
	_, err = run(t, cfg, "count", bin)
	assert.Error(t, err)
}

func TestHistoryProjectsUsage(t *testing.T) {
	cfg := testConfig(t)
	a := writeFile(t, cfg.WorkDir, "a.txt", "one two three")

	_, err := run(t, cfg, "count", a)
	require.NoError(t, err)

	out, err := run(t, cfg, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "analyze")
	assert.Contains(t, out, "a.txt")

	out, err = run(t, cfg, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "Project 1")
	assert.Contains(t, out, "a.txt: 3 tokens")

	out, err = run(t, cfg, "projects", "create", "Docs", "site")
	require.NoError(t, err)
	assert.Contains(t, out, "Created Docs site")

	// The newest project is active on the next start.
	out, err = run(t, cfg, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "* ")
	assert.Less(t, strings.Index(out, "Docs site"), strings.Index(out, "Project 1"))

	out, err = run(t, cfg, "usage", "--period", "weekly")
	require.NoError(t, err)
	assert.Contains(t, out, "cl100k_base")
	assert.Contains(t, out, "TOTAL")

	_, err = run(t, cfg, "usage", "--period", "yearly")
	assert.Error(t, err)

	out, err = run(t, cfg, "history", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared.")

	out, err = run(t, cfg, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No history yet.")
}

func TestNoSave(t *testing.T) {
	cfg := testConfig(t)
	a := writeFile(t, cfg.WorkDir, "a.txt", "one two three")

	_, err := run(t, cfg, "--no-save", "count", a)
	require.NoError(t, err)
	assert.NoFileExists(t, cfg.DBPath)

	_, err = run(t, cfg, "--no-save", "usage")
	assert.Error(t, err)
}

func TestCompareChunkVisualize(t *testing.T) {
	cfg := testConfig(t)
	a := writeFile(t, cfg.WorkDir, "a.txt", "Hi, there friend")

	out, err := run(t, cfg, "compare", a)
	require.NoError(t, err)
	assert.Contains(t, out, "Encodings for a.txt")
	for _, enc := range []string{"cl100k_base", "p50k_base", "r50k_base", "gpt2"} {
		assert.Contains(t, out, enc)
	}

	out, err = run(t, cfg, "chunk", "--size", "2", "--overlap", "1", a)
	require.NoError(t, err)
	assert.Contains(t, out, "chunk 1/3")
	assert.Contains(t, out, "Hi, there")
	assert.Contains(t, out, "there friend")

	out, err = run(t, cfg, "chunk", "--size", "2", "--overlap", "0", "--count", a)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, err = run(t, cfg, "chunk", "--size", "0", a)
	assert.Error(t, err)

	out, err = run(t, cfg, "visualize", "--limit", "2", a)
	require.NoError(t, err)
	assert.Contains(t, out, "[Hi] [,]")
	assert.Contains(t, out, "2 more spans")
}

func TestCost(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "cost", "--tokens", "1000000", "--input-rate", "2", "--output-rate", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Cost of 1,000,000 tokens")
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Gemini 1.5 Pro") {
			assert.Contains(t, line, "cheapest")
		}
		if strings.Contains(line, "GPT-4o") {
			assert.Contains(t, line, "5.0000")
		}
	}
	assert.Contains(t, out, "input $2.0000  output $4.0000")

	_, err = run(t, cfg, "cost")
	assert.Error(t, err)

	_, err = run(t, cfg, "cost", "--tokens", "10", "--input-rate", "-1")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	cfg := testConfig(t)
	a := writeFile(t, cfg.WorkDir, "a.txt", "one two three")
	dest := filepath.Join(cfg.WorkDir, "report.csv")

	out, err := run(t, cfg, "export", "--format", "csv", "-o", dest, a)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+dest)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Filename,Tokens,Words,Chars\n"))
	assert.Contains(t, string(data), "a.txt,3,3,13")

	out, err = run(t, cfg, "export", a)
	require.NoError(t, err)
	assert.Contains(t, out, "| a.txt |")

	_, err = run(t, cfg, "export", "--format", "xml", a)
	assert.Error(t, err)
}

func TestSetupAndVersion(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.WorkDir, "tokenbench.toml")

	var out bytes.Buffer
	root := NewRootCommand(newTestApp(cfg))
	root.SetOut(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs([]string{"--config", path, "setup"})
	require.NoError(t, root.Execute())
	assert.FileExists(t, path)
	assert.Contains(t, out.String(), "saved")

	got, err := run(t, cfg, "version")
	require.NoError(t, err)
	assert.Equal(t, "tokenbench test\n", got)
}

func TestNewCounter(t *testing.T) {
	cfg := config.Defaults()
	assert.IsType(t, &backend.Local{}, NewCounter(cfg, true))
	assert.IsType(t, &backend.Client{}, NewCounter(cfg, false))
	cfg.LocalFallback = true
	assert.IsType(t, &backend.Fallback{}, NewCounter(cfg, false))
}

// syncBuffer is a bytes.Buffer safe for the watch goroutine and the test.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestWatch_RecountsOnWrite(t *testing.T) {
	cfg := testConfig(t)
	p := writeFile(t, cfg.WorkDir, "prompt.txt", "one two three")
	app := newTestApp(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- app.watch(ctx, out, []string{p}) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching 1 file(s)")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(p, []byte("one two three four five six seven"), 0644))
	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "Token count") >= 2
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.NoFileExists(t, cfg.DBPath)

	entries, err := app.history.List(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}
