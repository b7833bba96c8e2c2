package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORK_DIR", dir)
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
	assert.Equal(t, filepath.Join(dir, "tokenbench.db"), cfg.DBPath)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, 100, cfg.ProjectRunLimit)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxTextBytes)
	assert.Equal(t, "cl100k_base", cfg.DefaultEncoding)
	assert.Equal(t, 50.0, cfg.DefaultBudget)
	assert.Zero(t, cfg.RetentionHours, "history purge is opt-in")
}

func TestLoad_ProductionBackendDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORK_DIR", dir)
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("APP_ENV", "production")

	assert.Equal(t, "http://token-counter-backend:5000", Load().BackendURL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokenbench.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "9000"
backend_url = "http://tok:5000/"
backend_timeout = "5s"
history_limit = 10
webhook_urls = ["http://hook.local/a"]

[telegram]
token = "abc"
chat_id = 42
`), 0o644))

	t.Setenv("WORK_DIR", dir)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg := Load()
	assert.Equal(t, "9100", cfg.Port, "env wins over file")
	assert.Equal(t, "http://tok:5000", cfg.BackendURL, "trailing slash stripped")
	assert.Equal(t, 5*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, []string{"http://hook.local/a"}, cfg.WebhookURLs)
	assert.Equal(t, "abc", cfg.TelegramToken)
	assert.Equal(t, int64(42), cfg.TelegramChatID)
}

func TestLoadFile_Missing(t *testing.T) {
	err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"), Defaults())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`backend_timeout = "soon"`), 0o644))
	assert.Error(t, LoadFile(path, Defaults()))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("LIST_TEST", " a, ,b ")
	assert.Equal(t, []string{"a", "b"}, getEnvList("LIST_TEST", nil))
	assert.Equal(t, []string{"x"}, getEnvList("LIST_UNSET", []string{"x"}))
}

func TestFilePath(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	assert.Equal(t, filepath.Join("/srv/tb", "tokenbench.toml"), FilePath("/srv/tb"))

	t.Setenv("CONFIG_FILE", "/etc/tokenbench.toml")
	assert.Equal(t, "/etc/tokenbench.toml", FilePath("/srv/tb"))
}
