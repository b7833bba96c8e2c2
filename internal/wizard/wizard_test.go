package wizard

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manjussha/tokenbench/internal/config"
)

func TestRun_WritesLoadableConfig(t *testing.T) {
	input := strings.Join([]string{
		"9090",                      // port
		"http://tok.internal:5000/", // backend
		"n",                         // local fallback
		"o200k",                     // unknown encoding, re-prompted
		"gpt2",                      // encoding
		"-1",                        // bad budget, re-prompted
		"12.5",                      // budget
		"k1", "k2",                  // mismatched keys
		"s3cret", "s3cret",          // access key
		"123:abc",                   // telegram token
		"nope",                      // bad chat id
		"4242",                      // chat id
		"y",                         // confirm
	}, "\n") + "\n"

	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "conf", "tokenbench.toml")
	a, err := NewWith(strings.NewReader(input), &out).Run(path, "test")
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, "9090", a.Port)
	assert.Equal(t, "http://tok.internal:5000", a.BackendURL)
	assert.False(t, a.LocalFallback)
	assert.Equal(t, "gpt2", a.DefaultEncoding)
	assert.Equal(t, 12.5, a.DefaultBudget)
	assert.Equal(t, "s3cret", a.AccessKey)
	assert.Contains(t, out.String(), "Keys do not match")
	assert.Contains(t, out.String(), "Choose one of")

	cfg := config.Defaults()
	require.NoError(t, config.LoadFile(path, cfg))
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://tok.internal:5000", cfg.BackendURL)
	assert.Equal(t, "gpt2", cfg.DefaultEncoding)
	assert.Equal(t, 12.5, cfg.DefaultBudget)
	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.EqualValues(t, 4242, cfg.TelegramChatID)
	assert.Empty(t, cfg.AccessKey)
}

func TestRun_DefaultsAndCancel(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "tokenbench.toml")
	// Every prompt takes its default except the final confirmation.
	input := strings.Repeat("\n", 7) + "n\n"
	a, err := NewWith(strings.NewReader(input), &out).Run(path, "test")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Contains(t, out.String(), "Cancelled")
	assert.NoFileExists(t, path)
}

func TestRun_EOFUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenbench.toml")
	a, err := NewWith(strings.NewReader(""), &bytes.Buffer{}).Run(path, "test")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "8080", a.Port)
	assert.Equal(t, "cl100k_base", a.DefaultEncoding)
	assert.True(t, a.LocalFallback)
	assert.Nil(t, a.Telegram)
	assert.FileExists(t, path)
}

func TestDashboardURLs(t *testing.T) {
	urls := DashboardURLs("8080")
	require.NotEmpty(t, urls)
	assert.Equal(t, "http://localhost:8080", urls[len(urls)-1])
}
