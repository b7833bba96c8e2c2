package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWorkDir_EnvOverride(t *testing.T) {
	t.Setenv("WORK_DIR", "/tmp/tokenbench-work")
	assert.Equal(t, "/tmp/tokenbench-work", DefaultWorkDir())
	assert.Equal(t, filepath.Join("/tmp/tokenbench-work", "a", "b.db"), DataPath("a", "b.db"))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
