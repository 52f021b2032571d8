package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/config"
)

func TestConfigShow_Defaults(t *testing.T) {
	out, _, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_depth: 100")
	assert.Contains(t, out, "parallelism: 4")
	assert.Contains(t, out, "production_ready: 95")
}

func TestConfigShow_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "islproof.yaml")
	require.NoError(t, os.WriteFile(path, []byte("eval:\n  parallelism: 1\nstore:\n  path: runs.db\n"), 0o644))

	out, _, err := execute(t, "--config", path, "--format", "json", "config", "show")
	require.NoError(t, err)

	var resp struct {
		Data config.Config `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Eval.Parallelism)
	assert.Equal(t, 100, resp.Data.Eval.MaxDepth)
	assert.Equal(t, "runs.db", resp.Data.Store.Path)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "islproof.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Template(), string(data))

	_, _, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)

	// The template is itself a valid config.
	_, _, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
}

func TestConfigInit_Stdout(t *testing.T) {
	out, _, err := execute(t, "config", "init", "-")
	require.NoError(t, err)
	assert.Equal(t, config.Template(), out)
}
