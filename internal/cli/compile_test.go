package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Text(t *testing.T) {
	out, _, err := execute(t, "compile", contractsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 2 behavior(s)")
	assert.Contains(t, out, "Transfer: 1 precondition(s), 2 postcondition(s), 1 invariant(s)")
	assert.Contains(t, out, "Deposit: 0 precondition(s), 1 postcondition(s), 0 invariant(s)")
}

func TestCompile_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", contractsDir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Behaviors, 2)

	byName := map[string]CompiledBehavior{}
	for _, b := range resp.Data.Behaviors {
		byName[b.Name] = b
	}
	assert.Equal(t, "banking", byName["Transfer"].Domain)
	assert.Equal(t, 2, byName["Transfer"].Clauses["postcondition"])
}

func TestCompile_BundleValidates(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "contracts.json")

	out, _, err := execute(t, "compile", contractsDir, "-o", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote bundle to "+bundle)

	data, err := os.ReadFile(bundle)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	out, _, err = execute(t, "validate", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All contracts valid (2 behavior(s), 5 clause(s))")
}

func TestCompile_InvalidContracts(t *testing.T) {
	_, _, err := execute(t, "compile", invalidDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCompile_MissingPath(t *testing.T) {
	_, _, err := execute(t, "compile", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
}
