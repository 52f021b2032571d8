package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidContracts(t *testing.T) {
	out, _, err := execute(t, "validate", contractsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All contracts valid (2 behavior(s), 5 clause(s))")
}

func TestValidate_ValidContractsJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", contractsDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Behaviors)
	assert.Equal(t, 5, resp.Data.Clauses)
}

func TestValidate_RuleViolation(t *testing.T) {
	out, _, err := execute(t, "validate", invalidDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 1 error(s)")
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E107")
}

func TestValidate_RuleViolationJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", invalidDir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E107", resp.Error.Code)
}

func TestValidate_LoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing path", filepath.Join(t.TempDir(), "missing"), "E005"},
		{"empty directory", t.TempDir(), "E003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "validate", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestValidate_RequiresPath(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
}
