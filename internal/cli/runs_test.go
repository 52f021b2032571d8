package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/evidence"
)

// recordRuns verifies the scenario fixtures into a fresh database.
func recordRuns(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "runs.db")
	_, _, err := execute(t, "verify", scenariosDir, "--db", db)
	require.NoError(t, err)
	return db
}

func listRuns(t *testing.T, db string) []RunSummary {
	t.Helper()
	out, _, err := execute(t, "--format", "json", "runs", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp.Data
}

func TestRuns_List(t *testing.T) {
	db := recordRuns(t)

	runs := listRuns(t, db)
	require.Len(t, runs, 2)
	verdicts := []string{runs[0].Verdict, runs[1].Verdict}
	assert.ElementsMatch(t, []string{"PROVEN", "VIOLATED"}, verdicts)
	assert.Less(t, runs[0].Seq, runs[1].Seq)

	out, _, err := execute(t, "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "transfer_happy_path")
	assert.Contains(t, out, "transfer_mixed")
}

func TestRuns_VerifyIsIdempotent(t *testing.T) {
	db := recordRuns(t)

	_, _, err := execute(t, "verify", scenariosDir, "--db", db)
	require.NoError(t, err)
	assert.Len(t, listRuns(t, db), 2)
}

func TestRuns_Detail(t *testing.T) {
	db := recordRuns(t)

	var mixed RunSummary
	for _, r := range listRuns(t, db) {
		if r.Verdict == "VIOLATED" {
			mixed = r
		}
	}
	require.NotEmpty(t, mixed.ID)

	out, _, err := execute(t, "--format", "json", "runs", "--db", db, mixed.ID)
	require.NoError(t, err)
	var resp struct {
		Data RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "tests failed, 1/2", resp.Data.Reason)
	assert.Len(t, resp.Data.Evidence, 8)

	out, _, err = execute(t, "runs", "--db", db, mixed.ID, "--status", "failed")
	require.NoError(t, err)
	assert.Contains(t, out, "account-exists")
	assert.NotContains(t, out, "non-negative")
}

func TestRuns_DetailByStatusJSON(t *testing.T) {
	db := recordRuns(t)
	runs := listRuns(t, db)
	require.NotEmpty(t, runs)

	for _, r := range runs {
		out, _, err := execute(t, "--format", "json", "runs", "--db", db, r.ID, "--status", "not_proven")
		require.NoError(t, err)
		var resp struct {
			Data RunDetail `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		for _, ev := range resp.Data.Evidence {
			assert.Equal(t, evidence.NotProven, ev.Status)
		}
	}
}

func TestRuns_Errors(t *testing.T) {
	db := recordRuns(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown run", []string{"runs", "--db", db, "nope"}, "run nope not found"},
		{"invalid status", []string{"runs", "--db", db, "--status", "maybe"}, `invalid status "maybe"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, _, err := execute(t, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestRuns_EmptyDatabase(t *testing.T) {
	out, _, err := execute(t, "runs", "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "0123456789ab", shortID("0123456789abcdef"))
}
