package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/islproof/internal/contract"
	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/trust"
	"github.com/roach88/islproof/internal/verdict"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with a proven verdict and its evidence.
func createTestRun(id string) (Run, []evidence.ClauseEvidence) {
	evs := []evidence.ClauseEvidence{
		createTestEvidence(id, "exec-1", "post-1", evidence.Proven),
		createTestEvidence(id, "exec-1", "post-2", evidence.NotProven),
		createTestEvidence(id, "exec-2", "post-1", evidence.Failed),
	}
	run := Run{
		ID:       id,
		Scenario: "transfer",
		Report: verdict.Report{
			Verdict: verdict.ProofVerdict{Kind: verdict.Proven, Reason: "gate SHIP, build pass, 2/2 tests pass"},
			Trust:   trust.Calculate(evs),
		},
		TestsTotal: 2,
	}
	return run, evs
}

func createTestEvidence(runID, execution, clauseID string, status evidence.Status) evidence.ClauseEvidence {
	return evidence.ClauseEvidence{
		ID:        ir.MustEvidenceID(runID, execution, "Transfer/"+clauseID),
		ClauseID:  clauseID,
		Kind:      contract.Postcondition,
		Category:  contract.Postconditions,
		Behavior:  "Transfer",
		Status:    status,
		Execution: execution,
	}
}
