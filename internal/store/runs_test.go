package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/tristate"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run, evs := createTestRun("run-1")

	inserted, err := s.WriteRun(ctx, run)
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, s.WriteEvidence(ctx, run.ID, evs))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Scenario, got.Scenario)
	assert.Equal(t, run.TestsTotal, got.TestsTotal)
	assert.Equal(t, run.Report, got.Report)
	assert.Positive(t, got.Seq)

	gotEvs, err := s.ReadEvidence(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, evs, gotEvs)
}

func TestWriteRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run, evs := createTestRun("run-1")

	_, err := s.WriteRun(ctx, run)
	require.NoError(t, err)
	require.NoError(t, s.WriteEvidence(ctx, run.ID, evs))

	inserted, err := s.WriteRun(ctx, run)
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, s.WriteEvidence(ctx, run.ID, evs))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	gotEvs, err := s.ReadEvidence(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, gotEvs, len(evs))
}

func TestWriteRun_EmptyID(t *testing.T) {
	s := createTestStore(t)
	_, err := s.WriteRun(context.Background(), Run{})
	assert.Error(t, err)
}

func TestWriteEvidence_RequiresRun(t *testing.T) {
	s := createTestStore(t)
	_, evs := createTestRun("missing")

	err := s.WriteEvidence(context.Background(), "missing", evs)
	assert.Error(t, err, "foreign key enforced")

	got, err := s.ReadEvidence(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got, "transaction rolled back")
}

func TestWriteEvidence_RequiresID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run, evs := createTestRun("run-1")
	_, err := s.WriteRun(ctx, run)
	require.NoError(t, err)

	evs[1].ID = ""
	err = s.WriteEvidence(ctx, run.ID, evs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}

func TestWriteEvidence_KeepsUnknownDetail(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run, _ := createTestRun("run-1")
	_, err := s.WriteRun(ctx, run)
	require.NoError(t, err)

	ev := createTestEvidence("run-1", "exec-1", "post-3", evidence.NotProven)
	ev.UnknownReason = tristate.MissingBinding
	ev.Reason = "identifier <b> & <c> is not bound"
	ev.Cause = &ast.Ref{Kind: ast.KindIdentifier, Span: ast.Span{File: "transfer.cue", Line: 3, Column: 9}}
	require.NoError(t, s.WriteEvidence(ctx, run.ID, []evidence.ClauseEvidence{ev}))

	got, err := s.ReadEvidence(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])
}

func TestReadEvidenceByStatus(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run, evs := createTestRun("run-1")
	_, err := s.WriteRun(ctx, run)
	require.NoError(t, err)
	require.NoError(t, s.WriteEvidence(ctx, run.ID, evs))

	failed, err := s.ReadEvidenceByStatus(ctx, run.ID, evidence.Failed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "exec-2", failed[0].Execution)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListRuns_Order(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, id := range []string{"run-b", "run-a", "run-c"} {
		run, _ := createTestRun(id)
		_, err := s.WriteRun(ctx, run)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)
	assert.Equal(t, "run-c", runs[2].ID)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
