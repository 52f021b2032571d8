package evidence

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/contract"
	"github.com/roach88/islproof/internal/eval"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/metrics"
	"github.com/roach88/islproof/internal/trace"
	"github.com/roach88/islproof/internal/tristate"
)

func clause(id string, kind contract.Kind, e ast.Expr) contract.Clause {
	return contract.Clause{
		ID:       id,
		Kind:     kind,
		Category: contract.DefaultCategory(kind),
		Behavior: "Transfer",
		Expr:     e,
	}
}

func transferClauses() []contract.Clause {
	return []contract.Clause{
		clause("pre-positive", contract.Precondition, ast.Bin(ast.OpGt, ast.Input("amount"), ast.Int(0))),
		clause("post-debited", contract.Postcondition, ast.Bin(ast.OpEq,
			ast.Ident("balance"),
			ast.Bin(ast.OpSub, ast.OldOf(ast.Ident("balance")), ast.Input("amount")))),
		clause("post-receipt", contract.Postcondition, ast.Mem(ast.Result(""), "receipt_id")),
		clause("inv-nonnegative", contract.Invariant, ast.Bin(ast.OpGe, ast.Ident("balance"), ast.Int(100))),
	}
}

func transferContext() *eval.Context {
	return eval.NewContext(
		eval.WithInput(ir.Object{"amount": ir.Int(30)}),
		eval.WithResult(ir.Object{"ok": ir.Bool(true)}),
		eval.WithVariables(ir.Object{"balance": ir.Int(70)}),
		eval.WithOldState(eval.CaptureSnapshot(ir.Object{"balance": ir.Int(100)}, nil)),
	)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, Proven, StatusOf(tristate.True))
	assert.Equal(t, Failed, StatusOf(tristate.False))
	assert.Equal(t, NotProven, StatusOf(tristate.Unknown(tristate.Timeout, ast.Ref{})))
	assert.Equal(t, NotProven, StatusOf(tristate.TriState{}))
}

func TestCollect(t *testing.T) {
	c := NewCollector(nil, WithRunID("run-1"))
	evs := c.Collect(context.Background(), transferClauses(), transferContext(), "exec-1")
	require.Len(t, evs, 4)

	assert.Equal(t, Proven, evs[0].Status)
	require.NotNil(t, evs[0].Value)
	assert.True(t, *evs[0].Value)
	assert.Equal(t, contract.Scenarios, evs[0].Category)

	assert.Equal(t, Proven, evs[1].Status)
	assert.Equal(t, contract.Postconditions, evs[1].Category)

	assert.Equal(t, NotProven, evs[2].Status)
	assert.Nil(t, evs[2].Value)
	assert.Equal(t, tristate.MissingProperty, evs[2].UnknownReason)
	assert.Contains(t, evs[2].Reason, "receipt_id")
	require.NotNil(t, evs[2].Cause)
	assert.Equal(t, ast.KindMember, evs[2].Cause.Kind)

	assert.Equal(t, Failed, evs[3].Status)
	require.NotNil(t, evs[3].Value)
	assert.False(t, *evs[3].Value)
	assert.Equal(t, contract.Invariants, evs[3].Category)

	for _, ev := range evs {
		assert.Equal(t, "exec-1", ev.Execution)
		assert.Equal(t, "Transfer", ev.Behavior)
		assert.Len(t, ev.ID, 64)
	}
	assert.Equal(t, Summary{Total: 4, Proven: 2, NotProven: 1, Failed: 1}, Summarize(evs))
}

func TestCollect_EvidenceIDsAreStable(t *testing.T) {
	a := NewCollector(nil, WithRunID("run-1")).Collect(context.Background(), transferClauses(), transferContext(), "exec-1")
	b := NewCollector(nil, WithRunID("run-1")).Collect(context.Background(), transferClauses(), transferContext(), "exec-1")
	other := NewCollector(nil, WithRunID("run-1")).Collect(context.Background(), transferClauses(), transferContext(), "exec-2")

	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.NotEqual(t, a[i].ID, other[i].ID)
	}
	assert.NotEqual(t, a[0].ID, a[1].ID)
}

func TestCollect_NonBooleanClause(t *testing.T) {
	cl := clause("post-amount", contract.Postcondition, ast.Input("amount"))
	evs := NewCollector(nil).Collect(context.Background(), []contract.Clause{cl}, transferContext(), "")

	require.Len(t, evs, 1)
	assert.Equal(t, NotProven, evs[0].Status)
	assert.Equal(t, tristate.TypeMismatch, evs[0].UnknownReason)
	assert.Equal(t, "clause evaluated to int, not a boolean", evs[0].Reason)
}

func TestCollect_ClauseIsolation(t *testing.T) {
	clauses := []contract.Clause{
		clause("broken", contract.Postcondition, &ast.Binary{Op: ast.OpAdd}),
		clause("div", contract.Postcondition, ast.Bin(ast.OpGt, ast.Bin(ast.OpDiv, ast.Int(1), ast.Int(0)), ast.Int(0))),
		clause("ok", contract.Postcondition, ast.Bool(true)),
	}
	evs := NewCollector(nil).Collect(context.Background(), clauses, eval.NewContext(), "")

	require.Len(t, evs, 3)
	assert.Equal(t, NotProven, evs[0].Status)
	assert.Equal(t, tristate.UnsupportedExpression, evs[0].UnknownReason)
	assert.Equal(t, NotProven, evs[1].Status)
	assert.Equal(t, tristate.DivisionByZero, evs[1].UnknownReason)
	assert.Equal(t, Proven, evs[2].Status)
}

func TestCollectParallel_MatchesSequential(t *testing.T) {
	var clauses []contract.Clause
	for i := 0; i < 5; i++ {
		clauses = append(clauses, transferClauses()...)
	}
	for i := range clauses {
		clauses[i].ID = clauses[i].ID + "-" + string(rune('a'+i))
	}

	sequential := NewCollector(nil, WithRunID("r")).Collect(context.Background(), clauses, transferContext(), "e")
	parallel, err := NewCollector(nil, WithRunID("r"), WithParallelism(3)).
		CollectParallel(context.Background(), clauses, transferContext(), "e")
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func TestCollectParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector(nil).CollectParallel(ctx, transferClauses(), transferContext(), "e")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollect_RecordsMetricsAndTrace(t *testing.T) {
	rec := metrics.New()
	tr := trace.NewRecorder("bank", "Transfer", trace.WithIDGenerator(trace.NewSequenceGenerator("id")))

	c := NewCollector(nil, WithMetrics(rec), WithTrace(tr))
	_, err := c.CollectParallel(context.Background(), transferClauses(), transferContext(), "exec-1")
	require.NoError(t, err)

	events := tr.Events()
	require.Len(t, events, 4)
	for i, want := range []string{"pre-positive", "post-debited", "post-receipt", "inv-nonnegative"} {
		assert.Equal(t, trace.EventCheck, events[i].Type)
		assert.Equal(t, ir.String(want), events[i].Data["clause_id"])
	}
	assert.Equal(t, ir.String("failed"), events[3].Data["status"])

	var buf bytes.Buffer
	require.NoError(t, rec.WriteText(&buf))
	assert.Contains(t, buf.String(), `islproof_clause_evaluations_total{kind="postcondition",status="proven"} 1`)
	assert.Contains(t, buf.String(), `islproof_unknown_results_total{reason="MISSING_PROPERTY"} 1`)
	n, err := testutil.GatherAndCount(rec.Registry(), "islproof_unknown_results_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
