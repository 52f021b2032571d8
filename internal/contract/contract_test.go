package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ast"
)

func transfer() *Behavior {
	return &Behavior{
		Name: "Transfer",
		Clauses: []Clause{
			{ID: "pre", Kind: Precondition, Behavior: "Transfer", Expr: ast.Bool(true)},
			{ID: "post-1", Kind: Postcondition, Behavior: "Transfer"},
			{ID: "inv", Kind: Invariant, Behavior: "Transfer"},
			{ID: "post-2", Kind: Postcondition, Behavior: "Transfer"},
		},
	}
}

func ids(cs []Clause) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestBehavior_Select(t *testing.T) {
	b := transfer()

	tests := []struct {
		name  string
		kinds []Kind
		want  []string
	}{
		{"all", nil, []string{"pre", "post-1", "inv", "post-2"}},
		{"postconditions", []Kind{Postcondition}, []string{"post-1", "post-2"}},
		{"post and invariants", []Kind{Invariant, Postcondition}, []string{"post-1", "inv", "post-2"}},
		{"none match", []Kind{"other"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(b.Select(tt.kinds...)))
		})
	}
}

func TestBehavior_SelectCopies(t *testing.T) {
	b := transfer()
	all := b.Select()
	all[0].ID = "changed"
	assert.Equal(t, "pre", b.Clauses[0].ID)
}

func TestBehavior_Clause(t *testing.T) {
	b := transfer()

	c, ok := b.Clause("inv")
	require.True(t, ok)
	assert.Equal(t, Invariant, c.Kind)
	assert.Equal(t, "Transfer/inv", c.QualifiedID())

	_, ok = b.Clause("missing")
	assert.False(t, ok)
}

func TestClause_Span(t *testing.T) {
	span := ast.Span{File: "transfer.isl", Line: 3, Column: 5}
	c := Clause{Expr: &ast.BoolLit{At: ast.At{Span: span}, Value: true}}
	assert.Equal(t, span, c.Span())
	assert.True(t, Clause{}.Span().IsZero())
}

func TestKindAndCategory(t *testing.T) {
	for _, k := range []Kind{Precondition, Postcondition, Invariant} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("assertion").Valid())

	for _, c := range Categories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Category("").Valid())

	assert.Equal(t, Postconditions, DefaultCategory(Postcondition))
	assert.Equal(t, Invariants, DefaultCategory(Invariant))
	assert.Equal(t, Scenarios, DefaultCategory(Precondition))
}

func TestSet_Names(t *testing.T) {
	s := Set{"Zeta": {Name: "Zeta"}, "Alpha": {Name: "Alpha"}, "Mid": {Name: "Mid"}}
	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, s.Names())
	assert.Empty(t, Set{}.Names())
}
