package tristate

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ast"
)

var (
	T = True
	F = False
	U = Unknown(MissingInput, ast.Ref{Kind: ast.KindInput, Span: ast.Span{Line: 1}})
	V = Unknown(DivisionByZero, ast.Ref{Kind: ast.KindBinary, Span: ast.Span{Line: 2}})
)

func TestTruthTables(t *testing.T) {
	tests := []struct {
		op       string
		fn       func(a, b TriState) TriState
		a, b     TriState
		expected TriState
	}{
		{"and", And, T, T, T},
		{"and", And, T, F, F},
		{"and", And, T, U, U},
		{"and", And, F, T, F},
		{"and", And, F, F, F},
		{"and", And, F, U, F},
		{"and", And, U, T, U},
		{"and", And, U, F, F},
		{"and", And, U, U, U},

		{"or", Or, T, T, T},
		{"or", Or, T, F, T},
		{"or", Or, T, U, T},
		{"or", Or, F, T, T},
		{"or", Or, F, F, F},
		{"or", Or, F, U, U},
		{"or", Or, U, T, T},
		{"or", Or, U, F, U},
		{"or", Or, U, U, U},

		{"implies", Implies, T, T, T},
		{"implies", Implies, T, F, F},
		{"implies", Implies, T, U, U},
		{"implies", Implies, F, T, T},
		{"implies", Implies, F, F, T},
		{"implies", Implies, F, U, T},
		{"implies", Implies, U, T, T},
		{"implies", Implies, U, F, U},
		{"implies", Implies, U, U, U},

		{"iff", Iff, T, T, T},
		{"iff", Iff, T, F, F},
		{"iff", Iff, T, U, U},
		{"iff", Iff, F, T, F},
		{"iff", Iff, F, F, T},
		{"iff", Iff, F, U, U},
		{"iff", Iff, U, T, U},
		{"iff", Iff, U, F, U},
		{"iff", Iff, U, U, U},
	}

	require.Len(t, tests, 36)
	for _, tt := range tests {
		t.Run(tt.op+"("+tt.a.String()+","+tt.b.String()+")", func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn(tt.a, tt.b))
		})
	}
}

func TestNot(t *testing.T) {
	assert.Equal(t, F, Not(T))
	assert.Equal(t, T, Not(F))
	assert.Equal(t, U, Not(U), "unknown is a fixed point and keeps its reason")
	assert.Equal(t, T, Not(Not(T)))
	assert.Equal(t, F, Not(Not(F)))
}

func TestUnknownCombinationKeepsLeftReason(t *testing.T) {
	assert.Equal(t, MissingInput, And(U, V).Reason())
	assert.Equal(t, DivisionByZero, And(V, U).Reason())
	assert.Equal(t, DivisionByZero, Or(V, U).Reason())
	assert.Equal(t, MissingInput, Implies(U, V).Reason())
	assert.Equal(t, DivisionByZero, Implies(T, V).Reason())
	assert.Equal(t, MissingInput, Iff(U, V).Reason())
	assert.Equal(t, DivisionByZero, Iff(T, V).Reason())
}

func TestAllAny(t *testing.T) {
	assert.Equal(t, T, All())
	assert.Equal(t, F, Any())
	assert.Equal(t, F, All(T, U, F))
	assert.Equal(t, U, All(T, U, T))
	assert.Equal(t, T, Any(F, U, T))
	assert.Equal(t, U, Any(F, U))
}

func TestUnknownWithoutReasonIsPropagated(t *testing.T) {
	assert.Equal(t, Propagated, Unknown("", ast.Ref{}).Reason())

	var zero TriState
	assert.True(t, zero.IsUnknown())
	assert.Equal(t, Propagated, zero.Reason())
}

func TestReasonsAreClosed(t *testing.T) {
	assert.Len(t, Reasons, 19)
	for _, r := range Reasons {
		assert.True(t, r.Valid(), r)
		assert.NotEqual(t, string(r), r.Describe())
	}
	assert.False(t, Reason("BOGUS").Valid())
}

func TestJSONRoundTrip(t *testing.T) {
	for _, v := range []TriState{T, F, U} {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var back TriState
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, v, back)
	}

	data, err := json.Marshal(U)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"unknown","reason":"MISSING_INPUT","cause":{"kind":"input","span":{"line":1}}}`, string(data))
}

func TestUnmarshalRejectsBadReason(t *testing.T) {
	var v TriState
	err := json.Unmarshal([]byte(`{"value":"unknown","reason":"NOPE"}`), &v)
	require.Error(t, err)
}

func genTriState() gopter.Gen {
	values := []TriState{T, F, U, V}
	return gen.IntRange(0, len(values)-1).Map(func(i int) TriState {
		return values[i]
	})
}

func sameTruth(a, b TriState) bool {
	return a.Value() == b.Value()
}

func TestAlgebraProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("and is commutative in truth value", prop.ForAll(
		func(a, b TriState) bool { return sameTruth(And(a, b), And(b, a)) },
		genTriState(), genTriState(),
	))

	properties.Property("or is commutative in truth value", prop.ForAll(
		func(a, b TriState) bool { return sameTruth(Or(a, b), Or(b, a)) },
		genTriState(), genTriState(),
	))

	properties.Property("false absorbs and, true absorbs or", prop.ForAll(
		func(a TriState) bool { return And(F, a).IsFalse() && Or(T, a).IsTrue() },
		genTriState(),
	))

	properties.Property("de morgan holds", prop.ForAll(
		func(a, b TriState) bool { return sameTruth(Not(And(a, b)), Or(Not(a), Not(b))) },
		genTriState(), genTriState(),
	))

	properties.Property("implies agrees with not-a or b", prop.ForAll(
		func(a, b TriState) bool { return sameTruth(Implies(a, b), Or(Not(a), b)) },
		genTriState(), genTriState(),
	))

	properties.Property("unknown results always carry a valid reason", prop.ForAll(
		func(a, b TriState) bool {
			for _, r := range []TriState{And(a, b), Or(a, b), Implies(a, b), Iff(a, b), Not(a)} {
				if r.IsUnknown() && !r.Reason().Valid() {
					return false
				}
			}
			return true
		},
		genTriState(), genTriState(),
	))

	properties.TestingRun(t)
}
