package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/contract"
)

func clause(id string, kind contract.Kind, expr ast.Expr) contract.Clause {
	return contract.Clause{
		ID:       id,
		Kind:     kind,
		Category: contract.DefaultCategory(kind),
		Behavior: "Op",
		Expr:     expr,
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	b := &contract.Behavior{
		Name: "Transfer",
		Clauses: []contract.Clause{
			clause("pre", contract.Precondition, ast.Bin(ast.OpGt, ast.Input("amount"), ast.Int(0))),
			clause("post", contract.Postcondition, ast.Bin(ast.OpEq,
				ast.Result("balance"),
				ast.Bin(ast.OpSub, ast.OldOf(ast.Input("balance")), ast.Input("amount")))),
			clause("inv", contract.Invariant, ast.Bin(ast.OpGe, ast.Result("balance"), ast.Int(0))),
		},
	}
	assert.Empty(t, Validate(b))
	assert.Empty(t, Validate(*b))
}

func TestValidate_Rules(t *testing.T) {
	tru := ast.Bool(true)

	tests := []struct {
		name     string
		behavior *contract.Behavior
		want     []string
	}{
		{
			name:     "empty name",
			behavior: &contract.Behavior{Name: " ", Clauses: []contract.Clause{clause("a", contract.Invariant, tru)}},
			want:     []string{ErrBehaviorNameEmpty},
		},
		{
			name:     "no clauses",
			behavior: &contract.Behavior{Name: "Op"},
			want:     []string{ErrBehaviorNoClauses},
		},
		{
			name: "duplicate clause id",
			behavior: &contract.Behavior{Name: "Op", Clauses: []contract.Clause{
				clause("a", contract.Invariant, tru),
				clause("a", contract.Postcondition, tru),
			}},
			want: []string{ErrDuplicateClauseID},
		},
		{
			name: "missing expression",
			behavior: &contract.Behavior{Name: "Op", Clauses: []contract.Clause{
				clause("a", contract.Postcondition, nil),
			}},
			want: []string{ErrClauseNoExpr},
		},
		{
			name: "invalid kind",
			behavior: &contract.Behavior{Name: "Op", Clauses: []contract.Clause{
				{ID: "a", Kind: "assertion", Category: contract.Scenarios, Expr: tru},
			}},
			want: []string{ErrInvalidCategory},
		},
		{
			name: "invalid category",
			behavior: &contract.Behavior{Name: "Op", Clauses: []contract.Clause{
				{ID: "a", Kind: contract.Invariant, Category: "vibes", Expr: tru},
			}},
			want: []string{ErrInvalidCategory},
		},
		{
			name: "empty category is allowed",
			behavior: &contract.Behavior{Name: "Op", Clauses: []contract.Clause{
				{ID: "a", Kind: contract.Invariant, Expr: tru},
			}},
			want: []string{},
		},
		{
			name: "nested old",
			behavior: &contract.Behavior{Name: "Op", Clauses: []contract.Clause{
				clause("a", contract.Postcondition, ast.Bin(ast.OpEq,
					ast.OldOf(ast.Mem(ast.OldOf(ast.Input("account")), "balance")),
					ast.Int(0))),
			}},
			want: []string{ErrNestedOld},
		},
		{
			name: "precondition reads old",
			behavior: &contract.Behavior{Name: "Op", Clauses: []contract.Clause{
				clause("a", contract.Precondition, ast.Bin(ast.OpGt, ast.OldOf(ast.Input("balance")), ast.Int(0))),
			}},
			want: []string{ErrPreconditionOfPost},
		},
		{
			name: "precondition reads result",
			behavior: &contract.Behavior{Name: "Op", Clauses: []contract.Clause{
				clause("a", contract.Precondition, ast.Not(ast.Bin(ast.OpEq, ast.Result(""), ast.Null()))),
			}},
			want: []string{ErrPreconditionOfPost},
		},
		{
			name: "errors accumulate",
			behavior: &contract.Behavior{Name: "Op", Clauses: []contract.Clause{
				clause("a", contract.Precondition, ast.Result("id")),
				clause("a", contract.Postcondition, nil),
			}},
			want: []string{ErrPreconditionOfPost, ErrDuplicateClauseID, ErrClauseNoExpr},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(tt.behavior)))
		})
	}
}

func TestValidate_Set(t *testing.T) {
	set := contract.Set{
		"Zeta":  {Name: "Zeta"},
		"Alpha": {Name: "Alpha"},
	}
	errs := Validate(set)
	require.Len(t, errs, 2)
	assert.Equal(t, "Alpha", errs[0].Field)
	assert.Equal(t, "Zeta", errs[1].Field)
}

func TestValidate_UnsupportedType(t *testing.T) {
	errs := Validate("Transfer")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedType, errs[0].Code)
	assert.Contains(t, errs[0].Message, "string")
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  ValidationError
		want string
	}{
		{
			name: "with line",
			err:  ValidationError{Field: "Op.clauses[0].id", Message: `duplicate clause id: "a"`, Code: ErrDuplicateClauseID, Line: 4},
			want: `[E103] line 4: Op.clauses[0].id: duplicate clause id: "a"`,
		},
		{
			name: "without line",
			err:  ValidationError{Field: "name", Message: "behavior name is required and must be non-empty", Code: ErrBehaviorNameEmpty},
			want: "[E101] name: behavior name is required and must be non-empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
