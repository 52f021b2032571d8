// Package policy decides whether a verification report ships.
//
// A ship policy is a CEL expression evaluated over the report:
//
//	verdict         string  PROVEN, INCOMPLETE_PROOF, VIOLATED or UNPROVEN
//	reason          string  the verdict reason
//	manual_review   bool
//	trust           int     overall trust score, 0-100
//	confidence      int     share of resolved clauses, 0-100
//	recommendation  string  e.g. production_ready
//	failed          int     failed clauses
//	tests_total     int
//
// The default policy ships exactly the proven verdicts.
package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/roach88/islproof/internal/verdict"
)

// DefaultExpr is the policy used when none is configured.
const DefaultExpr = `verdict == "PROVEN"`

// costLimit bounds the work of one evaluation.
const costLimit = 10000

// Ship is a compiled ship policy. It is safe for concurrent use.
type Ship struct {
	expr string
	prg  cel.Program
}

// Default returns the compiled default policy.
func Default() *Ship {
	s, err := Compile(DefaultExpr)
	if err != nil {
		panic(fmt.Sprintf("policy: default expression: %v", err))
	}
	return s
}

// Compile checks expr and prepares it for evaluation. An empty expr
// compiles the default policy. The expression must be boolean.
func Compile(expr string) (*Ship, error) {
	if expr == "" {
		expr = DefaultExpr
	}

	env, err := cel.NewEnv(
		cel.Variable("verdict", cel.StringType),
		cel.Variable("reason", cel.StringType),
		cel.Variable("manual_review", cel.BoolType),
		cel.Variable("trust", cel.IntType),
		cel.Variable("confidence", cel.IntType),
		cel.Variable("recommendation", cel.StringType),
		cel.Variable("failed", cel.IntType),
		cel.Variable("tests_total", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile ship policy %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("ship policy %q has type %s, want bool", expr, ast.OutputType())
	}

	prg, err := env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program ship policy %q: %w", expr, err)
	}
	return &Ship{expr: expr, prg: prg}, nil
}

// Expr returns the source expression.
func (s *Ship) Expr() string {
	return s.expr
}

// Decide evaluates the policy against report and returns whether it ships.
func (s *Ship) Decide(report verdict.Report, testsTotal int) (bool, error) {
	failed := 0
	for _, cs := range report.Trust.Breakdown {
		failed += cs.Failed
	}

	out, _, err := s.prg.Eval(map[string]any{
		"verdict":        string(report.Verdict.Kind),
		"reason":         report.Verdict.Reason,
		"manual_review":  report.Verdict.ManualReview,
		"trust":          int64(report.Trust.Overall),
		"confidence":     int64(report.Trust.Confidence),
		"recommendation": string(report.Trust.Recommendation),
		"failed":         int64(failed),
		"tests_total":    int64(testsTotal),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate ship policy: %w", err)
	}
	ship, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("ship policy returned %T, want bool", out.Value())
	}
	return ship, nil
}
