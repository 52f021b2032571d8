// Package compiler turns contract source into contract.Behavior values.
//
// Contracts are written in CUE under a top-level "contract" struct, one
// field per behavior:
//
//	contract: Transfer: {
//		domain: "banking"
//		preconditions: [{
//			id:   "amount-positive"
//			expr: {kind: "binary", op: ">", left: {kind: "input", property: "amount"}, right: {kind: "int", value: 0}}
//		}]
//		postconditions: [...]
//		invariants: [...]
//	}
//
// Clause expressions use the expression wire format of package ast. An
// expression without a span is given the CUE position of its expr field.
// Exported JSON bundles are read with LoadJSON.
package compiler

import (
	"fmt"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/contract"
	"github.com/roach88/islproof/internal/ir"
)

// clauseLists maps each CUE list field to the kind of its clauses.
var clauseLists = []struct {
	field string
	kind  contract.Kind
}{
	{"preconditions", contract.Precondition},
	{"postconditions", contract.Postcondition},
	{"invariants", contract.Invariant},
}

// CompileContract parses a CUE value into a Behavior.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The CUE value should be the behavior struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`contract: Transfer: { ... }`)
//	b, err := CompileContract(v.LookupPath(cue.ParsePath("contract.Transfer")))
func CompileContract(v cue.Value) (*contract.Behavior, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	b := &contract.Behavior{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		b.Name = labels[len(labels)-1].String()
	}

	if domainVal := v.LookupPath(cue.ParsePath("domain")); domainVal.Exists() {
		domain, err := domainVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		b.Domain = domain
	}

	for _, list := range clauseLists {
		listVal := v.LookupPath(cue.ParsePath(list.field))
		if !listVal.Exists() {
			continue
		}
		clauses, err := parseClauses(listVal, b.Name, list.kind)
		if err != nil {
			return nil, err
		}
		b.Clauses = append(b.Clauses, clauses...)
	}

	return b, nil
}

// parseClauses parses one clause list of a behavior.
func parseClauses(v cue.Value, behavior string, kind contract.Kind) ([]contract.Clause, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var clauses []contract.Clause
	for iter.Next() {
		c, err := parseClause(iter.Value(), behavior, kind)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// parseClause parses a single clause:
//
//	{id: string, expr: {...}, category?: string, description?: string}
func parseClause(v cue.Value, behavior string, kind contract.Kind) (contract.Clause, error) {
	c := contract.Clause{Behavior: behavior, Kind: kind}

	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return c, &CompileError{Field: "id", Message: "clause id is required", Pos: v.Pos()}
	}
	id, err := idVal.String()
	if err != nil {
		return c, formatCUEError(err)
	}
	c.ID = id

	if catVal := v.LookupPath(cue.ParsePath("category")); catVal.Exists() {
		cat, err := catVal.String()
		if err != nil {
			return c, formatCUEError(err)
		}
		c.Category = contract.Category(cat)
	} else {
		c.Category = contract.DefaultCategory(kind)
	}

	if descVal := v.LookupPath(cue.ParsePath("description")); descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return c, formatCUEError(err)
		}
		c.Description = desc
	}

	// A missing expr is left nil for Validate to report.
	exprVal := v.LookupPath(cue.ParsePath("expr"))
	if !exprVal.Exists() {
		return c, nil
	}
	expr, err := compileExpr(exprVal)
	if err != nil {
		return c, err
	}
	c.Expr = expr
	return c, nil
}

// compileExpr decodes an expression from its CUE value.
func compileExpr(v cue.Value) (ast.Expr, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	wire, err := ir.UnmarshalValue(data)
	if err != nil {
		return nil, &CompileError{Field: "expr", Message: err.Error(), Pos: v.Pos()}
	}
	if obj, ok := wire.(ir.Object); ok {
		if _, hasSpan := obj["span"]; !hasSpan && v.Pos().IsValid() {
			obj["span"] = spanOf(v.Pos())
		}
	}

	expr, err := ast.Decode(wire)
	if err != nil {
		return nil, &CompileError{Field: "expr", Message: err.Error(), Pos: v.Pos()}
	}
	return expr, nil
}

// spanOf is the wire span of a CUE position. Only the file's base name is
// kept so that spans do not depend on where the contracts are checked out.
func spanOf(pos token.Pos) ir.Object {
	span := ir.Object{
		"line":   ir.Int(pos.Line()),
		"column": ir.Int(pos.Column()),
	}
	if pos.Filename() != "" {
		span["file"] = ir.String(filepath.Base(pos.Filename()))
	}
	return span
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
