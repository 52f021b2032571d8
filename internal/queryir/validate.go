package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/islproof/internal/ir"
)

// ValidationResult contains the portability analysis of a query.
//
// The portable fragment is the subset of QueryIR that every backend can
// evaluate natively. Queries outside it are still answerable by scanning
// records and matching them in memory.
type ValidationResult struct {
	// IsPortable indicates the query uses only portable features.
	IsPortable bool

	// Warnings lists the non-portable features used, in traversal order.
	// Empty when IsPortable is true.
	Warnings []string
}

// Validate checks a query against the portable fragment rules:
//  1. Entity names are non-empty.
//  2. No NULL comparisons; JSON null and a missing field are
//     indistinguishable in some backends.
//  3. Only scalar comparison values; lists and objects need deep equality.
//  4. Paths are non-empty and every key is non-empty and free of quotes.
//  5. Limits are non-negative.
//
// Validate is a pure function.
func Validate(query Query) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addWarning("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addWarning("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addWarning("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.Entity == "" {
		v.addWarning("empty entity name")
	}
	if sel.Limit < 0 {
		v.addWarning("negative limit %d", sel.Limit)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		return
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addWarning("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	if len(eq.Path) == 0 {
		v.addWarning("empty field path")
	}
	for _, seg := range eq.Path {
		if seg == "" || strings.ContainsAny(seg, `"\`) {
			v.addWarning("field %q has a key that cannot be addressed", eq.String())
			break
		}
	}

	switch eq.Value.(type) {
	case nil, ir.Null:
		v.addWarning("field %q compared to null", eq.String())
	case ir.List, ir.Object:
		v.addWarning("field %q compared to %s value", eq.String(), ir.TypeName(eq.Value))
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
