package eval

import (
	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/tristate"
)

// VisitQuantifier evaluates all/any/none/count/sum/filter.
//
// all, any and none short-circuit like chained and/or: an element that
// decides the result stops iteration even if earlier elements were
// unknown. count, sum and filter need every element, so any unknown
// element makes the aggregate unknown(ELEMENT_UNKNOWN).
func (w *walker) VisitQuantifier(n *ast.Quantifier, f frame) Result {
	switch n.Quantifier {
	case ast.QuantAll, ast.QuantAny, ast.QuantNone, ast.QuantCount, ast.QuantSum, ast.QuantFilter:
	default:
		return unknownf(n, tristate.UnsupportedQuantifier, "quantifier %q is not supported", n.Quantifier)
	}

	if name, ok := unboundCollection(n.Collection, f); ok {
		if isTypeName(name) {
			return unknownf(n, tristate.UnboundedDomain, "cannot enumerate every %s", name)
		}
		return unknownf(n, tristate.MissingBinding, "collection %q is not bound", name)
	}

	coll := w.eval(n.Collection, f.deeper())
	if !coll.Known() {
		return unknown(n, tristate.CollectionUnknown, "collection is unknown: "+describe(coll.RootCause()), coll)
	}
	elems, ok := coll.Value.(ir.List)
	if !ok {
		return unknownf(n, tristate.TypeMismatch, "quantifier needs a list, got %s", ir.TypeName(coll.Value))
	}

	variable, predicate := n.Variable, n.Predicate
	if fn, ok := n.Predicate.(*ast.Lambda); ok && fn != nil {
		if len(fn.Params) != 1 {
			return unknownf(n, tristate.InvalidOperand, "predicate must take one parameter, takes %d", len(fn.Params))
		}
		variable, predicate = fn.Params[0], fn.Body
	}

	apply := func(elem ir.Value) Result {
		inner := f.deeper()
		inner.scope = f.scope.bind(variable, elem)
		return w.eval(predicate, inner)
	}

	switch n.Quantifier {
	case ast.QuantAll:
		return shortCircuit(n, coll, elems, apply, tristate.False, tristate.True)
	case ast.QuantAny:
		return shortCircuit(n, coll, elems, apply, tristate.True, tristate.False)
	case ast.QuantNone:
		r := shortCircuit(n, coll, elems, apply, tristate.True, tristate.False)
		if r.Truth.IsUnknown() {
			return r
		}
		return known(n, ir.Bool(r.Truth.IsFalse()), r.Children...)
	}
	return aggregate(n, coll, elems, apply)
}

// unboundCollection reports a collection written as a bare unbound name.
// A type name such as Account cannot be enumerated from concrete evidence.
func unboundCollection(e ast.Expr, f frame) (string, bool) {
	switch c := e.(type) {
	case *ast.Identifier:
		if c == nil {
			return "", false
		}
		if _, ok := f.resolve(c.Name); !ok {
			return c.Name, true
		}
	case *ast.QualifiedName:
		if c == nil || len(c.Parts) != 1 {
			return "", false
		}
		if _, ok := f.resolve(c.Parts[0]); !ok {
			return c.Parts[0], true
		}
	}
	return "", false
}

// shortCircuit folds the predicate over elems. An element whose truth equals
// decisive ends the fold with that value; otherwise the result is exhausted,
// or unknown(ELEMENT_UNKNOWN) if some element was unknown.
func shortCircuit(n ast.Expr, coll Result, elems ir.List, apply func(ir.Value) Result, decisive, exhausted tristate.TriState) Result {
	children := []Result{coll}
	firstUnknown := -1
	for _, elem := range elems {
		r := apply(elem)
		children = append(children, r)
		if r.Truth.Value() == decisive.Value() {
			return truthResult(n, decisive, children...)
		}
		if r.Truth.IsUnknown() && firstUnknown < 0 {
			firstUnknown = len(children) - 1
		}
	}
	if firstUnknown >= 0 {
		return elementUnknown(n, children[firstUnknown], children)
	}
	return truthResult(n, exhausted, children...)
}

func aggregate(n *ast.Quantifier, coll Result, elems ir.List, apply func(ir.Value) Result) Result {
	children := []Result{coll}
	var (
		count    int64
		filtered = ir.List{}
		sumInt   int64
		sumFloat float64
		isFloat  bool
	)
	for _, elem := range elems {
		r := apply(elem)
		children = append(children, r)
		if !r.Known() {
			return elementUnknown(n, r, children)
		}

		if n.Quantifier == ast.QuantSum {
			switch v := r.Value.(type) {
			case ir.Int:
				next := sumInt + int64(v)
				if (next > sumInt) != (v > 0) {
					return unknown(n, tristate.InvalidOperand, "integer overflow", children...)
				}
				sumInt = next
			case ir.Float:
				sumFloat += float64(v)
				isFloat = true
			default:
				return unknownf(n, tristate.TypeMismatch, "sum needs numbers, got %s", ir.TypeName(r.Value))
			}
			continue
		}

		b, ok := r.Value.(ir.Bool)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "%s predicate must be boolean, got %s", n.Quantifier, ir.TypeName(r.Value))
		}
		if b {
			count++
			filtered = append(filtered, elem)
		}
	}

	switch n.Quantifier {
	case ast.QuantCount:
		return known(n, ir.Int(count), children...)
	case ast.QuantSum:
		if isFloat {
			return known(n, ir.Float(sumFloat+float64(sumInt)), children...)
		}
		return known(n, ir.Int(sumInt), children...)
	}
	return known(n, filtered, children...)
}

// elementUnknown reports an aggregate left undecided by elem. The cause
// points at the sub-expression that was unknown for that element.
func elementUnknown(n ast.Expr, elem Result, children []Result) Result {
	res := unknown(n, tristate.ElementUnknown, "predicate is unknown for an element: "+describe(elem.RootCause()), children...)
	res.Truth = tristate.Unknown(tristate.ElementUnknown, elem.Truth.Cause())
	return res
}
