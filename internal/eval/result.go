package eval

import (
	"fmt"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/tristate"
)

// Result is the outcome of evaluating one expression node. Children mirror
// the sub-expressions that were actually evaluated, so a result tree
// explains how its value was reached.
//
// Truth is the reading of the result as a condition: True or False for a
// boolean value, the unknown that stopped evaluation when Value is nil, and
// unknown(TYPE_MISMATCH) for any other known value.
type Result struct {
	Value    ir.Value          `json:"value"`
	Truth    tristate.TriState `json:"truth"`
	Span     ast.Span          `json:"span"`
	Reason   string            `json:"reason,omitempty"`
	Children []Result          `json:"children,omitempty"`
}

// Known reports whether the node produced a value.
func (r Result) Known() bool {
	return r.Value != nil
}

// RootCause returns the deepest result explaining an unknown: the first
// unknown child that is itself unknown for a reason other than propagation.
// A known result is its own root cause.
func (r Result) RootCause() Result {
	cur := r
	for cur.Truth.IsUnknown() && cur.Truth.Reason() == tristate.Propagated {
		next, ok := firstUnknownChild(cur)
		if !ok {
			break
		}
		cur = next
	}
	return cur
}

func firstUnknownChild(r Result) (Result, bool) {
	for _, c := range r.Children {
		if !c.Known() {
			return c, true
		}
	}
	return Result{}, false
}

func known(n ast.Expr, v ir.Value, children ...Result) Result {
	r := Result{Value: v, Span: n.Pos(), Children: children}
	if b, ok := v.(ir.Bool); ok {
		r.Truth = tristate.Of(bool(b))
	} else {
		r.Truth = tristate.UnknownAt(tristate.TypeMismatch, n)
	}
	return r
}

func unknown(n ast.Expr, reason tristate.Reason, msg string, children ...Result) Result {
	return Result{
		Truth:    tristate.UnknownAt(reason, n),
		Span:     n.Pos(),
		Reason:   msg,
		Children: children,
	}
}

func unknownf(n ast.Expr, reason tristate.Reason, format string, args ...any) Result {
	return unknown(n, reason, fmt.Sprintf(format, args...))
}

// propagate reports that n could not be computed because child is unknown.
func propagate(n ast.Expr, children ...Result) Result {
	msg := "operand is unknown"
	for _, c := range children {
		if !c.Known() {
			root := c.RootCause()
			msg = fmt.Sprintf("operand is unknown: %s", describe(root))
			break
		}
	}
	return unknown(n, tristate.Propagated, msg, children...)
}

// truthResult turns a combined truth value into a result for n.
func truthResult(n ast.Expr, t tristate.TriState, children ...Result) Result {
	if b, ok := t.Known(); ok {
		return known(n, ir.Bool(b), children...)
	}
	r := Result{Truth: t, Span: n.Pos(), Children: children}
	for _, c := range children {
		if !c.Known() && c.Truth == t {
			r.Reason = c.Reason
			break
		}
	}
	if r.Reason == "" {
		r.Reason = t.Reason().Describe()
	}
	return r
}

func describe(r Result) string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Truth.Reason().Describe()
}
