package eval

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/islproof/internal/adapter"
	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/tristate"
)

func (w *walker) VisitCall(n *ast.Call, f frame) Result {
	switch callee := n.Callee.(type) {
	case *ast.Member:
		if callee == nil {
			break
		}
		if entity, ok := entityName(callee.Object, f); ok {
			return w.entityCall(n, entity, callee.Property, f)
		}
		return w.methodCall(n, callee, f)
	case *ast.Identifier:
		if callee == nil {
			break
		}
		return w.builtin(n, callee.Name, f)
	case *ast.QualifiedName:
		// Entity.exists(...) written as a single dotted callee.
		if callee != nil && len(callee.Parts) == 2 {
			if _, bound := f.resolve(callee.Parts[0]); !bound {
				return w.entityCall(n, callee.Parts[0], callee.Parts[1], f)
			}
		}
	}
	return unknown(n, tristate.UnsupportedExpression, "callee is not a function or method")
}

// entityName reports whether e names an entity type rather than a value:
// an identifier that is not bound in scope or variables.
func entityName(e ast.Expr, f frame) (string, bool) {
	switch c := e.(type) {
	case *ast.Identifier:
		if c != nil {
			if _, ok := f.resolve(c.Name); !ok {
				return c.Name, true
			}
		}
	case *ast.QualifiedName:
		if c != nil && len(c.Parts) == 1 {
			if _, ok := f.resolve(c.Parts[0]); !ok {
				return c.Parts[0], true
			}
		}
	}
	return "", false
}

func (w *walker) args(n *ast.Call, f frame) ([]Result, bool) {
	out := make([]Result, len(n.Args))
	ok := true
	for i, a := range n.Args {
		out[i] = w.eval(a, f.deeper())
		ok = ok && out[i].Known()
	}
	return out, ok
}

// entityCall handles Entity.exists(criteria) and Entity.lookup(criteria).
// A single non-object argument is shorthand for {"id": arg}.
func (w *walker) entityCall(n *ast.Call, entity, method string, f frame) Result {
	if method != "exists" && method != "lookup" {
		return unknownf(n, tristate.UnsupportedFunction, "%s.%s is not supported", entity, method)
	}
	args, ok := w.args(n, f)
	if !ok {
		return propagate(n, args...)
	}

	criteria := ir.Object{}
	switch len(args) {
	case 0:
	case 1:
		if obj, isObj := args[0].Value.(ir.Object); isObj {
			criteria = obj
		} else {
			criteria["id"] = args[0].Value
		}
	default:
		return unknownf(n, tristate.InvalidOperand, "%s.%s takes at most one argument", entity, method)
	}

	a := f.ec.adapter()
	if method == "exists" {
		t, err := a.Exists(w.ctx, entity, criteria)
		if err != nil {
			return w.adapterFailure(n, "exists", err, args...)
		}
		return adapterTruth(n, t, args...)
	}

	v, found, err := a.Lookup(w.ctx, entity, criteria)
	if err != nil {
		return w.adapterFailure(n, "lookup", err, args...)
	}
	if !found || v == nil {
		return known(n, ir.Null{}, args...)
	}
	return known(n, v, args...)
}

func (w *walker) adapterFailure(n ast.Expr, capability string, err error, children ...Result) Result {
	if !errors.Is(err, adapter.ErrNotSupported) {
		w.ev.logger.Debug("adapter call failed", "capability", capability, "error", err)
	}
	return unknown(n, tristate.ExternalCall, fmt.Sprintf("adapter %s failed: %v", capability, err), children...)
}

// adapterTruth reports an adapter's answer. An adapter that could not
// decide is an unknown external call at n.
func adapterTruth(n ast.Expr, t tristate.TriState, children ...Result) Result {
	if b, ok := t.Known(); ok {
		return known(n, ir.Bool(b), children...)
	}
	return unknown(n, tristate.ExternalCall, "adapter could not decide: "+t.Reason().Describe(), children...)
}

func (w *walker) methodCall(n *ast.Call, callee *ast.Member, f frame) Result {
	recv := w.eval(callee.Object, f.deeper())
	args, ok := w.args(n, f)
	children := append([]Result{recv}, args...)
	if !recv.Known() || !ok {
		return propagate(n, children...)
	}

	switch callee.Property {
	case "length", "is_valid", "is_empty":
		if len(args) != 0 {
			return unknownf(n, tristate.InvalidOperand, "%s takes no arguments", callee.Property)
		}
		return w.property(n, recv, callee.Property, f)
	case "contains", "includes":
		if len(args) != 1 {
			return unknownf(n, tristate.InvalidOperand, "%s takes one argument", callee.Property)
		}
		return containsValue(n, recv, args[0])
	case "starts_with", "ends_with":
		if len(args) != 1 {
			return unknownf(n, tristate.InvalidOperand, "%s takes one argument", callee.Property)
		}
		s, ok1 := recv.Value.(ir.String)
		affix, ok2 := args[0].Value.(ir.String)
		if !ok1 || !ok2 {
			return unknownf(n, tristate.TypeMismatch, "%s needs strings", callee.Property)
		}
		if callee.Property == "starts_with" {
			return known(n, ir.Bool(strings.HasPrefix(string(s), string(affix))), children...)
		}
		return known(n, ir.Bool(strings.HasSuffix(string(s), string(affix))), children...)
	}
	return unknownf(n, tristate.UnsupportedFunction, "method %q is not supported", callee.Property)
}

func containsValue(n ast.Expr, recv, arg Result) Result {
	switch v := recv.Value.(type) {
	case ir.List:
		for _, e := range v {
			if ir.Equal(e, arg.Value) {
				return known(n, ir.Bool(true), recv, arg)
			}
		}
		return known(n, ir.Bool(false), recv, arg)
	case ir.String:
		sub, ok := arg.Value.(ir.String)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "contains on a string needs a string, got %s", ir.TypeName(arg.Value))
		}
		return known(n, ir.Bool(strings.Contains(string(v), string(sub))), recv, arg)
	case ir.Object:
		key, ok := arg.Value.(ir.String)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "contains on an object needs a string key, got %s", ir.TypeName(arg.Value))
		}
		_, found := v[string(key)]
		return known(n, ir.Bool(found), recv, arg)
	}
	return unknownf(n, tristate.TypeMismatch, "contains is not defined on %s", ir.TypeName(recv.Value))
}

// builtin evaluates the free functions abs, min, max and len.
func (w *walker) builtin(n *ast.Call, name string, f frame) Result {
	switch name {
	case "abs", "min", "max", "len":
	default:
		return unknownf(n, tristate.UnsupportedFunction, "function %q is not supported", name)
	}

	args, ok := w.args(n, f)
	if !ok {
		return propagate(n, args...)
	}

	switch name {
	case "abs":
		if len(args) != 1 {
			return unknown(n, tristate.InvalidOperand, "abs takes one argument", args...)
		}
		switch v := args[0].Value.(type) {
		case ir.Int:
			if v == math.MinInt64 {
				return unknown(n, tristate.InvalidOperand, "integer overflow", args...)
			}
			if v < 0 {
				v = -v
			}
			return known(n, v, args...)
		case ir.Float:
			return known(n, ir.Float(math.Abs(float64(v))), args...)
		}
		return unknownf(n, tristate.TypeMismatch, "abs needs a number, got %s", ir.TypeName(args[0].Value))
	case "len":
		if len(args) != 1 {
			return unknown(n, tristate.InvalidOperand, "len takes one argument", args...)
		}
		return w.length(n, args[0], f)
	}
	return extremum(n, name == "max", args)
}

// extremum implements min and max over arguments, or over a single list.
func extremum(n ast.Expr, wantMax bool, args []Result) Result {
	values := make([]ir.Value, 0, len(args))
	if l, ok := singleList(args); ok {
		values = append(values, l...)
	} else {
		for _, a := range args {
			values = append(values, a.Value)
		}
	}
	if len(values) == 0 {
		return unknown(n, tristate.InvalidOperand, "min and max need at least one value", args...)
	}

	best := values[0]
	for _, v := range values[1:] {
		c, ok := ir.Compare(v, best)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "cannot order %s and %s", ir.TypeName(v), ir.TypeName(best))
		}
		if (wantMax && c > 0) || (!wantMax && c < 0) {
			best = v
		}
	}
	if _, ok := ir.Compare(best, best); !ok {
		return unknownf(n, tristate.TypeMismatch, "cannot order %s", ir.TypeName(best))
	}
	return known(n, best, args...)
}

func singleList(args []Result) (ir.List, bool) {
	if len(args) != 1 {
		return nil, false
	}
	l, ok := args[0].Value.(ir.List)
	return l, ok
}

func (w *walker) length(n ast.Expr, target Result, f frame) Result {
	size, err := f.ec.adapter().Length(w.ctx, target.Value)
	if err != nil {
		return w.adapterFailure(n, "length", err, target)
	}
	return known(n, ir.Int(size), target)
}

func (w *walker) isValid(n ast.Expr, target Result, f frame) Result {
	t, err := f.ec.adapter().IsValid(w.ctx, target.Value)
	if err != nil {
		return w.adapterFailure(n, "is_valid", err, target)
	}
	return adapterTruth(n, t, target)
}

func (w *walker) isEmpty(n ast.Expr, target Result, f frame) Result {
	size, err := f.ec.adapter().Length(w.ctx, target.Value)
	if err != nil {
		return w.adapterFailure(n, "length", err, target)
	}
	return known(n, ir.Bool(size == 0), target)
}
