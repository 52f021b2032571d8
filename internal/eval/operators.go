package eval

import (
	"math"
	"strings"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/tristate"
)

func (w *walker) VisitUnary(n *ast.Unary, f frame) Result {
	switch n.Op {
	case ast.OpNot:
		operand := w.eval(n.Operand, f.deeper())
		return truthResult(n, tristate.Not(operand.Truth), operand)
	case ast.OpNeg:
		operand := w.eval(n.Operand, f.deeper())
		if !operand.Known() {
			return propagate(n, operand)
		}
		switch v := operand.Value.(type) {
		case ir.Int:
			if v == math.MinInt64 {
				return unknown(n, tristate.InvalidOperand, "integer overflow", operand)
			}
			return known(n, -v, operand)
		case ir.Float:
			return known(n, -v, operand)
		}
		return unknownf(n, tristate.TypeMismatch, "cannot negate %s", ir.TypeName(operand.Value))
	}
	return unknownf(n, tristate.UnsupportedOperator, "unary operator %q is not supported", n.Op)
}

func (w *walker) VisitBinary(n *ast.Binary, f frame) Result {
	if n.Op.IsLogical() {
		return w.logical(n, f)
	}

	switch n.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod,
		ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe,
		ast.OpIn, ast.OpMatches:
	default:
		return unknownf(n, tristate.UnsupportedOperator, "binary operator %q is not supported", n.Op)
	}

	left := w.eval(n.Left, f.deeper())
	right := w.eval(n.Right, f.deeper())
	if !left.Known() || !right.Known() {
		return propagate(n, left, right)
	}

	switch n.Op {
	case ast.OpEq:
		return known(n, ir.Bool(ir.Equal(left.Value, right.Value)), left, right)
	case ast.OpNe:
		return known(n, ir.Bool(!ir.Equal(left.Value, right.Value)), left, right)
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return compare(n, left, right)
	case ast.OpIn:
		return membership(n, left, right)
	case ast.OpMatches:
		return w.matches(n, left, right)
	}
	return arithmetic(n, left, right)
}

// logical evaluates and/or/implies/iff with short-circuiting: the right
// operand is not evaluated when the left one already decides the result.
func (w *walker) logical(n *ast.Binary, f frame) Result {
	left := w.eval(n.Left, f.deeper())

	switch n.Op {
	case ast.OpAnd:
		if left.Truth.IsFalse() {
			return truthResult(n, tristate.False, left)
		}
	case ast.OpOr, ast.OpImplies:
		if (n.Op == ast.OpOr && left.Truth.IsTrue()) || (n.Op == ast.OpImplies && left.Truth.IsFalse()) {
			return truthResult(n, tristate.True, left)
		}
	}

	right := w.eval(n.Right, f.deeper())
	var t tristate.TriState
	switch n.Op {
	case ast.OpAnd:
		t = tristate.And(left.Truth, right.Truth)
	case ast.OpOr:
		t = tristate.Or(left.Truth, right.Truth)
	case ast.OpImplies:
		t = tristate.Implies(left.Truth, right.Truth)
	case ast.OpIff:
		t = tristate.Iff(left.Truth, right.Truth)
	}
	return truthResult(n, t, left, right)
}

func compare(n *ast.Binary, left, right Result) Result {
	c, ok := ir.Compare(left.Value, right.Value)
	if !ok {
		return unknownf(n, tristate.TypeMismatch, "cannot compare %s %s %s",
			ir.TypeName(left.Value), n.Op, ir.TypeName(right.Value))
	}
	var b bool
	switch n.Op {
	case ast.OpLt:
		b = c < 0
	case ast.OpLe:
		b = c <= 0
	case ast.OpGt:
		b = c > 0
	case ast.OpGe:
		b = c >= 0
	}
	return known(n, ir.Bool(b), left, right)
}

func membership(n *ast.Binary, left, right Result) Result {
	switch coll := right.Value.(type) {
	case ir.List:
		for _, e := range coll {
			if ir.Equal(left.Value, e) {
				return known(n, ir.Bool(true), left, right)
			}
		}
		return known(n, ir.Bool(false), left, right)
	case ir.Object:
		key, ok := left.Value.(ir.String)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "object membership needs a string key, got %s", ir.TypeName(left.Value))
		}
		_, found := coll[string(key)]
		return known(n, ir.Bool(found), left, right)
	case ir.String:
		sub, ok := left.Value.(ir.String)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "substring test needs a string, got %s", ir.TypeName(left.Value))
		}
		return known(n, ir.Bool(strings.Contains(string(coll), string(sub))), left, right)
	}
	return unknownf(n, tristate.TypeMismatch, "cannot test membership in %s", ir.TypeName(right.Value))
}

func (w *walker) matches(n *ast.Binary, left, right Result) Result {
	subject, ok := left.Value.(ir.String)
	if !ok {
		return unknownf(n, tristate.TypeMismatch, "matches needs a string subject, got %s", ir.TypeName(left.Value))
	}
	pattern, ok := right.Value.(ir.String)
	if !ok {
		return unknownf(n, tristate.TypeMismatch, "matches needs a string pattern, got %s", ir.TypeName(right.Value))
	}
	re, err := w.ev.compile(string(pattern))
	if err != nil {
		return unknownf(n, tristate.InvalidPattern, "invalid pattern %q: %v", pattern, err)
	}
	return known(n, ir.Bool(re.MatchString(string(subject))), left, right)
}

func arithmetic(n *ast.Binary, left, right Result) Result {
	if n.Op == ast.OpAdd {
		switch l := left.Value.(type) {
		case ir.String:
			if r, ok := right.Value.(ir.String); ok {
				return known(n, l+r, left, right)
			}
		case ir.List:
			if r, ok := right.Value.(ir.List); ok {
				out := make(ir.List, 0, len(l)+len(r))
				return known(n, append(append(out, l...), r...), left, right)
			}
		}
	}

	if !ir.IsNumber(left.Value) || !ir.IsNumber(right.Value) {
		return unknownf(n, tristate.TypeMismatch, "cannot apply %s to %s and %s",
			n.Op, ir.TypeName(left.Value), ir.TypeName(right.Value))
	}

	li, lInt := left.Value.(ir.Int)
	ri, rInt := right.Value.(ir.Int)
	if lInt && rInt {
		return intArithmetic(n, int64(li), int64(ri), left, right)
	}

	lf, _ := ir.AsFloat(left.Value)
	rf, _ := ir.AsFloat(right.Value)
	var v float64
	switch n.Op {
	case ast.OpAdd:
		v = lf + rf
	case ast.OpSub:
		v = lf - rf
	case ast.OpMul:
		v = lf * rf
	case ast.OpDiv:
		if rf == 0 {
			return unknown(n, tristate.DivisionByZero, "division by zero", left, right)
		}
		v = lf / rf
	case ast.OpMod:
		if rf == 0 {
			return unknown(n, tristate.DivisionByZero, "modulo by zero", left, right)
		}
		v = math.Mod(lf, rf)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return unknown(n, tristate.InvalidOperand, "result is not a finite number", left, right)
	}
	return known(n, ir.Float(v), left, right)
}

// intArithmetic keeps integer results exact. Division yields an Int when
// it is exact and a Float otherwise; overflow is an invalid operand.
func intArithmetic(n *ast.Binary, l, r int64, left, right Result) Result {
	overflow := func() Result {
		return unknown(n, tristate.InvalidOperand, "integer overflow", left, right)
	}
	switch n.Op {
	case ast.OpAdd:
		s := l + r
		if (s > l) != (r > 0) {
			return overflow()
		}
		return known(n, ir.Int(s), left, right)
	case ast.OpSub:
		d := l - r
		if (d < l) != (r > 0) {
			return overflow()
		}
		return known(n, ir.Int(d), left, right)
	case ast.OpMul:
		if l == 0 || r == 0 {
			return known(n, ir.Int(0), left, right)
		}
		p := l * r
		if p/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return overflow()
		}
		return known(n, ir.Int(p), left, right)
	case ast.OpDiv:
		if r == 0 {
			return unknown(n, tristate.DivisionByZero, "division by zero", left, right)
		}
		if l == math.MinInt64 && r == -1 {
			return overflow()
		}
		if l%r == 0 {
			return known(n, ir.Int(l/r), left, right)
		}
		return known(n, ir.Float(float64(l)/float64(r)), left, right)
	case ast.OpMod:
		if r == 0 {
			return unknown(n, tristate.DivisionByZero, "modulo by zero", left, right)
		}
		if r == -1 {
			return known(n, ir.Int(0), left, right)
		}
		return known(n, ir.Int(l%r), left, right)
	}
	return unknownf(n, tristate.UnsupportedOperator, "binary operator %q is not supported", n.Op)
}
