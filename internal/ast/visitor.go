package ast

// Visitor handles every expression node kind. R is the result type and A an
// argument threaded through the traversal. Adding a node kind adds a method
// here, so every visitor in the module stops compiling until it handles it.
type Visitor[R, A any] interface {
	VisitNull(n *NullLit, arg A) R
	VisitBool(n *BoolLit, arg A) R
	VisitInt(n *IntLit, arg A) R
	VisitFloat(n *FloatLit, arg A) R
	VisitString(n *StringLit, arg A) R
	VisitRegex(n *RegexLit, arg A) R
	VisitIdentifier(n *Identifier, arg A) R
	VisitQualifiedName(n *QualifiedName, arg A) R
	VisitMember(n *Member, arg A) R
	VisitIndex(n *Index, arg A) R
	VisitUnary(n *Unary, arg A) R
	VisitBinary(n *Binary, arg A) R
	VisitConditional(n *Conditional, arg A) R
	VisitQuantifier(n *Quantifier, arg A) R
	VisitOld(n *Old, arg A) R
	VisitInput(n *InputRef, arg A) R
	VisitResult(n *ResultRef, arg A) R
	VisitList(n *ListLit, arg A) R
	VisitMap(n *MapLit, arg A) R
	VisitCall(n *Call, arg A) R
	VisitLambda(n *Lambda, arg A) R
	VisitRange(n *Range, arg A) R

	// VisitInvalid receives nil expressions and nil node pointers.
	VisitInvalid(e Expr, arg A) R
}

// Dispatch calls the visitor method matching e's concrete type.
func Dispatch[R, A any](e Expr, v Visitor[R, A], arg A) R {
	switch n := e.(type) {
	case *NullLit:
		if n != nil {
			return v.VisitNull(n, arg)
		}
	case *BoolLit:
		if n != nil {
			return v.VisitBool(n, arg)
		}
	case *IntLit:
		if n != nil {
			return v.VisitInt(n, arg)
		}
	case *FloatLit:
		if n != nil {
			return v.VisitFloat(n, arg)
		}
	case *StringLit:
		if n != nil {
			return v.VisitString(n, arg)
		}
	case *RegexLit:
		if n != nil {
			return v.VisitRegex(n, arg)
		}
	case *Identifier:
		if n != nil {
			return v.VisitIdentifier(n, arg)
		}
	case *QualifiedName:
		if n != nil {
			return v.VisitQualifiedName(n, arg)
		}
	case *Member:
		if n != nil {
			return v.VisitMember(n, arg)
		}
	case *Index:
		if n != nil {
			return v.VisitIndex(n, arg)
		}
	case *Unary:
		if n != nil {
			return v.VisitUnary(n, arg)
		}
	case *Binary:
		if n != nil {
			return v.VisitBinary(n, arg)
		}
	case *Conditional:
		if n != nil {
			return v.VisitConditional(n, arg)
		}
	case *Quantifier:
		if n != nil {
			return v.VisitQuantifier(n, arg)
		}
	case *Old:
		if n != nil {
			return v.VisitOld(n, arg)
		}
	case *InputRef:
		if n != nil {
			return v.VisitInput(n, arg)
		}
	case *ResultRef:
		if n != nil {
			return v.VisitResult(n, arg)
		}
	case *ListLit:
		if n != nil {
			return v.VisitList(n, arg)
		}
	case *MapLit:
		if n != nil {
			return v.VisitMap(n, arg)
		}
	case *Call:
		if n != nil {
			return v.VisitCall(n, arg)
		}
	case *Lambda:
		if n != nil {
			return v.VisitLambda(n, arg)
		}
	case *Range:
		if n != nil {
			return v.VisitRange(n, arg)
		}
	}
	return v.VisitInvalid(e, arg)
}

// Children returns the direct sub-expressions of e in evaluation order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Member:
		return []Expr{n.Object}
	case *Index:
		return []Expr{n.Object, n.Index}
	case *Unary:
		return []Expr{n.Operand}
	case *Binary:
		return []Expr{n.Left, n.Right}
	case *Conditional:
		return []Expr{n.Cond, n.Then, n.Else}
	case *Quantifier:
		return []Expr{n.Collection, n.Predicate}
	case *Old:
		return []Expr{n.Expr}
	case *ListLit:
		return n.Elements
	case *MapLit:
		out := make([]Expr, len(n.Entries))
		for i, entry := range n.Entries {
			out[i] = entry.Value
		}
		return out
	case *Call:
		return append([]Expr{n.Callee}, n.Args...)
	case *Lambda:
		return []Expr{n.Body}
	case *Range:
		return []Expr{n.Start, n.End}
	}
	return nil
}

// Inspect traverses e depth-first, calling fn for each node. If fn returns
// false, the children of that node are skipped.
func Inspect(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Inspect(c, fn)
	}
}

// IsConstant reports whether e is built only from literals, so its value
// does not depend on any evaluation context.
func IsConstant(e Expr) bool {
	constant := true
	Inspect(e, func(n Expr) bool {
		switch n.(type) {
		case *NullLit, *BoolLit, *IntLit, *FloatLit, *StringLit, *RegexLit,
			*Unary, *Binary, *Conditional, *ListLit, *MapLit, *Range:
			return true
		}
		constant = false
		return false
	})
	return constant
}
