package eval

import (
	"context"

	"github.com/roach88/islproof/internal/ast"
)

// folded is a pre-computed result for a literal-only subtree.
type folded struct {
	result Result
	height int
}

// plan records the maximal literal-only subtrees of root whose value is
// known. Each root is planned once per Evaluator.
func (ev *Evaluator) plan(root ast.Expr) {
	if root == nil {
		return
	}
	if _, done := ev.planned.LoadOrStore(root, struct{}{}); done {
		return
	}
	if _, constant := ev.foldTree(root); constant {
		ev.record(root)
	}
}

// foldTree returns the height of e and whether it is literal-only. It
// records every constant child of a non-constant node.
func (ev *Evaluator) foldTree(e ast.Expr) (height int, constant bool) {
	children := ast.Children(e)
	constant = isFoldable(e)
	childConstant := make([]bool, len(children))
	for i, c := range children {
		if c == nil {
			constant = false
			continue
		}
		h, cc := ev.foldTree(c)
		height = max(height, h+1)
		childConstant[i] = cc
		constant = constant && cc
	}
	if !constant {
		for i, c := range children {
			if childConstant[i] {
				ev.record(c)
			}
		}
	}
	return height, constant
}

func isFoldable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.NullLit, *ast.BoolLit, *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.RegexLit,
		*ast.Unary, *ast.Binary, *ast.Conditional, *ast.ListLit, *ast.MapLit, *ast.Range:
		return true
	}
	return false
}

// record evaluates a constant subtree once. Unknown results are not kept,
// so folding never changes how an unknown is reported.
func (ev *Evaluator) record(e ast.Expr) {
	if _, ok := ev.folded.Load(e); ok {
		return
	}
	switch e.(type) {
	case *ast.NullLit, *ast.BoolLit, *ast.IntLit, *ast.FloatLit, *ast.StringLit:
		return // already as cheap as a lookup
	}
	w := &walker{ev: ev, ctx: context.Background()}
	r := ast.Dispatch[Result, frame](e, w, frame{ec: NewContext(), depth: 0})
	if !r.Known() {
		return
	}
	height, _ := ev.foldTree(e)
	ev.folded.Store(e, folded{result: r, height: height})
}

// foldedResult returns the pre-computed result for e when evaluating it at
// the current depth could not hit the depth guard.
func (ev *Evaluator) foldedResult(e ast.Expr, f frame) (Result, bool) {
	if e == nil {
		return Result{}, false
	}
	v, ok := ev.folded.Load(e)
	if !ok {
		return Result{}, false
	}
	fr := v.(folded)
	if f.depth+fr.height > f.ec.maxDepth() {
		return Result{}, false
	}
	return fr.result, true
}
