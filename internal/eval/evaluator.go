package eval

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/tristate"
)

// CacheKey identifies one (expression, context) evaluation.
type CacheKey struct {
	Expr    string
	Context string
}

// Cache memoizes top-level evaluations. Implementations must be safe for
// concurrent use; computing the same key twice is allowed.
type Cache interface {
	GetOrCompute(key CacheKey, compute func() Result) Result
}

// Evaluator evaluates contract expressions against a Context. It holds no
// per-evaluation state and may be shared between goroutines.
type Evaluator struct {
	cache  Cache
	fold   bool
	logger *slog.Logger

	regexps sync.Map // pattern -> *regexp.Regexp or error
	folded  sync.Map // ast.Expr -> foldedResult
	planned sync.Map // root ast.Expr -> struct{}
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCache memoizes top-level evaluations in c. A nil cache disables caching.
func WithCache(c Cache) Option {
	return func(e *Evaluator) { e.cache = c }
}

// WithConstantFolding pre-evaluates literal-only subtrees once per
// expression and reuses their results.
func WithConstantFolding(enabled bool) Option {
	return func(e *Evaluator) { e.fold = enabled }
}

// WithLogger sets the logger used for adapter diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate evaluates expr against ec starting at depth 0. It never panics on
// a well-formed tree: anything that cannot be decided is reported as an
// unknown result with a reason.
func (ev *Evaluator) Evaluate(ctx context.Context, expr ast.Expr, ec *Context) Result {
	if ev.cache == nil {
		return ev.EvaluateAt(ctx, expr, ec, 0)
	}

	key, ok := ev.cacheKey(expr, ec)
	if !ok {
		return ev.EvaluateAt(ctx, expr, ec, 0)
	}
	return ev.cache.GetOrCompute(key, func() Result {
		return ev.EvaluateAt(ctx, expr, ec, 0)
	})
}

// EvaluateAt evaluates expr as if it were nested depth levels deep.
func (ev *Evaluator) EvaluateAt(ctx context.Context, expr ast.Expr, ec *Context, depth int) Result {
	if ec == nil {
		ec = NewContext()
	}
	if ev.fold {
		ev.plan(expr)
	}
	w := &walker{ev: ev, ctx: ctx}
	return w.eval(expr, frame{ec: ec, depth: depth})
}

func (ev *Evaluator) cacheKey(expr ast.Expr, ec *Context) (CacheKey, bool) {
	if ec == nil {
		return CacheKey{}, false
	}
	exprHash, err := ast.Hash(expr)
	if err != nil {
		return CacheKey{}, false
	}
	ctxHash, err := ec.Hash()
	if err != nil {
		return CacheKey{}, false
	}
	return CacheKey{Expr: exprHash, Context: ctxHash}, true
}

func (ev *Evaluator) compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := ev.regexps.Load(pattern); ok {
		if re, ok := cached.(*regexp.Regexp); ok {
			return re, nil
		}
		return nil, cached.(error)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		ev.regexps.Store(pattern, err)
		return nil, err
	}
	ev.regexps.Store(pattern, re)
	return re, nil
}

// scope is the chain of names bound by quantifiers and lambdas.
type scope struct {
	name   string
	value  ir.Value
	parent *scope
}

func (s *scope) lookup(name string) (ir.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.value, true
		}
	}
	return nil, false
}

func (s *scope) bind(name string, v ir.Value) *scope {
	return &scope{name: name, value: v, parent: s}
}

// frame is the per-node evaluation state threaded through the visitor.
type frame struct {
	ec    *Context
	scope *scope
	depth int
}

func (f frame) deeper() frame {
	f.depth++
	return f
}

// resolve looks a name up in the lambda scope, then the context variables.
func (f frame) resolve(name string) (ir.Value, bool) {
	if v, ok := f.scope.lookup(name); ok {
		return v, true
	}
	return f.ec.Variables.Get(name)
}

// walker is the expression visitor. It dispatches exhaustively over every
// node kind via ast.Dispatch.
type walker struct {
	ev  *Evaluator
	ctx context.Context
}

var _ ast.Visitor[Result, frame] = (*walker)(nil)

// eval is the single recursion point. The depth guard runs on every call.
func (w *walker) eval(e ast.Expr, f frame) Result {
	if f.depth > f.ec.maxDepth() {
		return w.depthExceeded(e, f)
	}
	if w.ev.fold {
		if r, ok := w.ev.foldedResult(e, f); ok {
			return r
		}
	}
	return ast.Dispatch[Result, frame](e, w, f)
}

func (w *walker) depthExceeded(e ast.Expr, f frame) Result {
	ref := ast.Ref{}
	if e != nil {
		ref.Kind = e.Kind()
	}
	return Result{
		Truth:  tristate.Unknown(tristate.Timeout, ref),
		Reason: "maximum evaluation depth exceeded",
	}
}

func (w *walker) VisitInvalid(e ast.Expr, _ frame) Result {
	return Result{
		Truth:  tristate.Unknown(tristate.UnsupportedExpression, ast.Ref{}),
		Reason: "malformed expression node",
	}
}

func (w *walker) VisitNull(n *ast.NullLit, _ frame) Result {
	return known(n, ir.Null{})
}

func (w *walker) VisitBool(n *ast.BoolLit, _ frame) Result {
	return known(n, ir.Bool(n.Value))
}

func (w *walker) VisitInt(n *ast.IntLit, _ frame) Result {
	return known(n, ir.Int(n.Value))
}

func (w *walker) VisitFloat(n *ast.FloatLit, _ frame) Result {
	return known(n, ir.Float(n.Value))
}

func (w *walker) VisitString(n *ast.StringLit, _ frame) Result {
	return known(n, ir.String(n.Value))
}

func (w *walker) VisitRegex(n *ast.RegexLit, _ frame) Result {
	return known(n, ir.String(regexSource(n)))
}

func regexSource(n *ast.RegexLit) string {
	if n.Flags == "" {
		return n.Pattern
	}
	return "(?" + n.Flags + ")" + n.Pattern
}

func (w *walker) VisitIdentifier(n *ast.Identifier, f frame) Result {
	if v, ok := f.resolve(n.Name); ok {
		return known(n, v)
	}
	return unknownf(n, tristate.MissingBinding, "%q is not bound", n.Name)
}

// VisitQualifiedName resolves a.b.c as a member path when a is bound. An
// unbound root naming a type, such as Status.ACTIVE, is the enum member
// ACTIVE; any other unbound root is a missing binding.
func (w *walker) VisitQualifiedName(n *ast.QualifiedName, f frame) Result {
	if len(n.Parts) == 0 {
		return unknown(n, tristate.UnsupportedExpression, "empty qualified name")
	}
	root, ok := f.resolve(n.Parts[0])
	if !ok {
		if len(n.Parts) > 1 && isTypeName(n.Parts[0]) {
			return known(n, ir.String(n.Parts[len(n.Parts)-1]))
		}
		return unknownf(n, tristate.MissingBinding, "%q is not bound", n.Parts[0])
	}
	cur := root
	for _, part := range n.Parts[1:] {
		obj, ok := cur.(ir.Object)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "cannot read %q of %s", part, ir.TypeName(cur))
		}
		next, ok := obj[part]
		if !ok {
			return unknownf(n, tristate.MissingProperty, "property %q does not exist", part)
		}
		cur = next
	}
	return known(n, cur)
}

// isTypeName reports whether name is written like an entity or enum type.
func isTypeName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func (w *walker) VisitMember(n *ast.Member, f frame) Result {
	switch obj := n.Object.(type) {
	case *ast.InputRef:
		if obj != nil && obj.Property == "" {
			return w.input(n, n.Property, f)
		}
	case *ast.ResultRef:
		if obj != nil && obj.Property == "" {
			return w.result(n, n.Property, f)
		}
	}

	target := w.eval(n.Object, f.deeper())
	if !target.Known() {
		return propagate(n, target)
	}
	return w.property(n, target, n.Property, f)
}

// property reads name from a known value. Objects are read directly;
// length, is_valid and is_empty on anything else go to the adapter.
func (w *walker) property(n ast.Expr, target Result, name string, f frame) Result {
	switch v := target.Value.(type) {
	case ir.Object:
		if field, ok := v[name]; ok {
			return known(n, field, target)
		}
	case ir.Null:
		if !isValueMethod(name) {
			return unknownf(n, tristate.MissingProperty, "cannot read %q of null", name)
		}
	}

	switch name {
	case "length":
		return w.length(n, target, f)
	case "is_valid":
		return w.isValid(n, target, f)
	case "is_empty":
		return w.isEmpty(n, target, f)
	}

	if _, ok := target.Value.(ir.Object); ok {
		return unknownf(n, tristate.MissingProperty, "property %q does not exist", name)
	}
	return unknownf(n, tristate.TypeMismatch, "cannot read %q of %s", name, ir.TypeName(target.Value))
}

func isValueMethod(name string) bool {
	switch name {
	case "length", "is_valid", "is_empty":
		return true
	}
	return false
}

func (w *walker) VisitIndex(n *ast.Index, f frame) Result {
	target := w.eval(n.Object, f.deeper())
	index := w.eval(n.Index, f.deeper())
	if !target.Known() || !index.Known() {
		return propagate(n, target, index)
	}

	switch coll := target.Value.(type) {
	case ir.List:
		i, ok := index.Value.(ir.Int)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "list index must be int, got %s", ir.TypeName(index.Value))
		}
		if i < 0 || int(i) >= len(coll) {
			return unknownf(n, tristate.MissingProperty, "index %d out of bounds for length %d", i, len(coll))
		}
		return known(n, coll[i], target, index)
	case ir.Object:
		key, ok := index.Value.(ir.String)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "object key must be string, got %s", ir.TypeName(index.Value))
		}
		v, ok := coll[string(key)]
		if !ok {
			return unknownf(n, tristate.MissingProperty, "key %q does not exist", key)
		}
		return known(n, v, target, index)
	case ir.String:
		i, ok := index.Value.(ir.Int)
		if !ok {
			return unknownf(n, tristate.TypeMismatch, "string index must be int, got %s", ir.TypeName(index.Value))
		}
		runes := []rune(string(coll))
		if i < 0 || int(i) >= len(runes) {
			return unknownf(n, tristate.MissingProperty, "index %d out of bounds for length %d", i, len(runes))
		}
		return known(n, ir.String(runes[i]), target, index)
	}
	return unknownf(n, tristate.TypeMismatch, "cannot index %s", ir.TypeName(target.Value))
}

func (w *walker) VisitConditional(n *ast.Conditional, f frame) Result {
	cond := w.eval(n.Cond, f.deeper())
	if b, ok := cond.Truth.Known(); ok {
		if b {
			branch := w.eval(n.Then, f.deeper())
			return w.choose(n, branch, cond)
		}
		branch := w.eval(n.Else, f.deeper())
		return w.choose(n, branch, cond)
	}

	// Both branches agreeing makes the condition irrelevant.
	then := w.eval(n.Then, f.deeper())
	els := w.eval(n.Else, f.deeper())
	if then.Known() && els.Known() && ir.Equal(then.Value, els.Value) {
		return known(n, then.Value, cond, then, els)
	}
	return truthResult(n, cond.Truth, cond, then, els)
}

func (w *walker) choose(n ast.Expr, branch, cond Result) Result {
	if !branch.Known() {
		return propagate(n, cond, branch)
	}
	return known(n, branch.Value, cond, branch)
}

func (w *walker) VisitOld(n *ast.Old, f frame) Result {
	if f.ec.OldState == nil {
		return unknown(n, tristate.MissingOldState, "no pre-state snapshot was captured")
	}
	inner := w.eval(n.Expr, frame{ec: f.ec.oldContext(), scope: f.scope, depth: f.depth + 1})
	if !inner.Known() {
		return propagate(n, inner)
	}
	return known(n, inner.Value, inner)
}

func (w *walker) VisitInput(n *ast.InputRef, f frame) Result {
	return w.input(n, n.Property, f)
}

func (w *walker) input(n ast.Expr, property string, f frame) Result {
	if f.ec.Input == nil {
		return unknown(n, tristate.MissingInput, "no input is bound")
	}
	if property == "" {
		return known(n, f.ec.Input)
	}
	v, ok := f.ec.Input[property]
	if !ok {
		return unknownf(n, tristate.MissingInput, "input field %q is absent", property)
	}
	return known(n, v)
}

func (w *walker) VisitResult(n *ast.ResultRef, f frame) Result {
	return w.result(n, n.Property, f)
}

func (w *walker) result(n ast.Expr, property string, f frame) Result {
	if f.ec.Result == nil {
		return unknown(n, tristate.MissingResult, "no result is available")
	}
	if property == "" {
		return known(n, f.ec.Result)
	}
	obj, ok := f.ec.Result.(ir.Object)
	if !ok {
		return unknownf(n, tristate.TypeMismatch, "cannot read %q of %s result", property, ir.TypeName(f.ec.Result))
	}
	v, ok := obj[property]
	if !ok {
		return unknownf(n, tristate.MissingProperty, "result field %q is absent", property)
	}
	return known(n, v)
}

func (w *walker) VisitList(n *ast.ListLit, f frame) Result {
	children := make([]Result, len(n.Elements))
	values := make(ir.List, len(n.Elements))
	unknownSeen := false
	for i, e := range n.Elements {
		children[i] = w.eval(e, f.deeper())
		values[i] = children[i].Value
		unknownSeen = unknownSeen || !children[i].Known()
	}
	if unknownSeen {
		return propagate(n, children...)
	}
	return known(n, values, children...)
}

func (w *walker) VisitMap(n *ast.MapLit, f frame) Result {
	children := make([]Result, len(n.Entries))
	obj := make(ir.Object, len(n.Entries))
	unknownSeen := false
	for i, entry := range n.Entries {
		children[i] = w.eval(entry.Value, f.deeper())
		obj[entry.Key] = children[i].Value
		unknownSeen = unknownSeen || !children[i].Known()
	}
	if unknownSeen {
		return propagate(n, children...)
	}
	return known(n, obj, children...)
}

func (w *walker) VisitLambda(n *ast.Lambda, _ frame) Result {
	return unknown(n, tristate.UnsupportedExpression, "a lambda is only valid as a quantifier predicate")
}

// maxRangeLen bounds the list a Range literal may materialize.
const maxRangeLen = 100_000

func (w *walker) VisitRange(n *ast.Range, f frame) Result {
	start := w.eval(n.Start, f.deeper())
	end := w.eval(n.End, f.deeper())
	if !start.Known() || !end.Known() {
		return propagate(n, start, end)
	}
	lo, ok1 := start.Value.(ir.Int)
	hi, ok2 := end.Value.(ir.Int)
	if !ok1 || !ok2 {
		return unknown(n, tristate.TypeMismatch, "range bounds must be int", start, end)
	}
	if hi > lo && uint64(hi)-uint64(lo) > maxRangeLen {
		return unknownf(n, tristate.InvalidOperand, "range [%d, %d) has more than %d elements", lo, hi, maxRangeLen)
	}
	out := ir.List{}
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return known(n, out, start, end)
}
