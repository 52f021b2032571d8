package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// kindCounter records the kind of every node it visits.
type kindCounter struct{ seen map[Kind]int }

func (k kindCounter) mark(e Expr) int {
	k.seen[e.Kind()]++
	for _, c := range Children(e) {
		Dispatch[int, struct{}](c, k, struct{}{})
	}
	return 0
}

func (k kindCounter) VisitNull(n *NullLit, _ struct{}) int             { return k.mark(n) }
func (k kindCounter) VisitBool(n *BoolLit, _ struct{}) int             { return k.mark(n) }
func (k kindCounter) VisitInt(n *IntLit, _ struct{}) int               { return k.mark(n) }
func (k kindCounter) VisitFloat(n *FloatLit, _ struct{}) int           { return k.mark(n) }
func (k kindCounter) VisitString(n *StringLit, _ struct{}) int         { return k.mark(n) }
func (k kindCounter) VisitRegex(n *RegexLit, _ struct{}) int           { return k.mark(n) }
func (k kindCounter) VisitIdentifier(n *Identifier, _ struct{}) int    { return k.mark(n) }
func (k kindCounter) VisitQualifiedName(n *QualifiedName, _ struct{}) int { return k.mark(n) }
func (k kindCounter) VisitMember(n *Member, _ struct{}) int            { return k.mark(n) }
func (k kindCounter) VisitIndex(n *Index, _ struct{}) int              { return k.mark(n) }
func (k kindCounter) VisitUnary(n *Unary, _ struct{}) int              { return k.mark(n) }
func (k kindCounter) VisitBinary(n *Binary, _ struct{}) int            { return k.mark(n) }
func (k kindCounter) VisitConditional(n *Conditional, _ struct{}) int  { return k.mark(n) }
func (k kindCounter) VisitQuantifier(n *Quantifier, _ struct{}) int    { return k.mark(n) }
func (k kindCounter) VisitOld(n *Old, _ struct{}) int                  { return k.mark(n) }
func (k kindCounter) VisitInput(n *InputRef, _ struct{}) int           { return k.mark(n) }
func (k kindCounter) VisitResult(n *ResultRef, _ struct{}) int         { return k.mark(n) }
func (k kindCounter) VisitList(n *ListLit, _ struct{}) int             { return k.mark(n) }
func (k kindCounter) VisitMap(n *MapLit, _ struct{}) int               { return k.mark(n) }
func (k kindCounter) VisitCall(n *Call, _ struct{}) int                { return k.mark(n) }
func (k kindCounter) VisitLambda(n *Lambda, _ struct{}) int            { return k.mark(n) }
func (k kindCounter) VisitRange(n *Range, _ struct{}) int              { return k.mark(n) }
func (k kindCounter) VisitInvalid(Expr, struct{}) int                  { return -1 }

func TestDispatchReachesEveryKind(t *testing.T) {
	tree := List(
		Null(), Bool(true), Int(1), Float(1.5), Str("s"), Regex("x"),
		Ident("a"), QName("A", "B"), Mem(Ident("a"), "b"), Idx(Ident("a"), Int(0)),
		Not(Bool(true)), Bin(OpAdd, Int(1), Int(2)), Cond(Bool(true), Int(1), Int(2)),
		Quant(QuantAny, Ident("xs"), "x", Bool(true)), OldOf(Input("a")), Input(""), Result(""),
		&MapLit{Entries: []MapEntry{{Key: "k", Value: Int(1)}}},
		CallOf(Ident("f")), Fn(nil, Int(1)), RangeOf(Int(0), Int(1)),
	)

	k := kindCounter{seen: map[Kind]int{}}
	Dispatch[int, struct{}](tree, k, struct{}{})

	assert.Len(t, k.seen, 22, "every node kind must be visited")
}

func TestDispatchInvalid(t *testing.T) {
	k := kindCounter{seen: map[Kind]int{}}

	assert.Equal(t, -1, Dispatch[int, struct{}](nil, k, struct{}{}))
	assert.Equal(t, -1, Dispatch[int, struct{}]((*Binary)(nil), k, struct{}{}))
}

func TestIsConstant(t *testing.T) {
	assert.True(t, IsConstant(Bin(OpMul, Int(2), Bin(OpAdd, Int(3), Float(0.5)))))
	assert.True(t, IsConstant(List(Str("a"), Null())))
	assert.False(t, IsConstant(Bin(OpAdd, Int(1), Input("x"))))
	assert.False(t, IsConstant(CallOf(Ident("abs"), Int(-1))))
}

func TestInspectSkipsChildren(t *testing.T) {
	var kinds []Kind
	Inspect(Bin(OpAnd, OldOf(Input("a")), Bool(true)), func(e Expr) bool {
		kinds = append(kinds, e.Kind())
		return e.Kind() != KindOld
	})

	assert.Equal(t, []Kind{KindBinary, KindOld, KindBool}, kinds)
}
