package ast

// Constructors for building trees in code. Nodes built here carry no span.

func Null() *NullLit                  { return &NullLit{} }
func Bool(v bool) *BoolLit            { return &BoolLit{Value: v} }
func Int(v int64) *IntLit             { return &IntLit{Value: v} }
func Float(v float64) *FloatLit       { return &FloatLit{Value: v} }
func Str(v string) *StringLit         { return &StringLit{Value: v} }
func Regex(pattern string) *RegexLit  { return &RegexLit{Pattern: pattern} }
func Ident(name string) *Identifier   { return &Identifier{Name: name} }

func QName(parts ...string) *QualifiedName { return &QualifiedName{Parts: parts} }

func Mem(obj Expr, property string) *Member { return &Member{Object: obj, Property: property} }
func Idx(obj, index Expr) *Index            { return &Index{Object: obj, Index: index} }

func Not(operand Expr) *Unary { return &Unary{Op: OpNot, Operand: operand} }
func Neg(operand Expr) *Unary { return &Unary{Op: OpNeg, Operand: operand} }

func Bin(op BinaryOp, left, right Expr) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

func Cond(cond, then, els Expr) *Conditional {
	return &Conditional{Cond: cond, Then: then, Else: els}
}

func Quant(q QuantifierKind, collection Expr, variable string, predicate Expr) *Quantifier {
	return &Quantifier{Quantifier: q, Collection: collection, Variable: variable, Predicate: predicate}
}

func OldOf(e Expr) *Old                { return &Old{Expr: e} }
func Input(property string) *InputRef   { return &InputRef{Property: property} }
func Result(property string) *ResultRef { return &ResultRef{Property: property} }
func List(elems ...Expr) *ListLit       { return &ListLit{Elements: elems} }

func CallOf(callee Expr, args ...Expr) *Call { return &Call{Callee: callee, Args: args} }

func Fn(params []string, body Expr) *Lambda { return &Lambda{Params: params, Body: body} }

func RangeOf(start, end Expr) *Range { return &Range{Start: start, End: end} }
