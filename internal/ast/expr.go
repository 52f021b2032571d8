package ast

import "fmt"

// Kind names an expression node type. It is the "kind" tag of the wire
// format and the node kind recorded in an Unknown's cause.
type Kind string

const (
	KindNull          Kind = "null"
	KindBool          Kind = "bool"
	KindInt           Kind = "int"
	KindFloat         Kind = "float"
	KindString        Kind = "string"
	KindRegex         Kind = "regex"
	KindIdentifier    Kind = "identifier"
	KindQualifiedName Kind = "qualified_name"
	KindMember        Kind = "member"
	KindIndex         Kind = "index"
	KindUnary         Kind = "unary"
	KindBinary        Kind = "binary"
	KindConditional   Kind = "conditional"
	KindQuantifier    Kind = "quantifier"
	KindOld           Kind = "old"
	KindInput         Kind = "input"
	KindResult        Kind = "result"
	KindList          Kind = "list"
	KindMap           Kind = "map"
	KindCall          Kind = "call"
	KindLambda        Kind = "lambda"
	KindRange         Kind = "range"
)

// Span locates a node in contract source. Lines and columns are 1-based;
// the zero Span means the location is unknown.
type Span struct {
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	Line      int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column    int    `json:"column,omitempty" yaml:"column,omitempty"`
	EndLine   int    `json:"end_line,omitempty" yaml:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty" yaml:"end_column,omitempty"`
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Ref points at the sub-expression responsible for a result.
type Ref struct {
	Kind Kind `json:"kind"`
	Span Span `json:"span"`
}

// RefOf returns the reference to e.
func RefOf(e Expr) Ref {
	if e == nil {
		return Ref{}
	}
	return Ref{Kind: e.Kind(), Span: e.Pos()}
}

// Expr is a sealed interface over the typed expression tree produced by the
// contract front end. Only the node types in this file implement it.
type Expr interface {
	exprNode()
	Kind() Kind
	Pos() Span
}

// At is embedded by every node to carry its source span.
type At struct {
	Span Span
}

// Pos returns the node's source span.
func (a At) Pos() Span { return a.Span }

// UnaryOp is a prefix operator.
type UnaryOp string

const (
	OpNot UnaryOp = "not"
	OpNeg UnaryOp = "-"
)

// BinaryOp is an infix operator.
type BinaryOp string

const (
	OpAdd     BinaryOp = "+"
	OpSub     BinaryOp = "-"
	OpMul     BinaryOp = "*"
	OpDiv     BinaryOp = "/"
	OpMod     BinaryOp = "%"
	OpEq      BinaryOp = "=="
	OpNe      BinaryOp = "!="
	OpLt      BinaryOp = "<"
	OpLe      BinaryOp = "<="
	OpGt      BinaryOp = ">"
	OpGe      BinaryOp = ">="
	OpAnd     BinaryOp = "and"
	OpOr      BinaryOp = "or"
	OpImplies BinaryOp = "implies"
	OpIff     BinaryOp = "iff"
	OpIn      BinaryOp = "in"
	OpMatches BinaryOp = "matches"
)

// IsLogical reports whether op combines tri-state truth values.
func (op BinaryOp) IsLogical() bool {
	switch op {
	case OpAnd, OpOr, OpImplies, OpIff:
		return true
	}
	return false
}

// QuantifierKind selects the aggregate a Quantifier computes.
type QuantifierKind string

const (
	QuantAll    QuantifierKind = "all"
	QuantAny    QuantifierKind = "any"
	QuantNone   QuantifierKind = "none"
	QuantCount  QuantifierKind = "count"
	QuantSum    QuantifierKind = "sum"
	QuantFilter QuantifierKind = "filter"
)

type (
	// NullLit is the null literal.
	NullLit struct{ At }

	// BoolLit is true or false.
	BoolLit struct {
		At
		Value bool
	}

	// IntLit is an integer literal.
	IntLit struct {
		At
		Value int64
	}

	// FloatLit is a decimal literal.
	FloatLit struct {
		At
		Value float64
	}

	// StringLit is a string literal.
	StringLit struct {
		At
		Value string
	}

	// RegexLit is a regular expression literal, used on the right of matches.
	RegexLit struct {
		At
		Pattern string
		Flags   string
	}

	// Identifier is a bare name bound by a quantifier, lambda or context variable.
	Identifier struct {
		At
		Name string
	}

	// QualifiedName is a dotted name such as Status.ACTIVE.
	QualifiedName struct {
		At
		Parts []string
	}

	// Member is property access: Object.Property.
	Member struct {
		At
		Object   Expr
		Property string
	}

	// Index is Object[Index].
	Index struct {
		At
		Object Expr
		Index  Expr
	}

	Unary struct {
		At
		Op      UnaryOp
		Operand Expr
	}

	Binary struct {
		At
		Op    BinaryOp
		Left  Expr
		Right Expr
	}

	// Conditional is Cond ? Then : Else.
	Conditional struct {
		At
		Cond Expr
		Then Expr
		Else Expr
	}

	// Quantifier applies Predicate to each element of Collection bound to Variable.
	Quantifier struct {
		At
		Quantifier QuantifierKind
		Collection Expr
		Variable   string
		Predicate  Expr
	}

	// Old evaluates Expr against the pre-execution snapshot.
	Old struct {
		At
		Expr Expr
	}

	// InputRef is input or input.Property when Property is set.
	InputRef struct {
		At
		Property string
	}

	// ResultRef is result or result.Property when Property is set.
	ResultRef struct {
		At
		Property string
	}

	ListLit struct {
		At
		Elements []Expr
	}

	// MapLit is an object literal with string keys in source order.
	MapLit struct {
		At
		Entries []MapEntry
	}

	// Call is Callee(Args...). A Member callee is a method call on its object.
	Call struct {
		At
		Callee Expr
		Args   []Expr
	}

	// Lambda is (Params) => Body.
	Lambda struct {
		At
		Params []string
		Body   Expr
	}

	// Range is the integer interval [Start, End).
	Range struct {
		At
		Start Expr
		End   Expr
	}
)

// MapEntry is one key of a MapLit.
type MapEntry struct {
	Key   string
	Value Expr
}

func (*NullLit) exprNode()       {}
func (*BoolLit) exprNode()       {}
func (*IntLit) exprNode()        {}
func (*FloatLit) exprNode()      {}
func (*StringLit) exprNode()     {}
func (*RegexLit) exprNode()      {}
func (*Identifier) exprNode()    {}
func (*QualifiedName) exprNode() {}
func (*Member) exprNode()        {}
func (*Index) exprNode()         {}
func (*Unary) exprNode()         {}
func (*Binary) exprNode()        {}
func (*Conditional) exprNode()   {}
func (*Quantifier) exprNode()    {}
func (*Old) exprNode()           {}
func (*InputRef) exprNode()      {}
func (*ResultRef) exprNode()     {}
func (*ListLit) exprNode()       {}
func (*MapLit) exprNode()        {}
func (*Call) exprNode()          {}
func (*Lambda) exprNode()        {}
func (*Range) exprNode()         {}

func (*NullLit) Kind() Kind       { return KindNull }
func (*BoolLit) Kind() Kind       { return KindBool }
func (*IntLit) Kind() Kind        { return KindInt }
func (*FloatLit) Kind() Kind      { return KindFloat }
func (*StringLit) Kind() Kind     { return KindString }
func (*RegexLit) Kind() Kind      { return KindRegex }
func (*Identifier) Kind() Kind    { return KindIdentifier }
func (*QualifiedName) Kind() Kind { return KindQualifiedName }
func (*Member) Kind() Kind        { return KindMember }
func (*Index) Kind() Kind         { return KindIndex }
func (*Unary) Kind() Kind         { return KindUnary }
func (*Binary) Kind() Kind        { return KindBinary }
func (*Conditional) Kind() Kind   { return KindConditional }
func (*Quantifier) Kind() Kind    { return KindQuantifier }
func (*Old) Kind() Kind           { return KindOld }
func (*InputRef) Kind() Kind      { return KindInput }
func (*ResultRef) Kind() Kind     { return KindResult }
func (*ListLit) Kind() Kind       { return KindList }
func (*MapLit) Kind() Kind        { return KindMap }
func (*Call) Kind() Kind          { return KindCall }
func (*Lambda) Kind() Kind        { return KindLambda }
func (*Range) Kind() Kind         { return KindRange }
