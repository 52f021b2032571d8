package ast

import (
	"fmt"
	"math"

	"github.com/roach88/islproof/internal/ir"
)

// Wire format: every node is an object tagged with "kind", e.g.
//
//	{"kind":"binary","op":">","left":{"kind":"input","property":"amount"},"right":{"kind":"int","value":0}}
//
// Spans are optional under "span". Encode and Decode are exact inverses for
// every well-formed tree.

// Encode converts an expression tree into its wire value.
func Encode(e Expr) (ir.Object, error) {
	return Dispatch[encoded, struct{}](e, encoder{}, struct{}{}).unwrap()
}

// MarshalExpr encodes e as JSON.
func MarshalExpr(e Expr) ([]byte, error) {
	obj, err := Encode(e)
	if err != nil {
		return nil, err
	}
	return ir.MarshalValue(obj)
}

// UnmarshalExpr decodes a JSON expression tree.
func UnmarshalExpr(data []byte) (Expr, error) {
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode expression: %w", err)
	}
	return Decode(v)
}

// Hash returns the structural identity of e: the domain-separated hash of
// its canonical wire encoding, spans included.
func Hash(e Expr) (string, error) {
	obj, err := Encode(e)
	if err != nil {
		return "", err
	}
	return ir.ExprHash(obj)
}

type encoded struct {
	obj ir.Object
	err error
}

func (r encoded) unwrap() (ir.Object, error) { return r.obj, r.err }

type encoder struct{}

func (encoder) node(n Expr, pairs ...ir.Pair) encoded {
	obj := ir.NewObject(pairs...)
	obj["kind"] = ir.String(n.Kind())
	if span := n.Pos(); !span.IsZero() {
		obj["span"] = encodeSpan(span)
	}
	return encoded{obj: obj}
}

func (enc encoder) sub(e Expr) (ir.Value, error) {
	if e == nil {
		return ir.Null{}, nil
	}
	return Encode(e)
}

func (enc encoder) subs(es []Expr) (ir.List, error) {
	out := make(ir.List, len(es))
	for i, e := range es {
		v, err := enc.sub(e)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (enc encoder) withSubs(n Expr, names []string, exprs []Expr, pairs ...ir.Pair) encoded {
	for i, name := range names {
		v, err := enc.sub(exprs[i])
		if err != nil {
			return encoded{err: fmt.Errorf("%s.%s: %w", n.Kind(), name, err)}
		}
		pairs = append(pairs, ir.O(name, v))
	}
	return enc.node(n, pairs...)
}

func (enc encoder) VisitNull(n *NullLit, _ struct{}) encoded { return enc.node(n) }

func (enc encoder) VisitBool(n *BoolLit, _ struct{}) encoded {
	return enc.node(n, ir.O("value", ir.Bool(n.Value)))
}

func (enc encoder) VisitInt(n *IntLit, _ struct{}) encoded {
	return enc.node(n, ir.O("value", ir.Int(n.Value)))
}

func (enc encoder) VisitFloat(n *FloatLit, _ struct{}) encoded {
	if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return encoded{err: fmt.Errorf("float literal %v cannot be encoded", n.Value)}
	}
	return enc.node(n, ir.O("value", ir.Float(n.Value)))
}

func (enc encoder) VisitString(n *StringLit, _ struct{}) encoded {
	return enc.node(n, ir.O("value", ir.String(n.Value)))
}

func (enc encoder) VisitRegex(n *RegexLit, _ struct{}) encoded {
	pairs := []ir.Pair{ir.O("pattern", ir.String(n.Pattern))}
	if n.Flags != "" {
		pairs = append(pairs, ir.O("flags", ir.String(n.Flags)))
	}
	return enc.node(n, pairs...)
}

func (enc encoder) VisitIdentifier(n *Identifier, _ struct{}) encoded {
	return enc.node(n, ir.O("name", ir.String(n.Name)))
}

func (enc encoder) VisitQualifiedName(n *QualifiedName, _ struct{}) encoded {
	parts := make(ir.List, len(n.Parts))
	for i, p := range n.Parts {
		parts[i] = ir.String(p)
	}
	return enc.node(n, ir.O("parts", parts))
}

func (enc encoder) VisitMember(n *Member, _ struct{}) encoded {
	return enc.withSubs(n, []string{"object"}, []Expr{n.Object}, ir.O("property", ir.String(n.Property)))
}

func (enc encoder) VisitIndex(n *Index, _ struct{}) encoded {
	return enc.withSubs(n, []string{"object", "index"}, []Expr{n.Object, n.Index})
}

func (enc encoder) VisitUnary(n *Unary, _ struct{}) encoded {
	return enc.withSubs(n, []string{"operand"}, []Expr{n.Operand}, ir.O("op", ir.String(n.Op)))
}

func (enc encoder) VisitBinary(n *Binary, _ struct{}) encoded {
	return enc.withSubs(n, []string{"left", "right"}, []Expr{n.Left, n.Right}, ir.O("op", ir.String(n.Op)))
}

func (enc encoder) VisitConditional(n *Conditional, _ struct{}) encoded {
	return enc.withSubs(n, []string{"cond", "then", "else"}, []Expr{n.Cond, n.Then, n.Else})
}

func (enc encoder) VisitQuantifier(n *Quantifier, _ struct{}) encoded {
	return enc.withSubs(n, []string{"collection", "predicate"}, []Expr{n.Collection, n.Predicate},
		ir.O("quantifier", ir.String(n.Quantifier)),
		ir.O("variable", ir.String(n.Variable)))
}

func (enc encoder) VisitOld(n *Old, _ struct{}) encoded {
	return enc.withSubs(n, []string{"expr"}, []Expr{n.Expr})
}

func (enc encoder) VisitInput(n *InputRef, _ struct{}) encoded {
	if n.Property == "" {
		return enc.node(n)
	}
	return enc.node(n, ir.O("property", ir.String(n.Property)))
}

func (enc encoder) VisitResult(n *ResultRef, _ struct{}) encoded {
	if n.Property == "" {
		return enc.node(n)
	}
	return enc.node(n, ir.O("property", ir.String(n.Property)))
}

func (enc encoder) VisitList(n *ListLit, _ struct{}) encoded {
	elems, err := enc.subs(n.Elements)
	if err != nil {
		return encoded{err: fmt.Errorf("list.elements%w", err)}
	}
	return enc.node(n, ir.O("elements", elems))
}

func (enc encoder) VisitMap(n *MapLit, _ struct{}) encoded {
	entries := make(ir.List, len(n.Entries))
	for i, entry := range n.Entries {
		v, err := enc.sub(entry.Value)
		if err != nil {
			return encoded{err: fmt.Errorf("map.entries[%d]: %w", i, err)}
		}
		entries[i] = ir.NewObject(ir.O("key", ir.String(entry.Key)), ir.O("value", v))
	}
	return enc.node(n, ir.O("entries", entries))
}

func (enc encoder) VisitCall(n *Call, _ struct{}) encoded {
	args, err := enc.subs(n.Args)
	if err != nil {
		return encoded{err: fmt.Errorf("call.args%w", err)}
	}
	return enc.withSubs(n, []string{"callee"}, []Expr{n.Callee}, ir.O("args", args))
}

func (enc encoder) VisitLambda(n *Lambda, _ struct{}) encoded {
	params := make(ir.List, len(n.Params))
	for i, p := range n.Params {
		params[i] = ir.String(p)
	}
	return enc.withSubs(n, []string{"body"}, []Expr{n.Body}, ir.O("params", params))
}

func (enc encoder) VisitRange(n *Range, _ struct{}) encoded {
	return enc.withSubs(n, []string{"start", "end"}, []Expr{n.Start, n.End})
}

func (encoder) VisitInvalid(e Expr, _ struct{}) encoded {
	return encoded{err: fmt.Errorf("cannot encode expression %T", e)}
}

func encodeSpan(s Span) ir.Object {
	obj := ir.Object{}
	if s.File != "" {
		obj["file"] = ir.String(s.File)
	}
	for key, n := range map[string]int{
		"line": s.Line, "column": s.Column, "end_line": s.EndLine, "end_column": s.EndColumn,
	} {
		if n != 0 {
			obj[key] = ir.Int(n)
		}
	}
	return obj
}
