package ast

import (
	"fmt"

	"github.com/roach88/islproof/internal/ir"
)

// DecodeError reports a malformed node in the wire format.
type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "expression: " + e.Message
	}
	return fmt.Sprintf("expression at %s: %s", e.Path, e.Message)
}

// Decode converts a wire value into an expression tree. Unknown kinds and
// missing required fields are errors.
func Decode(v ir.Value) (Expr, error) {
	return decodeAt(v, "$")
}

type fields struct {
	obj  ir.Object
	path string
	err  error
}

func (f *fields) fail(format string, args ...any) {
	if f.err == nil {
		f.err = &DecodeError{Path: f.path, Message: fmt.Sprintf(format, args...)}
	}
}

func (f *fields) str(key string, required bool) string {
	v, ok := f.obj[key]
	if !ok {
		if required {
			f.fail("missing %q", key)
		}
		return ""
	}
	s, ok := v.(ir.String)
	if !ok {
		f.fail("%q must be a string, got %s", key, ir.TypeName(v))
		return ""
	}
	return string(s)
}

func (f *fields) strs(key string) []string {
	v, ok := f.obj[key]
	if !ok {
		f.fail("missing %q", key)
		return nil
	}
	l, ok := v.(ir.List)
	if !ok {
		f.fail("%q must be a list, got %s", key, ir.TypeName(v))
		return nil
	}
	out := make([]string, len(l))
	for i, e := range l {
		s, ok := e.(ir.String)
		if !ok {
			f.fail("%q[%d] must be a string", key, i)
			return nil
		}
		out[i] = string(s)
	}
	return out
}

func (f *fields) expr(key string) Expr {
	if f.err != nil {
		return nil
	}
	v, ok := f.obj[key]
	if !ok {
		f.fail("missing %q", key)
		return nil
	}
	e, err := decodeAt(v, f.path+"."+key)
	if err != nil {
		f.err = err
		return nil
	}
	return e
}

func (f *fields) exprs(key string) []Expr {
	if f.err != nil {
		return nil
	}
	v, ok := f.obj[key]
	if !ok {
		return nil
	}
	l, ok := v.(ir.List)
	if !ok {
		f.fail("%q must be a list, got %s", key, ir.TypeName(v))
		return nil
	}
	out := make([]Expr, len(l))
	for i, elem := range l {
		e, err := decodeAt(elem, fmt.Sprintf("%s.%s[%d]", f.path, key, i))
		if err != nil {
			f.err = err
			return nil
		}
		out[i] = e
	}
	return out
}

func decodeAt(v ir.Value, path string) (Expr, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("node must be an object, got %s", ir.TypeName(v))}
	}
	f := &fields{obj: obj, path: path}
	kind := Kind(f.str("kind", true))
	if f.err != nil {
		return nil, f.err
	}
	at := At{Span: decodeSpan(f)}

	var e Expr
	switch kind {
	case KindNull:
		e = &NullLit{At: at}
	case KindBool:
		b, ok := obj["value"].(ir.Bool)
		if !ok {
			f.fail("bool literal needs a boolean value")
		}
		e = &BoolLit{At: at, Value: bool(b)}
	case KindInt:
		n, ok := obj["value"].(ir.Int)
		if !ok {
			f.fail("int literal needs an integer value")
		}
		e = &IntLit{At: at, Value: int64(n)}
	case KindFloat:
		x, ok := ir.AsFloat(obj["value"])
		if !ok {
			f.fail("float literal needs a numeric value")
		}
		e = &FloatLit{At: at, Value: x}
	case KindString:
		e = &StringLit{At: at, Value: f.str("value", true)}
	case KindRegex:
		e = &RegexLit{At: at, Pattern: f.str("pattern", true), Flags: f.str("flags", false)}
	case KindIdentifier:
		e = &Identifier{At: at, Name: f.str("name", true)}
	case KindQualifiedName:
		e = &QualifiedName{At: at, Parts: f.strs("parts")}
	case KindMember:
		e = &Member{At: at, Object: f.expr("object"), Property: f.str("property", true)}
	case KindIndex:
		e = &Index{At: at, Object: f.expr("object"), Index: f.expr("index")}
	case KindUnary:
		e = &Unary{At: at, Op: UnaryOp(f.str("op", true)), Operand: f.expr("operand")}
	case KindBinary:
		e = &Binary{At: at, Op: BinaryOp(f.str("op", true)), Left: f.expr("left"), Right: f.expr("right")}
	case KindConditional:
		e = &Conditional{At: at, Cond: f.expr("cond"), Then: f.expr("then"), Else: f.expr("else")}
	case KindQuantifier:
		e = &Quantifier{
			At:         at,
			Quantifier: QuantifierKind(f.str("quantifier", true)),
			Collection: f.expr("collection"),
			Variable:   f.str("variable", true),
			Predicate:  f.expr("predicate"),
		}
	case KindOld:
		e = &Old{At: at, Expr: f.expr("expr")}
	case KindInput:
		e = &InputRef{At: at, Property: f.str("property", false)}
	case KindResult:
		e = &ResultRef{At: at, Property: f.str("property", false)}
	case KindList:
		e = &ListLit{At: at, Elements: f.exprs("elements")}
	case KindMap:
		e = &MapLit{At: at, Entries: decodeEntries(f)}
	case KindCall:
		e = &Call{At: at, Callee: f.expr("callee"), Args: f.exprs("args")}
	case KindLambda:
		e = &Lambda{At: at, Params: f.strs("params"), Body: f.expr("body")}
	case KindRange:
		e = &Range{At: at, Start: f.expr("start"), End: f.expr("end")}
	default:
		f.fail("unknown kind %q", kind)
	}

	if f.err != nil {
		return nil, f.err
	}
	return e, nil
}

func decodeEntries(f *fields) []MapEntry {
	v, ok := f.obj["entries"]
	if !ok {
		return nil
	}
	l, ok := v.(ir.List)
	if !ok {
		f.fail("\"entries\" must be a list")
		return nil
	}
	out := make([]MapEntry, 0, len(l))
	for i, raw := range l {
		entry, ok := raw.(ir.Object)
		if !ok {
			f.fail("entries[%d] must be an object", i)
			return nil
		}
		sub := &fields{obj: entry, path: fmt.Sprintf("%s.entries[%d]", f.path, i)}
		me := MapEntry{Key: sub.str("key", true), Value: sub.expr("value")}
		if sub.err != nil {
			f.err = sub.err
			return nil
		}
		out = append(out, me)
	}
	return out
}

func decodeSpan(f *fields) Span {
	raw, ok := f.obj["span"]
	if !ok {
		return Span{}
	}
	obj, ok := raw.(ir.Object)
	if !ok {
		f.fail("\"span\" must be an object")
		return Span{}
	}
	num := func(key string) int {
		n, _ := obj[key].(ir.Int)
		return int(n)
	}
	file, _ := obj["file"].(ir.String)
	return Span{
		File:      string(file),
		Line:      num("line"),
		Column:    num("column"),
		EndLine:   num("end_line"),
		EndColumn: num("end_column"),
	}
}
