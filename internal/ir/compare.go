package ir

import (
	"cmp"
	"strings"
)

// Equal reports deep equality. Int and Float compare numerically, so
// Int(2) equals Float(2.0). A nil Value equals only nil.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if x, ok := AsFloat(a); ok {
		if y, ok := AsFloat(b); ok {
			if ai, aok := a.(Int); aok {
				if bi, bok := b.(Int); bok {
					return ai == bi
				}
			}
			return x == y
		}
		return false
	}

	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two numbers or two strings. ok is false when the values
// are not mutually ordered.
func Compare(a, b Value) (result int, ok bool) {
	if ai, aok := a.(Int); aok {
		if bi, bok := b.(Int); bok {
			return cmp.Compare(ai, bi), true
		}
	}
	if x, aok := AsFloat(a); aok {
		if y, bok := AsFloat(b); bok {
			return cmp.Compare(x, y), true
		}
		return 0, false
	}
	if as, aok := a.(String); aok {
		if bs, bok := b.(String); bok {
			return strings.Compare(string(as), string(bs)), true
		}
	}
	return 0, false
}

// AsFloat widens Int and Float to float64.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

// IsNumber reports whether v is an Int or a Float.
func IsNumber(v Value) bool {
	_, ok := AsFloat(v)
	return ok
}

// Clone returns a deep copy of v. Scalars are returned as-is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case List:
		if val == nil {
			return List(nil)
		}
		out := make(List, len(val))
		for i, e := range val {
			out[i] = Clone(e)
		}
		return out
	case Object:
		return CloneObject(val)
	default:
		return v
	}
}

// CloneObject returns a deep copy of obj.
func CloneObject(obj Object) Object {
	if obj == nil {
		return nil
	}
	out := make(Object, len(obj))
	for k, e := range obj {
		out[k] = Clone(e)
	}
	return out
}
