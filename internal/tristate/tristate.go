package tristate

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/islproof/internal/ast"
)

// Value is the truth kind of a TriState.
type Value uint8

const (
	// unset is the zero Value. A zero TriState is never produced by the
	// constructors and behaves as Unknown(Propagated).
	unset Value = iota
	ValueTrue
	ValueFalse
	ValueUnknown
)

func (v Value) String() string {
	switch v {
	case ValueTrue:
		return "true"
	case ValueFalse:
		return "false"
	default:
		return "unknown"
	}
}

// TriState is true, false, or unknown with a reason and the sub-expression
// that caused it. Values are immutable.
type TriState struct {
	value  Value
	reason Reason
	cause  ast.Ref
}

// True is the definite true value.
var True = TriState{value: ValueTrue}

// False is the definite false value.
var False = TriState{value: ValueFalse}

// Unknown builds an unknown value. Every unknown carries a reason; an empty
// reason is recorded as Propagated.
func Unknown(reason Reason, cause ast.Ref) TriState {
	if reason == "" {
		reason = Propagated
	}
	return TriState{value: ValueUnknown, reason: reason, cause: cause}
}

// UnknownAt builds an unknown caused by e.
func UnknownAt(reason Reason, e ast.Expr) TriState {
	return Unknown(reason, ast.RefOf(e))
}

// Of converts a Go bool.
func Of(b bool) TriState {
	if b {
		return True
	}
	return False
}

// Value returns the truth kind.
func (t TriState) Value() Value {
	if t.value == unset {
		return ValueUnknown
	}
	return t.value
}

func (t TriState) IsTrue() bool    { return t.value == ValueTrue }
func (t TriState) IsFalse() bool   { return t.value == ValueFalse }
func (t TriState) IsUnknown() bool { return t.value != ValueTrue && t.value != ValueFalse }

// Known reports whether t is definite, returning its boolean value.
func (t TriState) Known() (value, ok bool) {
	switch t.value {
	case ValueTrue:
		return true, true
	case ValueFalse:
		return false, true
	}
	return false, false
}

// Reason returns the unknown reason, or "" for a definite value.
func (t TriState) Reason() Reason {
	if !t.IsUnknown() {
		return ""
	}
	if t.reason == "" {
		return Propagated
	}
	return t.reason
}

// Cause returns the sub-expression responsible for an unknown.
func (t TriState) Cause() ast.Ref {
	return t.cause
}

func (t TriState) String() string {
	if t.IsUnknown() {
		return fmt.Sprintf("unknown(%s)", t.Reason())
	}
	return t.Value().String()
}

type wireTriState struct {
	Value  string   `json:"value"`
	Reason Reason   `json:"reason,omitempty"`
	Cause  *ast.Ref `json:"cause,omitempty"`
}

// MarshalJSON encodes t as {"value":"true"} or
// {"value":"unknown","reason":"MISSING_INPUT","cause":{...}}.
func (t TriState) MarshalJSON() ([]byte, error) {
	w := wireTriState{Value: t.Value().String()}
	if t.IsUnknown() {
		w.Reason = t.Reason()
		cause := t.cause
		w.Cause = &cause
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the format written by MarshalJSON.
func (t *TriState) UnmarshalJSON(data []byte) error {
	var w wireTriState
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Value {
	case "true":
		*t = True
	case "false":
		*t = False
	case "unknown":
		if !w.Reason.Valid() {
			return fmt.Errorf("tristate: invalid unknown reason %q", w.Reason)
		}
		var cause ast.Ref
		if w.Cause != nil {
			cause = *w.Cause
		}
		*t = Unknown(w.Reason, cause)
	default:
		return fmt.Errorf("tristate: invalid value %q", w.Value)
	}
	return nil
}
