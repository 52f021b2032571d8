package tristate

// Reason explains why a value is unknown. The set is closed.
type Reason string

const (
	MissingBinding        Reason = "MISSING_BINDING"
	MissingInput          Reason = "MISSING_INPUT"
	MissingResult         Reason = "MISSING_RESULT"
	MissingOldState       Reason = "MISSING_OLD_STATE"
	MissingProperty       Reason = "MISSING_PROPERTY"
	UnsupportedOperator   Reason = "UNSUPPORTED_OPERATOR"
	UnsupportedExpression Reason = "UNSUPPORTED_EXPRESSION"
	UnsupportedQuantifier Reason = "UNSUPPORTED_QUANTIFIER"
	UnsupportedFunction   Reason = "UNSUPPORTED_FUNCTION"
	ExternalCall          Reason = "EXTERNAL_CALL"
	TypeMismatch          Reason = "TYPE_MISMATCH"
	InvalidOperand        Reason = "INVALID_OPERAND"
	DivisionByZero        Reason = "DIVISION_BY_ZERO"
	InvalidPattern        Reason = "INVALID_PATTERN"
	Timeout               Reason = "TIMEOUT"
	Propagated            Reason = "PROPAGATED"
	UnboundedDomain       Reason = "UNBOUNDED_DOMAIN"
	CollectionUnknown     Reason = "COLLECTION_UNKNOWN"
	ElementUnknown        Reason = "ELEMENT_UNKNOWN"
)

// Reasons lists every reason in declaration order.
var Reasons = []Reason{
	MissingBinding,
	MissingInput,
	MissingResult,
	MissingOldState,
	MissingProperty,
	UnsupportedOperator,
	UnsupportedExpression,
	UnsupportedQuantifier,
	UnsupportedFunction,
	ExternalCall,
	TypeMismatch,
	InvalidOperand,
	DivisionByZero,
	InvalidPattern,
	Timeout,
	Propagated,
	UnboundedDomain,
	CollectionUnknown,
	ElementUnknown,
}

var descriptions = map[Reason]string{
	MissingBinding:        "variable is not bound",
	MissingInput:          "input field is absent",
	MissingResult:         "result is not available",
	MissingOldState:       "no pre-state snapshot was captured",
	MissingProperty:       "property or index does not exist",
	UnsupportedOperator:   "operator is not supported",
	UnsupportedExpression: "expression kind cannot be evaluated",
	UnsupportedQuantifier: "quantifier is not supported",
	UnsupportedFunction:   "function is not supported",
	ExternalCall:          "domain adapter could not answer",
	TypeMismatch:          "operand types do not match the operator",
	InvalidOperand:        "operand value is out of range",
	DivisionByZero:        "division by zero",
	InvalidPattern:        "regular expression does not compile",
	Timeout:               "maximum evaluation depth exceeded",
	Propagated:            "a sub-expression is unknown",
	UnboundedDomain:       "quantifier domain is not enumerable",
	CollectionUnknown:     "collection value is unknown",
	ElementUnknown:        "predicate is unknown for an element",
}

// Valid reports whether r is one of the declared reasons.
func (r Reason) Valid() bool {
	_, ok := descriptions[r]
	return ok
}

// Describe returns a short human readable explanation.
func (r Reason) Describe() string {
	if d, ok := descriptions[r]; ok {
		return d
	}
	return string(r)
}
