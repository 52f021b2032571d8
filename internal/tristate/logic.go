package tristate

// And is Kleene conjunction. False dominates; two unknowns yield the left one.
func And(a, b TriState) TriState {
	switch {
	case a.IsFalse() || b.IsFalse():
		return False
	case a.IsTrue() && b.IsTrue():
		return True
	case a.IsUnknown():
		return a
	}
	return b
}

// Or is Kleene disjunction. True dominates; two unknowns yield the left one.
func Or(a, b TriState) TriState {
	switch {
	case a.IsTrue() || b.IsTrue():
		return True
	case a.IsFalse() && b.IsFalse():
		return False
	case a.IsUnknown():
		return a
	}
	return b
}

// Not negates a definite value. Unknown is a fixed point.
func Not(a TriState) TriState {
	switch {
	case a.IsTrue():
		return False
	case a.IsFalse():
		return True
	}
	return a
}

// Implies is material implication:
//
//	a \ b  | T  F  U
//	-------+---------
//	T      | T  F  U
//	F      | T  T  T
//	U      | T  U  U
//
// An implication holds whenever its consequent holds, regardless of the
// antecedent's certainty.
func Implies(a, b TriState) TriState {
	switch {
	case a.IsFalse() || b.IsTrue():
		return True
	case a.IsTrue():
		return b
	}
	return a
}

// Iff is equivalence, defined only for definite operands.
func Iff(a, b TriState) TriState {
	switch {
	case a.IsUnknown():
		return a
	case b.IsUnknown():
		return b
	}
	return Of(a.IsTrue() == b.IsTrue())
}

// All folds And over values, returning True for an empty slice.
func All(values ...TriState) TriState {
	acc := True
	for _, v := range values {
		acc = And(acc, v)
		if acc.IsFalse() {
			return acc
		}
	}
	return acc
}

// Any folds Or over values, returning False for an empty slice.
func Any(values ...TriState) TriState {
	acc := False
	for _, v := range values {
		acc = Or(acc, v)
		if acc.IsTrue() {
			return acc
		}
	}
	return acc
}
