// Package contract defines the clause model verified against executions.
//
// A Behavior groups the preconditions, postconditions and invariants that a
// single operation of the system under test must satisfy. Each Clause holds
// an already-parsed expression tree; parsing contract source text is not
// this module's concern.
package contract

import (
	"fmt"
	"slices"

	"github.com/roach88/islproof/internal/ast"
)

// Kind is the role a clause plays in a contract.
type Kind string

const (
	Precondition  Kind = "precondition"
	Postcondition Kind = "postcondition"
	Invariant     Kind = "invariant"
)

// Valid reports whether k is a known clause kind.
func (k Kind) Valid() bool {
	switch k {
	case Precondition, Postcondition, Invariant:
		return true
	}
	return false
}

// Category is the trust-score bucket a clause counts towards.
type Category string

const (
	Postconditions Category = "postconditions"
	Invariants     Category = "invariants"
	Scenarios      Category = "scenarios"
	Temporal       Category = "temporal"
)

// Categories lists every category in trust-score order.
var Categories = []Category{Postconditions, Invariants, Scenarios, Temporal}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Postconditions, Invariants, Scenarios, Temporal:
		return true
	}
	return false
}

// DefaultCategory is the category a clause of kind k counts towards when
// none is declared.
func DefaultCategory(k Kind) Category {
	switch k {
	case Postcondition:
		return Postconditions
	case Invariant:
		return Invariants
	}
	return Scenarios
}

// Clause is one checkable condition of a behavior.
type Clause struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	Category    Category `json:"category"`
	Behavior    string   `json:"behavior"`
	Description string   `json:"description,omitempty"`
	Expr        ast.Expr `json:"-"`
}

// Span returns the source location of the clause expression.
func (c Clause) Span() ast.Span {
	if c.Expr == nil {
		return ast.Span{}
	}
	return c.Expr.Pos()
}

// Behavior is the contract of one operation.
type Behavior struct {
	Name    string   `json:"name"`
	Domain  string   `json:"domain,omitempty"`
	Clauses []Clause `json:"clauses"`
}

// Select returns the clauses of the given kinds, in declaration order. No
// kinds selects every clause.
func (b *Behavior) Select(kinds ...Kind) []Clause {
	if len(kinds) == 0 {
		return append([]Clause(nil), b.Clauses...)
	}
	want := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Clause
	for _, c := range b.Clauses {
		if want[c.Kind] {
			out = append(out, c)
		}
	}
	return out
}

// Clause returns the clause with the given id.
func (b *Behavior) Clause(id string) (Clause, bool) {
	for _, c := range b.Clauses {
		if c.ID == id {
			return c, true
		}
	}
	return Clause{}, false
}

// QualifiedID is the clause's identity across behaviors.
func (c Clause) QualifiedID() string {
	return fmt.Sprintf("%s/%s", c.Behavior, c.ID)
}

// Set is a collection of behaviors keyed by name.
type Set map[string]*Behavior

// Names returns behavior names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
