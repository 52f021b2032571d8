package queryir

import (
	"strings"

	"github.com/roach88/islproof/internal/ir"
)

// Query is an abstract entity query.
//
// This is a sealed interface; only types in this package implement it so
// that backend compilers can switch over it exhaustively.
type Query interface {
	queryNode()
}

// Predicate is a filter condition over an entity record.
//
// This is a sealed interface. The fragment has no OR and no negation:
// entity criteria in contracts are always conjunctions of equalities.
type Predicate interface {
	predicateNode()
}

// Select fetches records of one entity type.
//
// Semantics:
//
//	SELECT id, data FROM entities WHERE entity = <Entity> AND <Filter>
//	ORDER BY seq, id LIMIT <Limit>
//
// A nil Filter matches every record of the entity. A Limit of 0 means
// no limit. Results are always in insertion order.
type Select struct {
	Entity string
	Filter Predicate
	Limit  int
}

func (Select) queryNode() {}

// Equals holds when the record's field at Path equals Value.
//
// Path is a sequence of object keys from the record root, so
// {"owner", "email"} addresses record.owner.email. Equality follows
// ir.Equal: numbers compare by value across int and float, and a missing
// field never equals anything.
type Equals struct {
	Path  []string
	Value ir.Value
}

func (Equals) predicateNode() {}

// Field is shorthand for an Equals over a dot-separated path.
func Field(path string, v ir.Value) Equals {
	return Equals{Path: strings.Split(path, "."), Value: v}
}

// String renders the path with dots.
func (e Equals) String() string {
	return strings.Join(e.Path, ".")
}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// FromCriteria builds the query matching records whose top-level fields
// equal every entry of criteria. Keys are visited in sorted order so the
// same criteria always produce the same query.
//
// Keys are single path segments; a key containing a dot addresses that
// literal key, not a nested one.
func FromCriteria(entity string, criteria ir.Object) Select {
	sel := Select{Entity: entity}
	if len(criteria) == 0 {
		return sel
	}
	and := And{Predicates: make([]Predicate, 0, len(criteria))}
	for _, k := range criteria.SortedKeys() {
		and.Predicates = append(and.Predicates, Equals{Path: []string{k}, Value: criteria[k]})
	}
	sel.Filter = and
	return sel
}
