// Package queryir defines the abstract query language for entity lookups.
//
// Contracts ask about entities through criteria ("an Account with id =
// input.to exists"). QueryIR is the backend-independent form of those
// criteria: a Select over one entity type filtered by a conjunction of
// field equalities.
//
// # Portable Fragment
//
// Validate reports constructs a backend may not evaluate natively (null
// comparisons, deep equality on lists and objects). Such queries remain
// answerable; the store falls back to scanning the entity's records and
// matching them in memory.
//
// # Backends
//
//   - querysql: SQLite with json_extract over stored JSON documents.
package queryir
