// Package ast defines the typed contract expression tree consumed by the
// evaluator, its JSON wire format and its structural hash.
//
// The tree is produced by an external front end and assumed type-correct.
// Expr is sealed; exhaustive handling goes through Visitor and Dispatch.
package ast
