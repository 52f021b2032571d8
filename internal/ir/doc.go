// Package ir provides the runtime value model shared by the evaluator,
// the domain adapters and the evidence store.
//
// This package imports nothing internal. Every other internal package may
// import ir, which keeps it the foundational layer with no cycles.
//
// Key design constraints:
//   - Values are a sealed set: Null, String, Int, Float, Bool, List, Object
//   - Identity hashes use RFC 8785 canonical JSON with domain separation
//   - All JSON tags use snake_case
package ir
