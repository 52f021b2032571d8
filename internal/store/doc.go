// Package store provides SQLite-backed storage for islproof.
//
// The store holds:
//   - Entities: JSON snapshots of domain records that contracts query
//     through EntityAdapter (exists/lookup)
//   - Runs: one row per verification run with its verdict and trust score
//   - Clause evidence: every clause check of a run, in collection order
//
// # Deterministic Reads
//
// Ordering uses seq (insertion order), never timestamps. All reads use
// ORDER BY seq ASC, id ASC COLLATE BINARY so that two reads of the same
// data return identical results.
//
// # Idempotency
//
// Run IDs and evidence IDs are content-addressed (see internal/ir), so
// writing the same run twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
