// Package harness runs verification scenarios.
//
// A scenario names contract files and a list of recorded test executions.
// Run loads the contracts, checks every clause of each execution's
// behavior against the execution's bindings and entity store, and reduces
// the evidence to a trust score and a proof verdict.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: transfer_happy_path
//	description: "A transfer debits the source account"
//	contracts:
//	  - contracts/transfer.cue
//	executions:
//	  - id: t1
//	    behavior: Transfer
//	    input: { from: "acc-1", amount: 30 }
//	    result: { balance: 70 }
//	    old_state: { balance: 100 }
//	    entities:
//	      Account:
//	        - { id: "acc-1", balance: 70 }
//	    expect:
//	      balance-debited: proven
//	      fraud-check: { status: not_proven, reason: EXTERNAL_CALL }
//	gate: { verdict: SHIP, score: 97 }
//	build: { status: pass, error_count: 0 }
//	expect_verdict: PROVEN
//	assertions:
//	  - type: trace_order
//	    clauses: [amount-positive, balance-debited]
//	  - type: trust
//	    min_overall: 90
//
// # Entities
//
// Each execution's entity records are loaded into a fresh in-memory SQLite
// store and queried through store.EntityAdapter, so entity lookups in a
// scenario take the same path as lookups against a persisted store.
// old_entities, when present, answers entity queries inside old().
//
// # Tests
//
// When tests is not given, every execution counts as one test, which fails
// when any of its clauses failed. no_tests replaces that summary with an
// empty passing suite as long as no execution failed.
//
// # Determinism
//
// Trace event IDs come from a SequenceGenerator unless Options.IDs says
// otherwise, and the run ID is derived from the scenario content and the
// clauses evaluated. Golden reports compare the canonical JSON of a run.
package harness
