// Package adapter defines the domain adapter through which contract
// expressions query entity state, and the stock adapters: Builtin for
// value-level checks, Memory for in-process entity snapshots and a
// deadline wrapper.
package adapter
