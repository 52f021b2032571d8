// Package tristate implements the true/false/unknown algebra used to report
// contract clause outcomes. An unknown is never collapsed to a boolean; it
// always carries a Reason and a reference to the expression that caused it.
package tristate
