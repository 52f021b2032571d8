// Package eval evaluates contract expressions against concrete runtime
// evidence and reports a tri-state result tree.
//
// Evaluation is a synchronous recursive walk. It never panics on a
// well-formed tree and never turns missing information into true or false:
// a missing binding, an unanswerable adapter call or a division by zero
// becomes an unknown result carrying a reason and the span that caused it.
// Recursion is bounded by Context.MaxDepth, checked on every node.
//
// An Evaluator is safe for concurrent use. The same (expression, context)
// pair always produces an identical Result, with or without a Cache and
// with or without constant folding.
package eval
