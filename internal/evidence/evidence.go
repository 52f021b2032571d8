// Package evidence turns clause evaluations into auditable evidence records.
//
// Each clause of a behavior is evaluated in isolation against one execution
// context: an unknown or failed clause never stops its siblings. The three
// evidence statuses map one-to-one onto tri-state truth values; an unknown
// is never read as a pass or a failure.
package evidence

import (
	"fmt"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/contract"
	"github.com/roach88/islproof/internal/eval"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/tristate"
)

// Status is the outcome of one clause against one execution.
type Status string

const (
	// Proven: the clause evaluated to true.
	Proven Status = "proven"
	// NotProven: the clause evaluated to unknown.
	NotProven Status = "not_proven"
	// Failed: the clause evaluated to false.
	Failed Status = "failed"
)

// StatusOf maps a truth value to its evidence status.
func StatusOf(t tristate.TriState) Status {
	switch t.Value() {
	case tristate.ValueTrue:
		return Proven
	case tristate.ValueFalse:
		return Failed
	}
	return NotProven
}

// ClauseEvidence is the record of one clause check.
type ClauseEvidence struct {
	ID            string            `json:"id"`
	ClauseID      string            `json:"clause_id"`
	Kind          contract.Kind     `json:"kind"`
	Category      contract.Category `json:"category"`
	Behavior      string            `json:"behavior"`
	Span          ast.Span          `json:"span"`
	Status        Status            `json:"status"`
	Value         *bool             `json:"value,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	UnknownReason tristate.Reason   `json:"unknown_reason,omitempty"`
	Cause         *ast.Ref          `json:"cause,omitempty"`
	Execution     string            `json:"execution,omitempty"`
}

// FromResult builds the evidence for clause c from its evaluation result.
// For an unknown, Reason and UnknownReason describe the root cause rather
// than the propagation at the clause's top node.
func FromResult(c contract.Clause, r eval.Result) ClauseEvidence {
	ev := ClauseEvidence{
		ClauseID: c.ID,
		Kind:     c.Kind,
		Category: c.Category,
		Behavior: c.Behavior,
		Span:     c.Span(),
		Status:   StatusOf(r.Truth),
	}
	if ev.Category == "" {
		ev.Category = contract.DefaultCategory(c.Kind)
	}

	if b, ok := r.Truth.Known(); ok {
		ev.Value = &b
		if !b {
			ev.Reason = "clause evaluated to false"
		}
		return ev
	}

	root := r.RootCause()
	ev.UnknownReason = root.Truth.Reason()
	ev.Reason = root.Reason
	if r.Known() && root.Truth.Reason() == tristate.TypeMismatch && root.Reason == "" {
		ev.Reason = fmt.Sprintf("clause evaluated to %s, not a boolean", ir.TypeName(r.Value))
	}
	if ev.Reason == "" {
		ev.Reason = ev.UnknownReason.Describe()
	}
	if cause := root.Truth.Cause(); cause != (ast.Ref{}) {
		ev.Cause = &cause
	}
	return ev
}

// Summary counts evidence by status.
type Summary struct {
	Total     int `json:"total"`
	Proven    int `json:"proven"`
	NotProven int `json:"not_proven"`
	Failed    int `json:"failed"`
}

// Summarize counts evidences by status.
func Summarize(evidences []ClauseEvidence) Summary {
	s := Summary{Total: len(evidences)}
	for _, e := range evidences {
		switch e.Status {
		case Proven:
			s.Proven++
		case NotProven:
			s.NotProven++
		case Failed:
			s.Failed++
		}
	}
	return s
}
