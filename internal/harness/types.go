package harness

import (
	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/trace"
	"github.com/roach88/islproof/internal/trust"
	"github.com/roach88/islproof/internal/verdict"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held
	// and the verdict matched expect_verdict.
	Pass bool `json:"pass"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RunID is the content-addressed identity of the run.
	RunID string `json:"run_id"`

	// Evidence holds every clause evidence, execution by execution, in
	// clause order.
	Evidence []evidence.ClauseEvidence `json:"evidence"`

	// Summary counts Evidence by status.
	Summary evidence.Summary `json:"summary"`

	Trust   trust.Score          `json:"trust"`
	Verdict verdict.ProofVerdict `json:"verdict"`

	// Tests is the test summary the verdict was computed from.
	Tests *verdict.TestResult `json:"tests,omitempty"`

	// Traces holds one trace per execution, in execution order.
	Traces []*trace.Trace `json:"traces"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Errors:   []string{},
		Evidence: []evidence.ClauseEvidence{},
		Traces:   []*trace.Trace{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Report bundles the verdict with its trust evidence.
func (r *Result) Report() verdict.Report {
	return verdict.Report{Verdict: r.Verdict, Trust: r.Trust}
}

// TestsTotal is the number of tests behind the verdict.
func (r *Result) TestsTotal() int {
	if r.Tests == nil {
		return 0
	}
	return r.Tests.TotalTests
}

// checks returns every check event across traces, in order.
func (r *Result) checks() []trace.Event {
	var out []trace.Event
	for _, t := range r.Traces {
		for _, e := range t.Events {
			if e.Type == trace.EventCheck {
				out = append(out, e)
			}
		}
	}
	return out
}
