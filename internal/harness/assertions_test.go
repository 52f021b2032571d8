package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/trace"
	"github.com/roach88/islproof/internal/trust"
)

func checkEvent(clause string, status evidence.Status) trace.Event {
	return trace.Event{
		Type:     trace.EventCheck,
		Behavior: "Transfer",
		Data: ir.Object{
			"clause_id": ir.String(clause),
			"status":    ir.String(string(status)),
		},
	}
}

func resultWithChecks(checks ...trace.Event) *Result {
	r := NewResult()
	events := append([]trace.Event{{Type: trace.EventCall}}, checks...)
	r.Traces = append(r.Traces, &trace.Trace{Events: events})
	r.Trust = trust.Score{Overall: 72, Recommendation: trust.ShadowMode}
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	result := resultWithChecks(
		checkEvent("pre", evidence.Proven),
		checkEvent("post", evidence.Failed),
		checkEvent("inv", evidence.NotProven),
		checkEvent("post", evidence.Proven),
	)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"contains", Assertion{Type: AssertTraceContains, Clause: "inv"}, ""},
		{"contains with status", Assertion{Type: AssertTraceContains, Clause: "post", Status: evidence.Failed}, ""},
		{"contains later status", Assertion{Type: AssertTraceContains, Clause: "post", Status: evidence.Proven}, ""},
		{"contains missing", Assertion{Type: AssertTraceContains, Clause: "other"}, "not found in trace"},
		{"contains wrong status", Assertion{Type: AssertTraceContains, Clause: "inv", Status: evidence.Proven}, "with status proven"},
		{"order", Assertion{Type: AssertTraceOrder, Clauses: []string{"pre", "inv"}}, ""},
		{"order uses first check", Assertion{Type: AssertTraceOrder, Clauses: []string{"post", "inv"}}, ""},
		{"order reversed", Assertion{Type: AssertTraceOrder, Clauses: []string{"inv", "pre"}}, "inv (pos 3) should be before pre (pos 1)"},
		{"order missing", Assertion{Type: AssertTraceOrder, Clauses: []string{"pre", "other"}}, "missing clause: other"},
		{"count", Assertion{Type: AssertTraceCount, Clause: "post", Count: 2}, ""},
		{"count zero", Assertion{Type: AssertTraceCount, Clause: "other", Count: 0}, ""},
		{"count mismatch", Assertion{Type: AssertTraceCount, Clause: "pre", Count: 2}, "Actual: 1 checks"},
		{"trust", Assertion{Type: AssertTrust, MinOverall: 70, Recommendation: "shadow_mode"}, ""},
		{"trust too low", Assertion{Type: AssertTrust, MinOverall: 80}, "overall = 72"},
		{"trust recommendation", Assertion{Type: AssertTrust, Recommendation: "production_ready"}, "recommendation shadow_mode"},
		{"unknown type", Assertion{Type: "vibes"}, `unknown assertion type "vibes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(result, []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_SpansTraces(t *testing.T) {
	result := resultWithChecks(checkEvent("pre", evidence.Proven))
	result.Traces = append(result.Traces, &trace.Trace{Events: []trace.Event{checkEvent("pre", evidence.Failed)}})

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Clause: "pre", Count: 2},
		{Type: AssertTraceContains, Clause: "pre", Status: evidence.Failed},
	})
	assert.Empty(t, errs)
}

func TestAssertionError_ListsChecks(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 checks of pre",
		Actual:   "1 checks",
		Checks:   []trace.Event{checkEvent("pre", evidence.Proven)},
	}

	assert.Equal(t, "Assertion failed: trace_count\n"+
		"  Expected: 2 checks of pre\n"+
		"  Actual: 1 checks\n"+
		"\nChecks:\n"+
		"  [1] Transfer pre proven\n", err.Error())
}
