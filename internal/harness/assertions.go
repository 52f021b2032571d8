package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Checks   []trace.Event // Check events for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Checks) > 0 {
		fmt.Fprintf(&buf, "\nChecks:\n")
		for i, ev := range e.Checks {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", i+1, ev.Behavior, checkField(ev, "clause_id"), checkField(ev, "status"))
		}
	}

	return buf.String()
}

func checkField(ev trace.Event, key string) string {
	s, _ := ev.Data[key].(ir.String)
	return string(s)
}

// assertTraceContains checks that some check event is for the clause and,
// if a status is given, has that status.
func assertTraceContains(checks []trace.Event, assertion Assertion) error {
	for _, ev := range checks {
		if checkField(ev, "clause_id") != assertion.Clause {
			continue
		}
		if assertion.Status == "" || checkField(ev, "status") == string(assertion.Status) {
			return nil
		}
	}

	expected := "check of clause " + assertion.Clause
	if assertion.Status != "" {
		expected += " with status " + string(assertion.Status)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Checks:   checks,
	}
}

// assertTraceOrder checks that clauses are first checked in the given order.
// Clauses don't need to be consecutive (intervening checks are allowed).
func assertTraceOrder(checks []trace.Event, assertion Assertion) error {
	// Find first position of each expected clause, 1-indexed for readability
	positions := make(map[string]int)
	for i, ev := range checks {
		id := checkField(ev, "clause_id")
		if positions[id] == 0 {
			positions[id] = i + 1
		}
	}

	for _, id := range assertion.Clauses {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all clauses checked: %v", assertion.Clauses),
				Actual:   fmt.Sprintf("missing clause: %s", id),
				Checks:   checks,
			}
		}
	}

	for i := 1; i < len(assertion.Clauses); i++ {
		prev := assertion.Clauses[i-1]
		curr := assertion.Clauses[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("clauses in order: %v", assertion.Clauses),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Checks: checks,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the clause is checked exactly Count times.
func assertTraceCount(checks []trace.Event, assertion Assertion) error {
	count := 0
	for _, ev := range checks {
		if checkField(ev, "clause_id") == assertion.Clause {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d checks of %s", assertion.Count, assertion.Clause),
			Actual:   fmt.Sprintf("%d checks", count),
			Checks:   checks,
		}
	}

	return nil
}

// assertTrust checks the overall score floor and the recommendation.
func assertTrust(result *Result, assertion Assertion) error {
	score := result.Trust
	if int(score.Overall) < assertion.MinOverall {
		return &AssertionError{
			Type:     AssertTrust,
			Expected: fmt.Sprintf("overall >= %d", assertion.MinOverall),
			Actual:   fmt.Sprintf("overall = %d", score.Overall),
		}
	}
	if assertion.Recommendation != "" && string(score.Recommendation) != assertion.Recommendation {
		return &AssertionError{
			Type:     AssertTrust,
			Expected: fmt.Sprintf("recommendation %s", assertion.Recommendation),
			Actual:   fmt.Sprintf("recommendation %s", score.Recommendation),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	checks := result.checks()

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(checks, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(checks, assertion)
		case AssertTraceCount:
			err = assertTraceCount(checks, assertion)
		case AssertTrust:
			err = assertTrust(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
