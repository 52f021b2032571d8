// Package verdict combines gate, build and test outcomes into one proof
// verdict.
//
// The decision is a fixed tree evaluated top to bottom:
//
//  1. gate not SHIP           -> violated
//  2. build failed            -> violated
//  3. tests failed            -> violated
//  4. no tests ran            -> proven if a no-tests declaration justifies
//     it, otherwise incomplete
//  5. otherwise               -> proven
//
// Inputs that do not fit the tree (a missing gate result, counts that do
// not add up) yield unproven, which always requires manual review.
package verdict

import (
	"fmt"
	"strings"

	"github.com/roach88/islproof/internal/trust"
)

// Kind is the terminal state of a verification run.
type Kind string

const (
	Proven          Kind = "PROVEN"
	IncompleteProof Kind = "INCOMPLETE_PROOF"
	Violated        Kind = "VIOLATED"
	Unproven        Kind = "UNPROVEN"
)

// GateVerdict is the static gate's decision.
type GateVerdict string

const (
	Ship   GateVerdict = "SHIP"
	NoShip GateVerdict = "NO_SHIP"
)

// Status is a pass/fail outcome.
type Status string

const (
	Pass Status = "pass"
	Fail Status = "fail"
)

// GateResult is the outcome of static gate checks.
type GateResult struct {
	Verdict  GateVerdict `json:"verdict" yaml:"verdict"`
	Score    int         `json:"score" yaml:"score"`
	Blockers []string    `json:"blockers,omitempty" yaml:"blockers"`
}

// BuildResult is the outcome of compiling the implementation.
type BuildResult struct {
	Status     Status `json:"status" yaml:"status"`
	ErrorCount int    `json:"error_count" yaml:"error_count"`
}

// TestResult summarizes the executed tests.
type TestResult struct {
	Status      Status `json:"status" yaml:"status"`
	TotalTests  int    `json:"total_tests" yaml:"total_tests"`
	PassedTests int    `json:"passed_tests" yaml:"passed_tests"`
	FailedTests int    `json:"failed_tests" yaml:"failed_tests"`
}

// NoTestsDeclaration justifies a run with zero tests.
type NoTestsDeclaration struct {
	Justification string `json:"justification" yaml:"justification"`
}

// ProofVerdict is the decision with its reason.
type ProofVerdict struct {
	Kind   Kind   `json:"verdict"`
	Reason string `json:"reason"`
	// ManualReview is set for unproven verdicts.
	ManualReview bool `json:"manual_review,omitempty"`
}

// String renders the verdict as "KIND: reason".
func (v ProofVerdict) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Reason)
}

// Ships reports whether the verdict allows shipping without review.
func (v ProofVerdict) Ships() bool {
	return v.Kind == Proven
}

// Compute decides the verdict. It is pure and deterministic; nil inputs
// other than noTests yield an unproven verdict.
func Compute(gate *GateResult, build *BuildResult, test *TestResult, noTests *NoTestsDeclaration) ProofVerdict {
	if problem := checkInputs(gate, build, test); problem != "" {
		return ProofVerdict{Kind: Unproven, Reason: problem, ManualReview: true}
	}

	if gate.Verdict != Ship {
		blockers := "none"
		if len(gate.Blockers) > 0 {
			blockers = strings.Join(gate.Blockers, ", ")
		}
		return ProofVerdict{
			Kind:   Violated,
			Reason: fmt.Sprintf("gate NO_SHIP, score=%d, blockers=%s", gate.Score, blockers),
		}
	}

	if build.Status == Fail {
		return ProofVerdict{
			Kind:   Violated,
			Reason: fmt.Sprintf("build failed, %d errors", build.ErrorCount),
		}
	}

	if test.Status == Fail {
		return ProofVerdict{
			Kind:   Violated,
			Reason: fmt.Sprintf("tests failed, %d/%d", test.FailedTests, test.TotalTests),
		}
	}

	if test.TotalTests == 0 {
		if noTests != nil {
			return ProofVerdict{
				Kind:   Proven,
				Reason: fmt.Sprintf("gate SHIP and build pass, no tests declared: %s", noTests.Justification),
			}
		}
		return ProofVerdict{
			Kind:   IncompleteProof,
			Reason: "gate SHIP and build pass, but testCount = 0",
		}
	}

	return ProofVerdict{
		Kind:   Proven,
		Reason: fmt.Sprintf("gate SHIP, build pass, %d/%d tests pass", test.PassedTests, test.TotalTests),
	}
}

// checkInputs returns why the inputs do not fit the decision tree, or "".
func checkInputs(gate *GateResult, build *BuildResult, test *TestResult) string {
	switch {
	case gate == nil:
		return "gate result is missing"
	case gate.Verdict != Ship && gate.Verdict != NoShip:
		return fmt.Sprintf("gate verdict %q is not SHIP or NO_SHIP", gate.Verdict)
	case gate.Verdict == NoShip:
		// A gate rejection decides the verdict whatever else is known.
		return ""
	case build == nil:
		return "build result is missing"
	case build.Status != Pass && build.Status != Fail:
		return fmt.Sprintf("build status %q is not pass or fail", build.Status)
	case build.Status == Fail:
		return ""
	case test == nil:
		return "test result is missing"
	case test.Status != Pass && test.Status != Fail:
		return fmt.Sprintf("test status %q is not pass or fail", test.Status)
	case test.TotalTests < 0 || test.PassedTests < 0 || test.FailedTests < 0:
		return "test counts are negative"
	case test.PassedTests+test.FailedTests > test.TotalTests:
		return fmt.Sprintf("test counts do not add up: %d passed + %d failed > %d total",
			test.PassedTests, test.FailedTests, test.TotalTests)
	case test.Status == Pass && test.FailedTests > 0:
		return fmt.Sprintf("tests reported pass with %d failures", test.FailedTests)
	}
	return ""
}

// Report bundles a verdict with the trust evidence behind it.
type Report struct {
	Verdict ProofVerdict `json:"verdict"`
	Trust   trust.Score  `json:"trust"`
}
