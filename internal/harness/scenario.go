package harness

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/verdict"
)

// Scenario defines a verification scenario.
// A scenario names the contracts to check, the recorded test executions to
// check them against, and the gate, build and test inputs of the proof
// verdict.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario verifies.
	Description string `yaml:"description"`

	// Contracts lists CUE files, contract directories or JSON bundles.
	// Paths are relative to the scenario file location.
	Contracts []string `yaml:"contracts"`

	// Executions are the recorded runs of the behaviors under test.
	Executions []Execution `yaml:"executions"`

	// Gate, Build, Tests and NoTests feed the proof verdict. Without Tests
	// the test summary is derived from the executions; NoTests stands for
	// an empty passing suite when no execution failed.
	Gate    *verdict.GateResult         `yaml:"gate"`
	Build   *verdict.BuildResult        `yaml:"build"`
	Tests   *verdict.TestResult         `yaml:"tests,omitempty"`
	NoTests *verdict.NoTestsDeclaration `yaml:"no_tests,omitempty"`

	// ExpectVerdict is the expected verdict kind. Empty skips the check.
	ExpectVerdict verdict.Kind `yaml:"expect_verdict,omitempty"`

	// Assertions validate the trace and trust score.
	// Supported types: trace_contains, trace_order, trace_count, trust.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// digest identifies the scenario file content; it is part of the run ID.
	digest string
}

// Execution is one recorded invocation of a behavior.
type Execution struct {
	// ID names the execution. Defaults to "<behavior>#<index>".
	ID string `yaml:"id,omitempty"`

	// Behavior is the contract the execution is checked against.
	Behavior string `yaml:"behavior"`

	// Input holds the behavior's input bindings.
	Input map[string]any `yaml:"input"`

	// Result is the behavior's return value. Omit it for an execution
	// that produced no result; an explicit null is a null result.
	Result yaml.Node `yaml:"result,omitempty"`

	// OldState holds the pre-execution bindings read by old(). Omit it
	// when no snapshot was captured.
	OldState map[string]any `yaml:"old_state,omitempty"`

	// Variables binds free names.
	Variables map[string]any `yaml:"variables,omitempty"`

	// Entities is the post-execution entity store, by entity name.
	Entities map[string][]map[string]any `yaml:"entities,omitempty"`

	// OldEntities is the pre-execution entity store seen inside old().
	// Omit it to answer old() entity queries from Entities.
	OldEntities map[string][]map[string]any `yaml:"old_entities,omitempty"`

	// Expect maps clause ids to the expected outcome.
	Expect map[string]Expectation `yaml:"expect,omitempty"`
}

// Expectation is the expected outcome of one clause. In YAML it is either
// a bare status or a mapping with status and unknown reason:
//
//	expect:
//	  balance-debited: proven
//	  fraud-check: {status: not_proven, reason: EXTERNAL_CALL}
type Expectation struct {
	Status evidence.Status `yaml:"status"`
	Reason string          `yaml:"reason,omitempty"`
}

// UnmarshalYAML accepts the scalar and mapping forms.
func (e *Expectation) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Status = evidence.Status(node.Value)
		return nil
	}
	type plain Expectation
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = Expectation(p)
	return nil
}

// Assertion validates the trace or trust score of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a check event for Clause exists, optionally with Status
	// - "trace_order": Clauses are checked in this order
	// - "trace_count": Clause is checked exactly Count times
	// - "trust": the trust score is at least MinOverall and, if set, has Recommendation
	Type string `yaml:"type"`

	// Clause is a clause id (trace_contains, trace_count).
	Clause string `yaml:"clause,omitempty"`

	// Status is the expected check status (trace_contains).
	Status evidence.Status `yaml:"status,omitempty"`

	// Clauses is the expected check order (trace_order).
	Clauses []string `yaml:"clauses,omitempty"`

	// Count is the expected number of checks (trace_count).
	Count int `yaml:"count,omitempty"`

	// MinOverall is the lowest acceptable overall score (trust).
	MinOverall int `yaml:"min_overall,omitempty"`

	// Recommendation is the expected recommendation (trust).
	Recommendation string `yaml:"recommendation,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertTrust         = "trust"
)

// LoadScenario reads and parses a scenario YAML file.
// Contract paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving contract paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve contract paths relative to base path BEFORE validation
	for i, p := range scenario.Contracts {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Contracts[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without checking that contract
// paths exist.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "execution:" vs "executions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	sum := sha256.Sum256(data)
	scenario.digest = hex.EncodeToString(sum[:])
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Contracts) == 0 {
		return fmt.Errorf("contracts list is required and must be non-empty")
	}
	for _, p := range s.Contracts {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("contracts not found: %s", p)
		}
	}

	if s.Tests != nil && s.NoTests != nil {
		return fmt.Errorf("tests and no_tests are mutually exclusive")
	}

	seen := make(map[string]bool, len(s.Executions))
	for i, ex := range s.Executions {
		if ex.Behavior == "" {
			return fmt.Errorf("executions[%d]: behavior is required", i)
		}
		id := ex.id(i)
		if seen[id] {
			return fmt.Errorf("executions[%d]: duplicate execution id %q", i, id)
		}
		seen[id] = true

		for clauseID, want := range ex.Expect {
			switch want.Status {
			case evidence.Proven, evidence.NotProven, evidence.Failed:
			default:
				return fmt.Errorf("executions[%d].expect[%s]: unknown status %q", i, clauseID, want.Status)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Clause == "" {
			return fmt.Errorf("assertions[%d]: clause is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Clauses) == 0 {
			return fmt.Errorf("assertions[%d]: clauses list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Clause == "" {
			return fmt.Errorf("assertions[%d]: clause is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTrust:
		if a.MinOverall < 0 || a.MinOverall > 100 {
			return fmt.Errorf("assertions[%d]: min_overall must be between 0 and 100", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// id returns the execution's ID, defaulting to "<behavior>#<index>".
func (ex Execution) id(index int) string {
	if ex.ID != "" {
		return ex.ID
	}
	return fmt.Sprintf("%s#%d", ex.Behavior, index)
}
