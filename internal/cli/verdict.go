package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/trust"
	"github.com/roach88/islproof/internal/verdict"
)

// VerdictOptions holds flags for the verdict command.
type VerdictOptions struct {
	*RootOptions
	Gate     string // gate result, inline or @file
	Build    string // build result, inline or @file
	Tests    string // test result, inline or @file
	NoTests  string // justification for running without tests
	Evidence string // clause evidence JSON file
}

// VerdictResult is the decided verdict with its ship decision.
type VerdictResult struct {
	Verdict verdict.ProofVerdict `json:"verdict"`
	Trust   trust.Score          `json:"trust"`
	Ships   bool                 `json:"ships"`
	Policy  string               `json:"policy"`
}

// NewVerdictCommand creates the verdict command.
func NewVerdictCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerdictOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verdict",
		Short: "Decide a proof verdict from gate, build and test results",
		Long: `Decide the proof verdict of a change from its gate, build and test
results, then apply the ship policy.

Each result is YAML or JSON, given inline or as @file. A missing result
is an unproven verdict. --no-tests declares why a change has no tests.
--evidence scores a JSON array of clause evidence for the trust report.

Exit codes:
  0 - The verdict ships
  1 - The verdict does not ship
  2 - Command error

Examples:
  islproof verdict --gate '{verdict: SHIP, score: 92}' --build '{status: pass}' --tests @tests.yaml
  islproof verdict --gate @gate.json --build @build.json --no-tests "config-only change"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerdict(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Gate, "gate", "", "gate result (inline or @file)")
	cmd.Flags().StringVar(&opts.Build, "build", "", "build result (inline or @file)")
	cmd.Flags().StringVar(&opts.Tests, "tests", "", "test result (inline or @file)")
	cmd.Flags().StringVar(&opts.NoTests, "no-tests", "", "justification for a change without tests")
	cmd.Flags().StringVar(&opts.Evidence, "evidence", "", "clause evidence JSON file")

	return cmd
}

func runVerdict(opts *VerdictOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	ship, err := cfg.ShipPolicy()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid ship policy", err)
	}

	gate, err := readInput[verdict.GateResult]("gate", opts.Gate)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}
	build, err := readInput[verdict.BuildResult]("build", opts.Build)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}
	tests, err := readInput[verdict.TestResult]("tests", opts.Tests)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}
	var noTests *verdict.NoTestsDeclaration
	if opts.NoTests != "" {
		noTests = &verdict.NoTestsDeclaration{Justification: opts.NoTests}
		if tests == nil {
			tests = &verdict.TestResult{Status: verdict.Pass}
		}
	}

	var evs []evidence.ClauseEvidence
	if opts.Evidence != "" {
		data, err := os.ReadFile(opts.Evidence)
		if err != nil {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("failed to read evidence file: %v", err))
		}
		if err := json.Unmarshal(data, &evs); err != nil {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("failed to parse evidence file: %v", err))
		}
	}

	report := verdict.Report{
		Verdict: verdict.Compute(gate, build, tests, noTests),
		Trust:   trust.NewCalculator(cfg.Trust).Calculate(evs),
	}
	testsTotal := 0
	if tests != nil {
		testsTotal = tests.TotalTests
	}
	ships, err := ship.Decide(report, testsTotal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to apply ship policy", err)
	}

	result := VerdictResult{Verdict: report.Verdict, Trust: report.Trust, Ships: ships, Policy: ship.Expr()}
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintln(w, result.Verdict)
		if result.Verdict.ManualReview {
			fmt.Fprintln(w, "manual review required")
		}
		fmt.Fprintf(w, "trust %d (%s), confidence %d\n", result.Trust.Overall, result.Trust.Recommendation, result.Trust.Confidence)
		formatter.VerboseLog("ship policy: %s", result.Policy)
		if ships {
			fmt.Fprintln(w, "✓ ships")
		} else {
			fmt.Fprintln(w, "✗ does not ship")
		}
	}

	if !ships {
		return NewExitError(ExitFailure, fmt.Sprintf("verdict %s does not ship", result.Verdict.Kind))
	}
	return nil
}

// readInput decodes a YAML or JSON document given inline or as @file. An
// empty argument is a missing input.
func readInput[T any](name, arg string) (*T, error) {
	if arg == "" {
		return nil, nil
	}
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s file: %w", name, err)
		}
	}
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return &v, nil
}
