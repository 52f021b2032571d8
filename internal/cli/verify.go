package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/harness"
	"github.com/roach88/islproof/internal/metrics"
	"github.com/roach88/islproof/internal/store"
	"github.com/roach88/islproof/internal/trust"
	"github.com/roach88/islproof/internal/verdict"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database    string // overrides store.path
	Metrics     string // metrics exposition output file
	Report      string // JSON report output file
	Filter      string // scenario filter (glob pattern)
	RequireShip bool   // fail when a verdict does not ship
}

// ScenarioReport is the outcome of one scenario.
type ScenarioReport struct {
	Name           string                `json:"name"`
	Path           string                `json:"path"`
	Pass           bool                  `json:"pass"`
	Errors         []string              `json:"errors,omitempty"`
	RunID          string                `json:"run_id,omitempty"`
	Verdict        *verdict.ProofVerdict `json:"verdict,omitempty"`
	Trust          uint8                 `json:"trust"`
	Recommendation trust.Recommendation  `json:"recommendation,omitempty"`
	Summary        evidence.Summary      `json:"summary"`
	Ships          bool                  `json:"ships"`
}

// VerifyResult holds the overall verification result.
type VerifyResult struct {
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Shipped   int              `json:"shipped"`
	Total     int              `json:"total"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <scenario>...",
		Short: "Verify scenarios against their contracts",
		Long: `Verify scenario files against the contracts they reference.

Each execution is checked clause by clause; the evidence is scored and
the proof verdict is decided and passed through the ship policy.
Directories are searched for .yaml and .yml files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed (or did not ship, with --require-ship)
  2 - Command error (invalid paths, bad config, etc.)

Examples:
  islproof verify ./scenarios
  islproof verify ./scenarios --filter "transfer-*" --require-ship
  islproof verify ./scenarios --db runs.db --metrics metrics.prom
  islproof verify ./scenarios --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database for run history (overrides store.path)")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write Prometheus metrics to this file")
	cmd.Flags().StringVar(&opts.Report, "report", "", "write the JSON report to this file")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.RequireShip, "require-ship", false, "fail when a verdict does not ship")

	return cmd
}

func runVerify(opts *VerifyOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	ship, err := cfg.ShipPolicy()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid ship policy", err)
	}

	files, err := harness.FindScenarios(paths)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return formatter.Success(VerifyResult{Scenarios: []ScenarioReport{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	var rec *metrics.Recorder
	if opts.Metrics != "" {
		rec = metrics.New()
	}

	hopts := cfg.HarnessOptions(opts.logger(cmd.ErrOrStderr()), rec)

	dbPath := cfg.Store.Path
	if opts.Database != "" {
		dbPath = opts.Database
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		hopts.Store = st
		formatter.VerboseLog("Recording runs in %s", dbPath)
	}

	suite, err := harness.RunSuite(cmd.Context(), files, hopts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	failures := make(map[string]string, len(suite.Failures))
	for _, f := range suite.Failures {
		failures[f.ScenarioPath] = f.Error
	}

	result := VerifyResult{Scenarios: make([]ScenarioReport, 0, len(files)), Total: len(files)}
	for _, path := range files {
		report := ScenarioReport{Name: scenarioName(path), Path: path}

		if run, ok := suite.Runs[path]; ok {
			ships, err := ship.Decide(run.Report(), run.TestsTotal())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to apply ship policy", err)
			}
			v := run.Verdict
			report.Pass = run.Pass
			report.Errors = run.Errors
			report.RunID = run.RunID
			report.Verdict = &v
			report.Trust = run.Trust.Overall
			report.Recommendation = run.Trust.Recommendation
			report.Summary = run.Summary
			report.Ships = ships
		} else {
			report.Errors = []string{failures[path]}
		}

		if report.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if report.Ships {
			result.Shipped++
		}
		result.Scenarios = append(result.Scenarios, report)
	}

	if rec != nil {
		if err := writeMetrics(rec, opts.Metrics); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}
	if opts.Report != "" {
		if err := writeJSONFile(opts.Report, result); err != nil {
			return WrapExitError(ExitCommandError, "failed to write report", err)
		}
	}

	if opts.Format == "json" {
		if err := outputVerifyJSON(formatter, result); err != nil {
			return err
		}
	} else {
		outputVerifyText(formatter, result)
	}
	return verifyExit(result, opts.RequireShip)
}

// filterScenarios keeps the files whose base name, without extension,
// matches the glob pattern.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var out []string
	for _, f := range files {
		matched, err := filepath.Match(pattern, scenarioName(f))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}

func scenarioName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeMetrics(rec *metrics.Recorder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rec.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func verifyExit(result VerifyResult, requireShip bool) error {
	if result.Failed > 0 {
		// Verification failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	if requireShip && result.Shipped < result.Total {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) do not ship", result.Total-result.Shipped))
	}
	return nil
}

// outputVerifyJSON outputs the verification result as JSON.
func outputVerifyJSON(formatter *OutputFormatter, result VerifyResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_VERIFY_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	return formatter.JSON(response)
}

// outputVerifyText outputs the verification result as text.
func outputVerifyText(formatter *OutputFormatter, result VerifyResult) {
	w := formatter.Writer

	for _, s := range result.Scenarios {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		if s.Verdict == nil {
			fmt.Fprintf(w, "%s %s\n", mark, s.Name)
		} else {
			shipMark := "ship"
			if !s.Ships {
				shipMark = "hold"
			}
			fmt.Fprintf(w, "%s %s  %s  trust %d (%s)  %s\n",
				mark, s.Name, s.Verdict.Kind, s.Trust, s.Recommendation, shipMark)
			formatter.VerboseLog("  %s: %s", s.Name, s.Verdict.Reason)
		}
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Verify Summary: %d passed, %d failed, %d total, %d ship\n",
		result.Passed, result.Failed, result.Total, result.Shipped)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
