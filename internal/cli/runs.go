package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Status   string // evidence status filter
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	Scenario   string `json:"scenario"`
	Verdict    string `json:"verdict"`
	Trust      uint8  `json:"trust"`
	TestsTotal int    `json:"tests_total"`
}

// RunDetail is a run with its clause evidence.
type RunDetail struct {
	RunSummary
	Reason   string                    `json:"reason"`
	Evidence []evidence.ClauseEvidence `json:"evidence"`
}

var evidenceStatuses = []string{
	string(evidence.Proven),
	string(evidence.NotProven),
	string(evidence.Failed),
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Inspect recorded verification runs",
		Long: `List the runs recorded by verify --db, or show one run with its
clause evidence.

Examples:
  islproof runs --db runs.db
  islproof runs --db runs.db <run-id> --status failed`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (required)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "evidence status filter (proven|not_proven|failed)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Status != "" && !slices.Contains(evidenceStatuses, opts.Status) {
		return commandError(formatter, ErrCodeGeneric,
			fmt.Sprintf("invalid status %q: must be one of %v", opts.Status, evidenceStatuses))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if len(args) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		summaries := make([]RunSummary, len(runs))
		for i, r := range runs {
			summaries[i] = summarizeRun(r)
		}
		return outputRuns(formatter, summaries)
	}

	run, err := st.ReadRun(ctx, args[0])
	if errors.Is(err, sql.ErrNoRows) {
		return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("run %s not found", args[0]))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var evs []evidence.ClauseEvidence
	if opts.Status != "" {
		evs, err = st.ReadEvidenceByStatus(ctx, run.ID, evidence.Status(opts.Status))
	} else {
		evs, err = st.ReadEvidence(ctx, run.ID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read evidence", err)
	}

	return outputRunDetail(formatter, RunDetail{
		RunSummary: summarizeRun(run),
		Reason:     run.Report.Verdict.Reason,
		Evidence:   evs,
	})
}

func summarizeRun(r store.Run) RunSummary {
	return RunSummary{
		Seq:        r.Seq,
		ID:         r.ID,
		Scenario:   r.Scenario,
		Verdict:    string(r.Report.Verdict.Kind),
		Trust:      r.Report.Trust.Overall,
		TestsTotal: r.TestsTotal,
	}
}

func outputRuns(formatter *OutputFormatter, runs []RunSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%4d  %s  %-16s  trust %3d  %s\n", r.Seq, shortID(r.ID), r.Verdict, r.Trust, r.Scenario)
	}
	return nil
}

func outputRunDetail(formatter *OutputFormatter, d RunDetail) error {
	if formatter.Format == "json" {
		return formatter.Success(d)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (#%d)\n", d.ID, d.Seq)
	fmt.Fprintf(w, "  scenario: %s\n", d.Scenario)
	fmt.Fprintf(w, "  verdict:  %s: %s\n", d.Verdict, d.Reason)
	fmt.Fprintf(w, "  trust:    %d\n", d.Trust)
	fmt.Fprintf(w, "  tests:    %d\n\n", d.TestsTotal)
	for _, ev := range d.Evidence {
		fmt.Fprintf(w, "%-10s %s %s", ev.Status, ev.Execution, ev.ClauseID)
		if ev.Reason != "" {
			fmt.Fprintf(w, "  (%s)", ev.Reason)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// shortID abbreviates a run ID for listings.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
